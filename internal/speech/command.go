package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yangwenmai/kirbuk/internal/proc"
)

// Command synthesizes speech with an edge-tts compatible CLI:
//
//	<bin> --voice V --file in.txt --write-media out.mp3
//
// The CLI only understands plain text, so markup is stripped first.
type Command struct {
	bin     string
	voice   string
	timeout time.Duration
}

// NewCommand creates a Command synthesizer. An empty bin selects edge-tts.
func NewCommand(bin, voice string, timeout time.Duration) *Command {
	if bin == "" {
		bin = "edge-tts"
	}
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Command{bin: bin, voice: voice, timeout: timeout}
}

// Synthesize renders the text of ssml to MP3.
func (c *Command) Synthesize(ctx context.Context, ssml string) ([]byte, error) {
	text := PlainText(ssml)
	if text == "" {
		return nil, ErrNoText
	}

	dir, err := os.MkdirTemp("", "kirbuk-tts-*")
	if err != nil {
		return nil, fmt.Errorf("tts: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "narration.txt")
	out := filepath.Join(dir, "voice.mp3")
	if err := os.WriteFile(in, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("tts: write text: %w", err)
	}

	if _, err := proc.Run(ctx, proc.Cmd{
		Name:    c.bin,
		Args:    []string{"--voice", c.voice, "--file", in, "--write-media", out},
		Timeout: c.timeout,
	}); err != nil {
		return nil, fmt.Errorf("tts: %w", err)
	}

	audio, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("tts: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("tts: empty audio file")
	}
	return audio, nil
}
