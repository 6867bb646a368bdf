package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// DefaultVoice is the Polly voice used when none is configured.
const DefaultVoice = "Joanna"

// maxRequestChars is Polly's per-request limit on billed characters. Counting
// markup too keeps every request under it.
const maxRequestChars = 3000

// pollyAPI is the subset of the Polly client Polly uses.
type pollyAPI interface {
	SynthesizeSpeech(ctx context.Context, in *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Polly synthesizes speech with Amazon Polly's neural engine.
type Polly struct {
	client pollyAPI
	voice  string
}

// NewPolly creates a Polly synthesizer from an AWS config.
func NewPolly(cfg aws.Config, voice string) *Polly {
	return newPolly(polly.NewFromConfig(cfg), voice)
}

func newPolly(client pollyAPI, voice string) *Polly {
	if voice == "" {
		voice = DefaultVoice
	}
	return &Polly{client: client, voice: voice}
}

// Synthesize renders ssml to MP3. Documents longer than maxRequestChars are
// sent as several requests and the MP3 frames concatenated.
func (p *Polly) Synthesize(ctx context.Context, ssml string) ([]byte, error) {
	chunks := SplitSSML(ssml, maxRequestChars)
	if len(chunks) > 1 {
		slog.Debug("splitting speech request", "chunks", len(chunks), "chars", len(ssml))
	}
	var audio []byte
	for i, chunk := range chunks {
		part, err := p.synthesize(ctx, chunk)
		if err != nil {
			if len(chunks) > 1 {
				return nil, fmt.Errorf("polly: chunk %d of %d: %w", i+1, len(chunks), err)
			}
			return nil, err
		}
		audio = append(audio, part...)
	}
	return audio, nil
}

func (p *Polly) synthesize(ctx context.Context, ssml string) ([]byte, error) {
	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       types.EngineNeural,
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(ssml),
		TextType:     types.TextTypeSsml,
		VoiceId:      types.VoiceId(p.voice),
	})
	if err != nil {
		return nil, fmt.Errorf("polly: synthesize: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("polly: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("polly: empty audio stream")
	}
	return audio, nil
}
