// Package media combines recorded video with narration and background music
// using ffmpeg, and probes media durations with ffprobe.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/yangwenmai/kirbuk/internal/proc"
)

const (
	// DefaultTimeout bounds every encoder invocation.
	DefaultTimeout = 2 * time.Minute

	DefaultVoiceVolume = 1.0
	DefaultMusicVolume = 0.15
)

// OutputExt returns the container extension a mux of video should write.
// The video stream is copied, so the output keeps the recording's container:
// MP4 recordings (H.264) stay MP4 and everything else is written as WebM.
func OutputExt(video string) string {
	if strings.EqualFold(filepath.Ext(video), ".mp4") {
		return ".mp4"
	}
	return ".webm"
}

// audioCodec returns the native audio codec of the output container.
func audioCodec(output string) string {
	if strings.EqualFold(filepath.Ext(output), ".mp4") {
		return "aac"
	}
	return "libopus"
}

// Muxer shells out to ffmpeg/ffprobe.
type Muxer struct {
	ffmpeg  string
	ffprobe string
	timeout time.Duration
}

// Option configures a Muxer.
type Option func(*Muxer)

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpeg, ffprobe string) Option {
	return func(m *Muxer) {
		if ffmpeg != "" {
			m.ffmpeg = ffmpeg
		}
		if ffprobe != "" {
			m.ffprobe = ffprobe
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(m *Muxer) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// New creates a Muxer using ffmpeg/ffprobe from PATH.
func New(opts ...Option) *Muxer {
	m := &Muxer{ffmpeg: "ffmpeg", ffprobe: "ffprobe", timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MuxRequest describes one mux. Music is optional; zero volumes select the
// defaults.
type MuxRequest struct {
	Video       string
	Voice       string
	Music       string
	Output      string
	VoiceVolume float64
	MusicVolume float64
}

// Mux writes Output from the request's inputs. The video stream is copied,
// the audio is encoded to the container's codec (AAC for .mp4, Opus
// otherwise) and the output ends with the shortest stream.
// With music, the music is looped indefinitely and mixed under the voice, so
// the voice track bounds the output duration.
func (m *Muxer) Mux(ctx context.Context, req MuxRequest) error {
	if req.Video == "" || req.Voice == "" || req.Output == "" {
		return errors.New("media: video, voice and output are required")
	}
	args := muxArgs(req)
	slog.Debug("ffmpeg mux", "args", strings.Join(args, " "))

	if _, err := proc.Run(ctx, proc.Cmd{Name: m.ffmpeg, Args: args, Timeout: m.timeout}); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

func muxArgs(req MuxRequest) []string {
	voiceVol := req.VoiceVolume
	if voiceVol <= 0 {
		voiceVol = DefaultVoiceVolume
	}
	musicVol := req.MusicVolume
	if musicVol <= 0 {
		musicVol = DefaultMusicVolume
	}

	args := []string{"-y", "-i", req.Video, "-i", req.Voice}
	if req.Music == "" {
		args = append(args,
			"-map", "0:v:0",
			"-map", "1:a:0",
		)
	} else {
		filter := fmt.Sprintf(
			"[1:a]volume=%s[voice];[2:a]volume=%s[music];[voice][music]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]",
			formatVolume(voiceVol), formatVolume(musicVol),
		)
		args = append(args,
			"-stream_loop", "-1",
			"-i", req.Music,
			"-filter_complex", filter,
			"-map", "0:v:0",
			"-map", "[aout]",
		)
	}
	return append(args,
		"-c:v", "copy",
		"-c:a", audioCodec(req.Output),
		"-shortest",
		req.Output,
	)
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Probe returns the container duration of path in seconds.
func (m *Muxer) Probe(ctx context.Context, path string) (float64, error) {
	out, err := proc.Run(ctx, proc.Cmd{
		Name: m.ffprobe,
		Args: []string{
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			path,
		},
		Timeout: m.timeout,
	})
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	return parseDuration(out.Stdout)
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe: no duration reported")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: parse duration %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("ffprobe: non-positive duration %v", d)
	}
	return d, nil
}

// Prober reports a media file's duration in seconds.
type Prober interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// DurationOr probes path and returns fallback seconds if probing fails for
// any reason.
func DurationOr(ctx context.Context, p Prober, path string, fallback float64) float64 {
	if p == nil || path == "" {
		return fallback
	}
	d, err := p.Probe(ctx, path)
	if err != nil {
		slog.Warn("duration probe failed, using default", "path", path, "default_seconds", fallback, "error", err)
		return fallback
	}
	return d
}
