// Package runner executes generated browser-automation scripts and recovers
// the screen recording they produce.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/proc"
	"github.com/yangwenmai/kirbuk/internal/store"
)

const (
	// DefaultTimeout bounds one automation run.
	DefaultTimeout = 5 * time.Minute

	// ExpectedVideo is the filename generated scripts are told to record to.
	ExpectedVideo = "recording.webm"

	scriptName = "automation.py"
	scratchDir = "automation"
)

// DefaultAlternates are checked, in order, when ExpectedVideo is missing.
var DefaultAlternates = []string{
	"video.webm",
	"output.webm",
	"demo.webm",
	"recording.mp4",
	"video.mp4",
}

// VideoNotFoundError reports a run that exited cleanly without leaving a
// recording behind. Listing is the scratch directory's contents.
type VideoNotFoundError struct {
	Dir     string
	Listing []string
}

func (e *VideoNotFoundError) Error() string {
	return fmt.Sprintf("no recording found in %s (contents: [%s])", e.Dir, strings.Join(e.Listing, ", "))
}

// Result describes a successful run.
type Result struct {
	Key       string
	LocalPath string
}

// Runner runs automation scripts and uploads their recordings.
type Runner struct {
	store       store.ObjectWriter
	layout      model.Layout
	interpreter string
	timeout     time.Duration
	alternates  []string
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterpreter overrides the default python3 interpreter.
func WithInterpreter(bin string) Option {
	return func(r *Runner) {
		if bin != "" {
			r.interpreter = bin
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithAlternates overrides DefaultAlternates.
func WithAlternates(names []string) Option {
	return func(r *Runner) {
		if len(names) > 0 {
			r.alternates = names
		}
	}
}

// New creates a Runner that uploads into st using layout.
func New(st store.ObjectWriter, layout model.Layout, opts ...Option) *Runner {
	r := &Runner{
		store:       st,
		layout:      layout,
		interpreter: "python3",
		timeout:     DefaultTimeout,
		alternates:  DefaultAlternates,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run writes script into workDir/automation, executes it and uploads the
// recording it produced under the submission's video key.
//
// A run exceeding the timeout returns an error wrapping proc.ErrTimeout; a
// non-zero exit returns *proc.ExitError; a clean exit without a recording
// returns *VideoNotFoundError.
func (r *Runner) Run(ctx context.Context, workDir, submissionID, script string) (Result, error) {
	dir := filepath.Join(workDir, scratchDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create scratch dir: %w", err)
	}
	scriptPath := filepath.Join(dir, scriptName)
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return Result{}, fmt.Errorf("write script: %w", err)
	}

	slog.Info("running automation script", "submission_id", submissionID, "dir", dir, "timeout", r.timeout)
	out, err := proc.Run(ctx, proc.Cmd{
		Name:    r.interpreter,
		Args:    []string{scriptName},
		Dir:     dir,
		Timeout: r.timeout,
	})
	if err != nil {
		slog.Error("automation script failed",
			"submission_id", submissionID,
			"stdout", tailLines(out.Stdout, 20),
			"stderr", tailLines(out.Stderr, 20),
			"error", err,
		)
		return Result{}, fmt.Errorf("automation script: %w", err)
	}
	slog.Info("automation script finished", "submission_id", submissionID, "duration", out.Duration)

	videoPath, err := r.findVideo(dir)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return Result{}, fmt.Errorf("read recording: %w", err)
	}

	key := r.layout.Key(submissionID, model.ArtifactVideo)
	if err := r.store.Put(ctx, key, data, model.VideoContentType(videoPath)); err != nil {
		return Result{}, fmt.Errorf("upload recording: %w", err)
	}
	slog.Info("recording uploaded", "submission_id", submissionID, "key", key, "bytes", len(data))
	return Result{Key: key, LocalPath: videoPath}, nil
}

func (r *Runner) findVideo(dir string) (string, error) {
	candidates := append([]string{ExpectedVideo}, r.alternates...)
	for i, name := range candidates {
		p := filepath.Join(dir, name)
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		if i > 0 {
			slog.Warn("expected recording missing, using alternate", "expected", ExpectedVideo, "found", name)
		}
		return p, nil
	}

	var listing []string
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		listing = append(listing, e.Name())
	}
	sort.Strings(listing)
	return "", &VideoNotFoundError{Dir: dir, Listing: listing}
}

// IsTimeout reports whether err came from a run exceeding its timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, proc.ErrTimeout)
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
