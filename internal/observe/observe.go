// Package observe reports pipeline failures to an error tracker.
package observe

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
)

// Event describes one failed pipeline stage. Fatal marks failures that
// aborted the submission; all others were degraded around.
type Event struct {
	SubmissionID string
	Stage        string
	ProductURL   string
	Err          error
	Fatal        bool
}

// Log reports events through slog only.
type Log struct{}

func (Log) Report(_ context.Context, ev Event) {
	level := slog.LevelWarn
	if ev.Fatal {
		level = slog.LevelError
	}
	slog.Log(context.Background(), level, "stage failed",
		"submission_id", ev.SubmissionID,
		"stage", ev.Stage,
		"product_url", ev.ProductURL,
		"fatal", ev.Fatal,
		"error", ev.Err,
	)
}

// Sentry reports events to Sentry and to the log.
type Sentry struct {
	hub *sentry.Hub
}

// SentryOptions configures NewSentry.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string

	// BeforeSend, when set, sees every event before it is sent.
	BeforeSend func(*sentry.Event, *sentry.EventHint) *sentry.Event
}

// NewSentry creates a reporter with its own client and hub.
func NewSentry(opts SentryOptions) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		AttachStacktrace: true,
		BeforeSend:       opts.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (s *Sentry) Report(ctx context.Context, ev Event) {
	Log{}.Report(ctx, ev)
	if ev.Err == nil {
		return
	}

	hub := s.hub.Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("submission_id", ev.SubmissionID)
		scope.SetTag("stage", ev.Stage)
		if ev.Fatal {
			scope.SetLevel(sentry.LevelError)
		} else {
			scope.SetLevel(sentry.LevelWarning)
		}
		scope.SetContext("submission", sentry.Context{
			"product_url": ev.ProductURL,
			"fatal":       ev.Fatal,
		})
		hub.CaptureException(ev.Err)
	})
}

// Flush waits up to timeout for buffered events to be delivered.
func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}
