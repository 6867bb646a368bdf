package observe

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentry_Report(t *testing.T) {
	var mu sync.Mutex
	var events []*sentry.Event
	s, err := NewSentry(SentryOptions{
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	s.Report(context.Background(), Event{
		SubmissionID: "sub-1",
		Stage:        "mux",
		ProductURL:   "https://example.com",
		Err:          errors.New("ffmpeg exited with status 1"),
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "sub-1", ev.Tags["submission_id"])
	assert.Equal(t, "mux", ev.Tags["stage"])
	assert.Equal(t, sentry.LevelWarning, ev.Level)
	assert.Equal(t, "https://example.com", ev.Contexts["submission"]["product_url"])
}

func TestSentry_FatalLevel(t *testing.T) {
	var got *sentry.Event
	s, err := NewSentry(SentryOptions{
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			got = ev
			return nil
		},
	})
	require.NoError(t, err)

	s.Report(context.Background(), Event{SubmissionID: "sub-2", Stage: "explore", Err: errors.New("boom"), Fatal: true})
	require.NotNil(t, got)
	assert.Equal(t, sentry.LevelError, got.Level)
}

func TestSentry_InvalidDSN(t *testing.T) {
	_, err := NewSentry(SentryOptions{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestLog_Report(t *testing.T) {
	// Must not panic on a nil error.
	Log{}.Report(context.Background(), Event{SubmissionID: "x", Stage: "voice"})
}
