package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/pipeline"
)

// Processor runs the pipeline for a single submission.
type Processor interface {
	Run(ctx context.Context, sub model.Submission) (pipeline.Result, error)
}

// Pool runs a fixed number of workers draining a Queue. Each submission gets
// its own timeout; cancelling the Start context cancels in-flight runs.
type Pool struct {
	queue     Queue
	processor Processor
	workers   int
	timeout   time.Duration
	interval  time.Duration
}

// New creates a Pool. interval is the pause after a queue error.
func New(queue Queue, processor Processor, workers int, timeout, interval time.Duration) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Pool{queue: queue, processor: processor, workers: workers, timeout: timeout, interval: interval}
}

// Submit enqueues sub. It returns ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(ctx context.Context, sub model.Submission) error {
	return p.queue.Enqueue(ctx, sub)
}

// Start runs the workers. It blocks until ctx is cancelled and every worker
// has returned.
func (p *Pool) Start(ctx context.Context) error {
	slog.Info("worker pool started", "workers", p.workers, "timeout", p.timeout.String())
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.workers; i++ {
		id := i
		g.Go(func() error {
			p.loop(ctx, id)
			return nil
		})
	}
	err := g.Wait()
	slog.Info("worker pool stopped")
	return err
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		sub, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("worker dequeue error", "worker", id, "error", err)
			p.sleep(ctx)
			continue
		}
		p.process(ctx, id, sub)
	}
}

func (p *Pool) process(ctx context.Context, id int, sub model.Submission) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline panicked", "worker", id, "submission_id", sub.ID, "panic", r)
		}
	}()

	start := time.Now()
	slog.Info("processing submission", "worker", id, "submission_id", sub.ID, "product_url", sub.ProductURL)
	res, err := p.processor.Run(ctx, sub)
	if err != nil {
		slog.Error("pipeline failed", "worker", id, "submission_id", sub.ID, "error_info", buildErrorInfo(sub.ID, err))
		return
	}
	if res.Duplicate {
		slog.Info("submission already processed", "worker", id, "submission_id", sub.ID)
		return
	}
	slog.Info("submission processed",
		"worker", id,
		"submission_id", sub.ID,
		"degraded", res.Degraded,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
}

func (p *Pool) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(p.interval):
	}
}

// stepNamer is implemented by errors that carry a pipeline step name.
type stepNamer interface {
	StepName() string
}

func buildErrorInfo(submissionID string, err error) string {
	step := "unknown"
	var sn stepNamer
	if errors.As(err, &sn) {
		step = sn.StepName()
	}
	info := model.ErrorInfo{
		SubmissionID: submissionID,
		FailedStep:   step,
		Message:      err.Error(),
		FailedAt:     time.Now().UTC().Format(time.RFC3339),
	}
	return info.ToJSON()
}
