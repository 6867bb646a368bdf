package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yangwenmai/kirbuk/internal/model"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
var ErrQueueFull = errors.New("worker: queue full")

// Queue holds submissions waiting for a worker.
type Queue interface {
	Enqueue(ctx context.Context, sub model.Submission) error
	// Dequeue blocks until a submission is available or ctx is done.
	Dequeue(ctx context.Context) (model.Submission, error)
	Len(ctx context.Context) (int, error)
}

// MemoryQueue is an in-process bounded queue.
type MemoryQueue struct {
	ch chan model.Submission
}

// NewMemoryQueue creates a MemoryQueue holding up to capacity submissions.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemoryQueue{ch: make(chan model.Submission, capacity)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, sub model.Submission) error {
	select {
	case q.ch <- sub:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (model.Submission, error) {
	select {
	case <-ctx.Done():
		return model.Submission{}, ctx.Err()
	case sub := <-q.ch:
		return sub, nil
	}
}

func (q *MemoryQueue) Len(context.Context) (int, error) {
	return len(q.ch), nil
}

// pushIfRoom atomically checks the list length and pushes.
var pushIfRoom = redis.NewScript(`
if redis.call('LLEN', KEYS[1]) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('LPUSH', KEYS[1], ARGV[1])
return 1
`)

// RedisQueue is a bounded queue stored in a Redis list, shared by every
// process pointing at the same key.
type RedisQueue struct {
	client   *redis.Client
	key      string
	capacity int
	poll     time.Duration
}

// NewRedisQueue creates a RedisQueue on key.
func NewRedisQueue(client *redis.Client, key string, capacity int) *RedisQueue {
	if key == "" {
		key = "kirbuk:submissions"
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &RedisQueue{client: client, key: key, capacity: capacity, poll: time.Second}
}

func (q *RedisQueue) Enqueue(ctx context.Context, sub model.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("worker: marshal submission: %w", err)
	}
	pushed, err := pushIfRoom.Run(ctx, q.client, []string{q.key}, string(data), q.capacity).Int()
	if err != nil {
		return fmt.Errorf("worker: enqueue: %w", err)
	}
	if pushed == 0 {
		return ErrQueueFull
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (model.Submission, error) {
	for {
		if err := ctx.Err(); err != nil {
			return model.Submission{}, err
		}
		res, err := q.client.BRPop(ctx, q.poll, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return model.Submission{}, ctx.Err()
			}
			return model.Submission{}, fmt.Errorf("worker: dequeue: %w", err)
		}
		// res is [key, value].
		var sub model.Submission
		if err := json.Unmarshal([]byte(res[1]), &sub); err != nil {
			return model.Submission{}, fmt.Errorf("worker: decode submission: %w", err)
		}
		return sub, nil
	}
}

func (q *RedisQueue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	return int(n), err
}
