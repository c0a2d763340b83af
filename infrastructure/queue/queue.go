// Package queue implements a durable, at-least-once FIFO job queue backed by
// Redis, following the poll/retry/TTL idiom of the oracle service's
// dispatcher (see DESIGN.md) but built directly on go-redis rather than a
// bespoke service framework.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Status is the lifecycle of a single enqueued job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one unit of work dispatched onto the queue. Payload carries the
// verification-engine-specific fields (verification_id, job kind, and for
// UBO children, the parent linkage) as opaque JSON.
type Job struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	MaxAttempts int            `json:"max_attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Info reports queue depth and in-flight counts (SPEC_FULL.md §D.2); it
// carries no per-worker liveness.
type Info struct {
	Queued    int64 `json:"queued"`
	InFlight  int64 `json:"in_progress"`
	Healthy   bool  `json:"healthy"`
}

const (
	defaultLease = 5 * time.Minute
	maxAttempts  = 3
)

// Queue is a single named FIFO queue. All operations are safe for concurrent
// use by many worker goroutines/processes.
type Queue struct {
	client *redis.Client
	name   string
}

// New wraps an existing Redis client for the named queue (e.g.
// "verification_jobs").
func New(client *redis.Client, name string) *Queue {
	return &Queue{client: client, name: name}
}

func (q *Queue) readyKey() string      { return "queue:" + q.name + ":ready" }
func (q *Queue) processingKey() string { return "queue:" + q.name + ":processing" }
func (q *Queue) statusKey(id string) string { return "queue:" + q.name + ":status:" + id }

// Enqueue appends a job to the tail of the FIFO and records its initial
// status. jobType and payload are caller-supplied; Enqueue assigns the id.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     raw,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.readyKey(), encoded)
	pipe.HSet(ctx, q.statusKey(job.ID), "status", string(StatusQueued), "attempts", job.Attempts)
	pipe.Expire(ctx, q.statusKey(job.ID), 24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// Dequeue blocks up to timeout for a job, atomically moving it from the ready
// list to the processing list (an RPOPLPUSH-style lease) so a worker crash
// leaves the job recoverable rather than lost.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	encoded, err := q.client.BRPopLPush(ctx, q.readyKey(), q.processingKey(), timeout).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue job: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(encoded), &job); err != nil {
		return nil, fmt.Errorf("unmarshal dequeued job: %w", err)
	}
	job.Attempts++

	// BRPopLPush pushed the pre-increment bytes onto the processing list;
	// rewrite that entry in place so Ack/Retry's LRem (which matches against
	// the post-increment Job) finds it instead of leaking the list entry.
	reencoded, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal dequeued job: %w", err)
	}
	if err := q.client.LSet(ctx, q.processingKey(), 0, reencoded).Err(); err != nil {
		return nil, fmt.Errorf("update processing entry: %w", err)
	}

	q.client.HSet(ctx, q.statusKey(job.ID), "status", string(StatusRunning), "attempts", job.Attempts)
	return &job, nil
}

// Ack marks a job complete and removes it from the processing list.
func (q *Queue) Ack(ctx context.Context, job *Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job for ack: %w", err)
	}
	if err := q.client.LRem(ctx, q.processingKey(), 1, encoded).Err(); err != nil {
		return fmt.Errorf("remove job from processing: %w", err)
	}
	return q.client.HSet(ctx, q.statusKey(job.ID), "status", string(StatusCompleted)).Err()
}

// Retry re-enqueues a job at the tail if it has attempts remaining, otherwise
// marks it permanently failed. processingEncoded is the job's JSON as Dequeue
// left it on the processing list (the post-increment encoding, which
// json.Marshal of the dequeued job reproduces), required to remove the right
// list entry.
func (q *Queue) Retry(ctx context.Context, job *Job, processingEncoded string) error {
	if err := q.client.LRem(ctx, q.processingKey(), 1, processingEncoded).Err(); err != nil {
		return fmt.Errorf("remove job from processing: %w", err)
	}

	if job.Attempts >= job.MaxAttempts {
		return q.client.HSet(ctx, q.statusKey(job.ID), "status", string(StatusFailed)).Err()
	}

	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job for retry: %w", err)
	}
	pipe := q.client.TxPipeline()
	pipe.LPush(ctx, q.readyKey(), encoded)
	pipe.HSet(ctx, q.statusKey(job.ID), "status", string(StatusQueued), "attempts", job.Attempts)
	_, err = pipe.Exec(ctx)
	return err
}

// Status returns the current status of a job by id.
func (q *Queue) Status(ctx context.Context, jobID string) (Status, error) {
	status, err := q.client.HGet(ctx, q.statusKey(jobID), "status").Result()
	if err == redis.Nil {
		return "", fmt.Errorf("job %s: not found", jobID)
	}
	if err != nil {
		return "", fmt.Errorf("get job status: %w", err)
	}
	return Status(status), nil
}

// Info reports queue depth and in-flight job counts for the /queue-info
// health endpoint (SPEC_FULL.md §D.2).
func (q *Queue) Info(ctx context.Context) (Info, error) {
	queued, err := q.client.LLen(ctx, q.readyKey()).Result()
	if err != nil {
		return Info{}, fmt.Errorf("queue length: %w", err)
	}
	inFlight, err := q.client.LLen(ctx, q.processingKey()).Result()
	if err != nil {
		return Info{}, fmt.Errorf("processing length: %w", err)
	}
	return Info{Queued: queued, InFlight: inFlight, Healthy: true}, nil
}
