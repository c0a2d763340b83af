package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/queue"
)

// JobTypeBusiness is the queue job type a top-level business submission is
// enqueued under.
const JobTypeBusiness = "verification.business"

// dequeueBlockTimeout bounds how long a single Dequeue call blocks waiting
// for a job before Run loops back around to check ctx cancellation.
const dequeueBlockTimeout = 5 * time.Second

// jobPayload is the shape every workflow job carries: the id of the
// already-created Verification row to process.
type jobPayload struct {
	VerificationID string `json:"verification_id"`
}

// Engine pulls jobs off the queue and routes each to the individual or
// business workflow by job type, mirroring the teacher's worker-loop
// dequeue/dispatch/ack-or-retry idiom generalized from blockchain job kinds
// to verification workflows.
type Engine struct {
	q          *queue.Queue
	logger     *logging.Logger
	individual *IndividualWorkflow
	business   *BusinessWorkflow
}

func NewEngine(q *queue.Queue, logger *logging.Logger, individual *IndividualWorkflow, business *BusinessWorkflow) *Engine {
	return &Engine{q: q, logger: logger, individual: individual, business: business}
}

// Run blocks, repeatedly dequeuing and dispatching jobs until ctx is
// cancelled. A job whose workflow returns an error is retried (re-enqueued
// with its attempt count incremented) up to the queue's configured
// MaxAttempts, after which it is marked permanently failed; the
// Verification row itself is left in whatever state the workflow reached
// (per spec.md §4.5, the queue — not the DB — is the source of truth for
// "in flight").
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.step(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			e.logger.Error(ctx, "workflow engine step failed", err, nil)
		}
	}
}

// step dequeues and processes exactly one job; kept as its own method so
// callers (and tests) can drive the loop deterministically.
func (e *Engine) step(ctx context.Context) error {
	job, err := e.q.Dequeue(ctx, dequeueBlockTimeout)
	if err != nil {
		return fmt.Errorf("dequeue: %w", err)
	}
	if job == nil {
		return nil
	}

	var payload jobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal job %s payload: %w", job.ID, err)
	}

	runErr := e.dispatch(ctx, job.Type, payload.VerificationID)

	encoded, marshalErr := json.Marshal(job)
	if marshalErr != nil {
		return fmt.Errorf("marshal job %s for ack/retry: %w", job.ID, marshalErr)
	}

	if runErr != nil {
		e.logger.Error(ctx, "workflow run failed, retrying job", runErr, map[string]interface{}{
			"job_id": job.ID, "job_type": job.Type, "verification_id": payload.VerificationID,
		})
		return e.q.Retry(ctx, job, string(encoded))
	}
	return e.q.Ack(ctx, job)
}

func (e *Engine) dispatch(ctx context.Context, jobType, verificationID string) error {
	switch jobType {
	case JobTypeIndividual:
		return e.individual.Run(ctx, verificationID)
	case JobTypeBusiness:
		return e.business.Run(ctx, verificationID)
	default:
		return fmt.Errorf("unknown job type %q for verification %s", jobType, verificationID)
	}
}
