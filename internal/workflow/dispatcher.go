// Package workflow implements the two verification state machines
// (individual, business) described in spec.md §4.5: mark processing, run
// data acquisition, fan out the subject's agents in parallel, and compile
// a terminal result. Grounded on the teacher's goroutine fan-out/WaitGroup
// idiom, generalized from blockchain job dispatch to verification agents.
package workflow

import (
	"context"

	"github.com/verifyengine/core/infrastructure/queue"
)

// Dispatcher is the narrow slice of queue.Queue the workflow engine needs,
// kept as an interface so tests can substitute an in-memory fake instead of
// a real Redis-backed queue.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) (*queue.Job, error)
}
