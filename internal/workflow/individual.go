package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/agents/compilation"
)

// IndividualWorkflow runs the individual-subject state machine: mark
// processing, data acquisition, fan out the ten individual agents in
// parallel, compile, per spec.md §4.5.
type IndividualWorkflow struct {
	store       verification.Store
	logger      *logging.Logger
	acquisition *compilation.DataAcquisitionAgent
	agents      []agent.Agent
	compile     *compilation.ResultCompilationAgent
	runner      *agent.Runner
}

func NewIndividualWorkflow(
	store verification.Store,
	logger *logging.Logger,
	acquisition *compilation.DataAcquisitionAgent,
	agents []agent.Agent,
	compile *compilation.ResultCompilationAgent,
) *IndividualWorkflow {
	return &IndividualWorkflow{
		store:       store,
		logger:      logger,
		acquisition: acquisition,
		agents:      agents,
		compile:     compile,
		runner:      agent.NewRunner(logger),
	}
}

// Run executes the full individual verification lifecycle for an
// already-created Verification row. Its own return error signals an
// infrastructure-level failure the caller (the queue consumer) should
// retry the job for; agent and acquisition failures are absorbed into the
// terminal verification row instead.
func (w *IndividualWorkflow) Run(ctx context.Context, verificationID string) error {
	v, err := w.store.GetVerification(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("load verification %s: %w", verificationID, err)
	}

	if err := w.store.MarkProcessing(ctx, v.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	w.logger.LogWorkflowTransition(ctx, v.ID, string(verification.StatusQueued), string(verification.StatusProcessing))

	acquisitionResult := w.acquisition.Run(ctx, v)
	acquisitionResult.AgentType = w.acquisition.Type()
	acquisitionResult.VerificationID = v.ID
	if err := w.store.AppendAgentResult(ctx, &acquisitionResult); err != nil {
		return fmt.Errorf("persist data acquisition result: %w", err)
	}
	if acquisitionResult.Status == verification.AgentStatusError {
		return w.store.Fail(ctx, v.ID, "Data acquisition failed")
	}

	inputs, err := w.loadInputs(ctx, v.ID)
	if err != nil {
		return fmt.Errorf("load acquired inputs: %w", err)
	}

	results := w.fanOut(ctx, v, inputs)
	for _, r := range results {
		if err := w.store.AppendAgentResult(ctx, &r); err != nil {
			return fmt.Errorf("persist agent result %s: %w", r.AgentType, err)
		}
	}

	result, reason, err := w.compile.Compile(ctx, v)
	if err != nil {
		return w.store.Fail(ctx, v.ID, "Result compilation failed")
	}

	if err := w.store.Complete(ctx, v.ID, result, reason); err != nil {
		return fmt.Errorf("complete verification: %w", err)
	}
	w.logger.LogWorkflowTransition(ctx, v.ID, string(verification.StatusProcessing), string(verification.StatusCompleted))
	return nil
}

func (w *IndividualWorkflow) loadInputs(ctx context.Context, verificationID string) (map[verification.DataType]map[string]interface{}, error) {
	rows, err := w.store.ListInputs(ctx, verificationID)
	if err != nil {
		return nil, err
	}
	inputs := make(map[verification.DataType]map[string]interface{}, len(rows))
	for _, row := range rows {
		inputs[row.DataType] = row.Payload
	}
	return inputs, nil
}

// fanOut runs every agent concurrently and collects results in whatever
// order they complete, materializing panics/errors per agent rather than
// letting one agent's failure abort the others (spec.md §4.5 step 3).
func (w *IndividualWorkflow) fanOut(ctx context.Context, v *verification.Verification, inputs map[verification.DataType]map[string]interface{}) []verification.AgentResult {
	results := make([]verification.AgentResult, 0, len(w.agents))

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, a := range w.agents {
		wg.Add(1)
		go func(a agent.Agent) {
			defer wg.Done()
			in := agent.Input{Verification: v, Inputs: inputs}
			r := w.runner.Execute(ctx, a, in)
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(a)
	}
	wg.Wait()

	return results
}
