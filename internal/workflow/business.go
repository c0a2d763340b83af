package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/providers"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/agents/compilation"
)

// uboJoinPollInterval and uboJoinDeadline are package vars, not consts, so
// tests can shrink them rather than waiting out a real 30-minute deadline.
var (
	uboJoinPollInterval = 30 * time.Second
	uboJoinDeadline     = 30 * time.Minute
)

// SetUboJoinTiming overrides the UBO join poll interval and deadline, for
// entry points that source them from configuration (UBO_POLL_INTERVAL,
// UBO_JOIN_DEADLINE). Values <= 0 are ignored and leave the default in place.
func SetUboJoinTiming(pollInterval, deadline time.Duration) {
	if pollInterval > 0 {
		uboJoinPollInterval = pollInterval
	}
	if deadline > 0 {
		uboJoinDeadline = deadline
	}
}

// JobTypeIndividual is the queue job type the business workflow enqueues for
// each UBO child it creates.
const JobTypeIndividual = "verification.individual"

// BusinessWorkflow runs the business-subject state machine: mark
// processing, business data acquisition, UBO child fan-out, peer agent
// fan-out, join on UBO children, compile, per spec.md §4.5.
type BusinessWorkflow struct {
	store       verification.Store
	logger      *logging.Logger
	dispatcher  Dispatcher
	acquisition *compilation.BusinessDataAcquisitionAgent
	agents      []agent.Agent
	compile     *compilation.BusinessResultCompilationAgent
	runner      *agent.Runner
}

func NewBusinessWorkflow(
	store verification.Store,
	logger *logging.Logger,
	dispatcher Dispatcher,
	acquisition *compilation.BusinessDataAcquisitionAgent,
	agents []agent.Agent,
	compile *compilation.BusinessResultCompilationAgent,
) *BusinessWorkflow {
	return &BusinessWorkflow{
		store:       store,
		logger:      logger,
		dispatcher:  dispatcher,
		acquisition: acquisition,
		agents:      agents,
		compile:     compile,
		runner:      agent.NewRunner(logger),
	}
}

func (w *BusinessWorkflow) Run(ctx context.Context, verificationID string) error {
	v, err := w.store.GetVerification(ctx, verificationID)
	if err != nil {
		return fmt.Errorf("load verification %s: %w", verificationID, err)
	}

	if err := w.store.MarkProcessing(ctx, v.ID); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	w.logger.LogWorkflowTransition(ctx, v.ID, string(verification.StatusQueued), string(verification.StatusProcessing))

	acquisitionResult, owners := w.acquisition.Run(ctx, v)
	acquisitionResult.AgentType = w.acquisition.Type()
	acquisitionResult.VerificationID = v.ID
	if err := w.store.AppendAgentResult(ctx, &acquisitionResult); err != nil {
		return fmt.Errorf("persist data acquisition result: %w", err)
	}
	if acquisitionResult.Status == verification.AgentStatusError {
		return w.store.Fail(ctx, v.ID, "Data acquisition failed")
	}

	if err := w.createUboChildren(ctx, v, owners); err != nil {
		return fmt.Errorf("create ubo children: %w", err)
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

	w.joinUboChildren(ctx, v.ID)

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

// createUboChildren implements spec.md §4.5 step 3: for every UBO with a
// usable user id, create a queued child Verification, commit a UboLink, and
// only then enqueue the child job so crash-recovery tooling never observes
// an enqueued job without a corresponding link row. UBOs without a user id
// are skipped with a warning log; the parent workflow still proceeds.
func (w *BusinessWorkflow) createUboChildren(ctx context.Context, parent *verification.Verification, owners []providers.BusinessOwner) error {
	for _, owner := range owners {
		if owner.UserID == "" {
			w.logger.Warn(ctx, "ubo record lacks a user id, skipping", map[string]interface{}{
				"parent_verification_id": parent.ID,
				"ubo_name":               owner.Name,
			})
			continue
		}

		child := &verification.Verification{
			ID:        uuid.NewString(),
			Subject:   verification.SubjectIndividual,
			UserID:    owner.UserID,
			Status:    verification.StatusQueued,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := w.store.CreateVerification(ctx, child); err != nil {
			return fmt.Errorf("create ubo child verification for %s: %w", owner.UserID, err)
		}

		if err := w.store.CreateUboLink(ctx, &verification.UboLink{
			ParentVerificationID: parent.ID,
			UboUserID:            owner.UserID,
			ChildVerificationID:  child.ID,
			CreatedAt:            time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("create ubo link for %s: %w", owner.UserID, err)
		}

		if err := w.store.AppendInput(ctx, &verification.VerificationInput{
			VerificationID: child.ID,
			DataType:       verification.DataTypeAdditionalData,
			Payload: verification.NormalizePayload(map[string]interface{}{
				"ubo_info": map[string]interface{}{
					"parent_business_id":     parent.BusinessID,
					"parent_verification_id": parent.ID,
				},
			}),
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("persist ubo_info input for %s: %w", owner.UserID, err)
		}

		if _, err := w.dispatcher.Enqueue(ctx, JobTypeIndividual, map[string]interface{}{
			"verification_id": child.ID,
		}); err != nil {
			return fmt.Errorf("enqueue ubo child job for %s: %w", owner.UserID, err)
		}
	}
	return nil
}

func (w *BusinessWorkflow) loadInputs(ctx context.Context, verificationID string) (map[verification.DataType]map[string]interface{}, error) {
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

func (w *BusinessWorkflow) fanOut(ctx context.Context, v *verification.Verification, inputs map[verification.DataType]map[string]interface{}) []verification.AgentResult {
	results := make([]verification.AgentResult, len(w.agents))

	var wg sync.WaitGroup
	for i, a := range w.agents {
		wg.Add(1)
		go func(i int, a agent.Agent) {
			defer wg.Done()
			in := agent.Input{Verification: v, Inputs: inputs}
			results[i] = w.runner.Execute(ctx, a, in)
		}(i, a)
	}
	wg.Wait()

	return results
}

// joinUboChildren polls every 30s until all UBO children for parent are
// terminal or the 30-minute deadline elapses, whichever comes first. A
// timeout is not an error: compilation proceeds with whatever child
// statuses exist (spec.md §4.5 step 5).
func (w *BusinessWorkflow) joinUboChildren(ctx context.Context, parentVerificationID string) {
	links, err := w.store.ListUboLinks(ctx, parentVerificationID)
	if err != nil || len(links) == 0 {
		return
	}

	deadline := time.Now().Add(uboJoinDeadline)
	ticker := time.NewTicker(uboJoinPollInterval)
	defer ticker.Stop()

	for {
		if w.allTerminal(ctx, links) {
			return
		}
		if time.Now().After(deadline) {
			w.logger.LogWorkflowTransition(ctx, parentVerificationID, "ubo_join_waiting", "ubo_join_timeout")
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *BusinessWorkflow) allTerminal(ctx context.Context, links []*verification.UboLink) bool {
	for _, link := range links {
		child, err := w.store.GetVerification(ctx, link.ChildVerificationID)
		if err != nil {
			return false
		}
		if child.Status != verification.StatusCompleted && child.Status != verification.StatusFailed {
			return false
		}
	}
	return true
}
