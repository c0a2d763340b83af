// Package agent defines the shared agent execution contract every check
// (individual, business, and compilation) implements, grounded on the
// original's BaseAgent.run()/_run() pattern in app/agents/base.py: every
// agent returns an AgentResult, never an exception.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/llm"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/internal/docpipeline"
)

// Agent runs one check against a verification's already-acquired inputs and
// returns its contribution. It must never panic or return a bare error for
// an expected failure mode — only for conditions the workflow engine should
// itself treat as infrastructure-level (Run's own error return is reserved
// for that; check failures belong in the returned AgentResult).
type Agent interface {
	Type() string
	Run(ctx context.Context, input Input) (verification.AgentResult, error)
}

// Input is what the workflow engine hands every agent: the verification
// being checked and its already-persisted data-acquisition inputs, keyed by
// data type.
type Input struct {
	Verification *verification.Verification
	Inputs       map[verification.DataType]map[string]interface{}
	// Documents carries document-pipeline output for agents that integrate
	// it directly (EinLetterAgent, ArticlesIncorporationAgent). Populated by
	// the workflow from the acquisition phase's blob-stored documents.
	Documents []*docpipeline.ProcessedDocument
}

// Get returns a field from the named data type's payload, or nil.
func (in Input) Get(dataType verification.DataType, field string) interface{} {
	payload, ok := in.Inputs[dataType]
	if !ok {
		return nil
	}
	return payload[field]
}

// GetString is Get with a string type assertion, defaulting to "".
func (in Input) GetString(dataType verification.DataType, field string) string {
	v, _ := in.Get(dataType, field).(string)
	return v
}

// Runner executes an Agent and materializes any panic or infrastructure
// error into an error-status AgentResult rather than letting it escape,
// mirroring the original's blanket try/except around agent execution.
type Runner struct {
	logger *logging.Logger
}

func NewRunner(logger *logging.Logger) *Runner {
	return &Runner{logger: logger}
}

// Execute runs a as a best-effort call: panics and returned errors both
// become AgentStatusError results carrying the failure in Details, so one
// agent's infrastructure failure never aborts the rest of the fan-out.
func (r *Runner) Execute(ctx context.Context, a Agent, input Input) (result verification.AgentResult) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			result = errorResult(a.Type(), fmt.Errorf("panic: %v", p))
		}
		if r.logger != nil {
			r.logger.LogAgentRun(ctx, input.Verification.ID, a.Type(), string(result.Status), time.Since(start))
		}
	}()

	res, err := a.Run(ctx, input)
	if err != nil {
		return errorResult(a.Type(), err)
	}
	res.AgentType = a.Type()
	res.VerificationID = input.Verification.ID
	return res
}

func errorResult(agentType string, err error) verification.AgentResult {
	return verification.AgentResult{
		AgentType: agentType,
		Status:    verification.AgentStatusError,
		Details:   err.Error(),
		Checks: []verification.Check{{
			Name:    agentType,
			Status:  verification.CheckError,
			Details: err.Error(),
		}},
	}
}

// AnalyzeWithLLM is the shared helper agents call to get an LLM's natural
// language assessment of a check's evidence, bounded by the shared pool.
// The LLM is never the source of pass/fail truth — only of the Details
// string attached to the result, mirroring the original's analyze_with_llm.
func AnalyzeWithLLM(ctx context.Context, pool llm.Llm, prompt string) (string, error) {
	text, err := pool.Invoke(ctx, prompt, nil)
	if err != nil {
		return "", fmt.Errorf("analyze_with_llm: %w", err)
	}
	return text, nil
}
