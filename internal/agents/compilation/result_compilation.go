package compilation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/llm"
)

// compilationSchemaHint is the JSON shape every compilation prompt demands,
// per spec.md §4.3.
const compilationSchemaHint = `{"verification_result":"passed|failed","reasoning":"...","risk_factors":["..."],"confidence":"low|medium|high","summary":"..."}`

type compilationOutput struct {
	VerificationResult string   `json:"verification_result"`
	Reasoning          string   `json:"reasoning"`
	RiskFactors        []string `json:"risk_factors"`
	Confidence         string   `json:"confidence"`
	Summary            string   `json:"summary"`
}

// ResultCompilationAgent loads every prior AgentResult for an individual
// verification, asks the LLM to compile a final decision, persists that
// decision as the terminal AgentResult, and returns the terminal
// (result, reason) pair the workflow engine writes onto the Verification
// row, grounded on the original's workflow-service compilation step.
type ResultCompilationAgent struct {
	store verification.Store
	pool  llm.Llm
}

func NewResultCompilationAgent(store verification.Store, pool llm.Llm) *ResultCompilationAgent {
	return &ResultCompilationAgent{store: store, pool: pool}
}

func (a *ResultCompilationAgent) Type() string { return "ResultCompilationAgent" }

func (a *ResultCompilationAgent) Compile(ctx context.Context, v *verification.Verification) (verification.Result, string, error) {
	priorResults, err := a.store.ListAgentResults(ctx, v.ID)
	if err != nil {
		return "", "", fmt.Errorf("list agent results: %w", err)
	}

	var out compilationOutput
	prompt := compilationPrompt(priorResults)
	if err := a.pool.ExtractStructured(ctx, prompt, compilationSchemaHint, &out); err != nil {
		var parseErr *llm.ParseError
		if !errors.As(err, &parseErr) {
			return "", "", fmt.Errorf("compile verification result: %w", err)
		}
		return a.compileFromUnparsable(ctx, v, parseErr)
	}

	result := verification.ResultFailed
	if strings.EqualFold(out.VerificationResult, "passed") {
		result = verification.ResultPassed
	}

	if err := a.store.AppendAgentResult(ctx, &verification.AgentResult{
		VerificationID: v.ID,
		AgentType:      a.Type(),
		Status:         verification.AgentStatusSuccess,
		Details:        out.Summary,
	}); err != nil {
		return "", "", fmt.Errorf("persist compilation result: %w", err)
	}

	return result, out.Reasoning, nil
}

// compileFromUnparsable handles an unparsable LLM compilation response the
// way the original's extract_structured_data does: it never raises, it
// returns {"error": ..., "raw_text": ...} instead (app/utils/llm.py). Here
// that means persisting {raw_response, parse_error} on the terminal agent
// result and failing the verification outright, so a single malformed
// response still reaches a terminal state rather than propagating a bare
// error up through the workflow.
func (a *ResultCompilationAgent) compileFromUnparsable(ctx context.Context, v *verification.Verification, parseErr *llm.ParseError) (verification.Result, string, error) {
	reason := "automated compilation could not parse the model's response"
	if err := a.store.AppendAgentResult(ctx, &verification.AgentResult{
		VerificationID: v.ID,
		AgentType:      a.Type(),
		Status:         verification.AgentStatusError,
		Details:        reason,
		Checks: []verification.Check{{
			Name:    "Compilation Response Parse",
			Status:  verification.CheckError,
			Details: parseErr.Error(),
			Metadata: map[string]interface{}{
				"raw_response": parseErr.RawResponse,
				"parse_error":  parseErr.Err.Error(),
			},
		}},
	}); err != nil {
		return "", "", fmt.Errorf("persist compilation parse failure: %w", err)
	}
	return verification.ResultFailed, reason, nil
}

func compilationPrompt(results []*verification.AgentResult) string {
	var b strings.Builder
	b.WriteString("Compile a final verification decision from the following agent results. ")
	b.WriteString("Weigh any failed check heavily and any error result as inconclusive. ")
	for _, r := range results {
		fmt.Fprintf(&b, "\n- %s: status=%s, details=%s", r.AgentType, r.Status, r.Details)
		for _, c := range r.Checks {
			fmt.Fprintf(&b, "\n  * %s: %s", c.Name, c.Status)
		}
	}
	b.WriteString("\nRespond with a JSON object matching the required schema.")
	return b.String()
}
