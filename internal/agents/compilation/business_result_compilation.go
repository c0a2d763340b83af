package compilation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/llm"
)

// BusinessResultCompilationAgent is ResultCompilationAgent's business-flavor
// counterpart: it additionally loads the terminal state of every UBO child
// verification before compiling, per spec.md §4.3/§4.5.
type BusinessResultCompilationAgent struct {
	store verification.Store
	pool  llm.Llm
}

func NewBusinessResultCompilationAgent(store verification.Store, pool llm.Llm) *BusinessResultCompilationAgent {
	return &BusinessResultCompilationAgent{store: store, pool: pool}
}

func (a *BusinessResultCompilationAgent) Type() string { return "BusinessResultCompilationAgent" }

func (a *BusinessResultCompilationAgent) Compile(ctx context.Context, v *verification.Verification) (verification.Result, string, error) {
	priorResults, err := a.store.ListAgentResults(ctx, v.ID)
	if err != nil {
		return "", "", fmt.Errorf("list agent results: %w", err)
	}

	links, err := a.store.ListUboLinks(ctx, v.ID)
	if err != nil {
		return "", "", fmt.Errorf("list ubo links: %w", err)
	}

	ubos := make([]*verification.Verification, 0, len(links))
	for _, link := range links {
		child, err := a.store.GetVerification(ctx, link.ChildVerificationID)
		if err != nil {
			return "", "", fmt.Errorf("get ubo child verification %s: %w", link.ChildVerificationID, err)
		}
		ubos = append(ubos, child)
	}

	var out compilationOutput
	prompt := businessCompilationPrompt(priorResults, ubos)
	if err := a.pool.ExtractStructured(ctx, prompt, compilationSchemaHint, &out); err != nil {
		var parseErr *llm.ParseError
		if !errors.As(err, &parseErr) {
			return "", "", fmt.Errorf("compile business verification result: %w", err)
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

// compileFromUnparsable mirrors ResultCompilationAgent's handling of an
// unparsable LLM response: persist {raw_response, parse_error} on the
// terminal agent result and fail the verification, instead of propagating
// a bare error that would leave it stuck processing.
func (a *BusinessResultCompilationAgent) compileFromUnparsable(ctx context.Context, v *verification.Verification, parseErr *llm.ParseError) (verification.Result, string, error) {
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

func businessCompilationPrompt(results []*verification.AgentResult, ubos []*verification.Verification) string {
	var b strings.Builder
	b.WriteString("Compile a final business verification decision from the following agent results ")
	b.WriteString("and the terminal state of each beneficial owner's individual verification. ")
	b.WriteString("A failed UBO verification is a strong signal the business verification should fail.")
	for _, r := range results {
		fmt.Fprintf(&b, "\n- %s: status=%s, details=%s", r.AgentType, r.Status, r.Details)
	}
	for _, u := range ubos {
		fmt.Fprintf(&b, "\n- UBO %s: status=%s, result=%s, reason=%s", u.UserID, u.Status, u.Result, u.Reason)
	}
	b.WriteString("\nRespond with a JSON object matching the required schema.")
	return b.String()
}
