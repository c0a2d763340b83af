package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
)

type stubAgent struct {
	agentType string
	result    verification.AgentResult
	err       error
	panics    bool
}

func (s *stubAgent) Type() string { return s.agentType }

func (s *stubAgent) Run(ctx context.Context, input Input) (verification.AgentResult, error) {
	if s.panics {
		panic("boom")
	}
	return s.result, s.err
}

func testInput() Input {
	return Input{Verification: &verification.Verification{ID: "v1"}}
}

func TestExecute_SuccessPassesThrough(t *testing.T) {
	runner := NewRunner(nil)
	a := &stubAgent{agentType: "initial_diligence", result: verification.AgentResult{Status: verification.AgentStatusSuccess}}

	result := runner.Execute(context.Background(), a, testInput())
	assert.Equal(t, verification.AgentStatusSuccess, result.Status)
	assert.Equal(t, "initial_diligence", result.AgentType)
	assert.Equal(t, "v1", result.VerificationID)
}

func TestExecute_ErrorBecomesErrorResult(t *testing.T) {
	runner := NewRunner(nil)
	a := &stubAgent{agentType: "govt_id", err: errors.New("provider unavailable")}

	result := runner.Execute(context.Background(), a, testInput())
	assert.Equal(t, verification.AgentStatusError, result.Status)
	assert.Contains(t, result.Details, "provider unavailable")
}

func TestExecute_PanicBecomesErrorResult(t *testing.T) {
	runner := NewRunner(nil)
	a := &stubAgent{agentType: "aamva", panics: true}

	result := runner.Execute(context.Background(), a, testInput())
	assert.Equal(t, verification.AgentStatusError, result.Status)
	assert.Contains(t, result.Details, "boom")
}

func TestInput_GetStringDefaultsEmpty(t *testing.T) {
	in := Input{Inputs: map[verification.DataType]map[string]interface{}{
		verification.DataTypeUser: {"email": "a@example.com"},
	}}
	assert.Equal(t, "a@example.com", in.GetString(verification.DataTypeUser, "email"))
	assert.Equal(t, "", in.GetString(verification.DataTypeUser, "missing"))
	assert.Equal(t, "", in.GetString(verification.DataTypeBusiness, "ein"))
	require.Nil(t, in.Get(verification.DataTypeBusiness, "ein"))
}
