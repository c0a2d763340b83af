package individual

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// selfieMatchThreshold is the original's hard-coded pass threshold in
// app/agents/kyc/id_selfie.py.
const selfieMatchThreshold = 0.7

// IdSelfieVerificationAgent checks the selfie-to-ID confidence score the
// provider returns against a fixed threshold.
type IdSelfieVerificationAgent struct{}

func NewIdSelfieVerificationAgent() *IdSelfieVerificationAgent { return &IdSelfieVerificationAgent{} }

func (a *IdSelfieVerificationAgent) Type() string { return "IdSelfieVerificationAgent" }

func (a *IdSelfieVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	confidence, _ := in.Get(verification.DataTypeUser, "selfie_match_confidence").(float64)

	status := verification.CheckFailed
	if confidence >= selfieMatchThreshold {
		status = verification.CheckPassed
	}

	check := verification.Check{
		Name:    "Selfie Match",
		Status:  status,
		Details: fmt.Sprintf("confidence=%.2f threshold=%.2f", confidence, selfieMatchThreshold),
		Metadata: map[string]interface{}{
			"confidence": confidence,
		},
	}

	resultStatus := verification.AgentStatusSuccess
	if status == verification.CheckFailed {
		resultStatus = verification.AgentStatusWarning
	}

	return verification.AgentResult{
		Status:  resultStatus,
		Details: "selfie verification completed",
		Checks:  []verification.Check{check},
	}, nil
}
