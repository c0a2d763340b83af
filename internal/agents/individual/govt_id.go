package individual

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// GovtIdVerificationAgent emits one check per item in the fixed 14-item
// provider ID-check list, grounded on app/agents/kyc/govt_id.py. A check
// the provider didn't return is not_applicable rather than failed — a
// provider outage on one sub-check must not fail the whole document.
type GovtIdVerificationAgent struct{}

func NewGovtIdVerificationAgent() *GovtIdVerificationAgent { return &GovtIdVerificationAgent{} }

func (a *GovtIdVerificationAgent) Type() string { return "GovtIdVerificationAgent" }

func (a *GovtIdVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	providerChecks, _ := in.Get(verification.DataTypeUser, "govt_id_checks").(map[string]interface{})

	checks := make([]verification.Check, 0, len(govtIDCheckNames))
	overall := verification.AgentStatusSuccess
	for _, name := range govtIDCheckNames {
		raw, present := providerChecks[name]
		if !present {
			checks = append(checks, verification.Check{
				Name:   name,
				Status: verification.CheckNotApplicable,
			})
			continue
		}

		passed, _ := raw.(bool)
		status := verification.CheckPassed
		if !passed {
			status = verification.CheckFailed
			overall = verification.AgentStatusWarning
		}
		checks = append(checks, verification.Check{
			Name:    name,
			Status:  status,
			Details: fmt.Sprintf("provider_result=%v", raw),
		})
	}

	return verification.AgentResult{
		Status:  overall,
		Details: fmt.Sprintf("%d of %d government ID checks reported by provider", len(providerChecks), len(govtIDCheckNames)),
		Checks:  checks,
	}, nil
}
