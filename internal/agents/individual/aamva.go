package individual

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// AamvaVerificationAgent checks the motor-vehicle database match the
// provider performed: identity, address, and license-status agreement.
type AamvaVerificationAgent struct{}

func NewAamvaVerificationAgent() *AamvaVerificationAgent { return &AamvaVerificationAgent{} }

func (a *AamvaVerificationAgent) Type() string { return "AamvaVerificationAgent" }

func (a *AamvaVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	aamva, _ := in.Get(verification.DataTypeUser, "aamva").(map[string]interface{})
	if aamva == nil {
		return verification.AgentResult{
			Status:  verification.AgentStatusWarning,
			Details: "no AAMVA data returned by provider",
			Checks: []verification.Check{
				{Name: "AAMVA Match", Status: verification.CheckNotApplicable, Details: "no AAMVA record available"},
			},
		}, nil
	}

	idMatch, _ := aamva["id_match"].(bool)
	addressMatch, _ := aamva["address_match"].(bool)
	licenseStatus, _ := aamva["license_status"].(string)
	licenseValid := licenseStatus == "valid" || licenseStatus == ""

	checks := []verification.Check{
		statusCheck("AAMVA Identity Match", idMatch, "identity did not match motor-vehicle record"),
		statusCheck("AAMVA Address Match", addressMatch, "address did not match motor-vehicle record"),
		{
			Name:    "AAMVA License Status",
			Status:  boolToCheckStatus(licenseValid),
			Details: fmt.Sprintf("license_status=%s", licenseStatus),
		},
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
			break
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "AAMVA verification completed",
		Checks:  checks,
	}, nil
}
