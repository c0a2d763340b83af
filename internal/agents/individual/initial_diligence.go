package individual

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// InitialDiligenceAgent emits the coarse first-pass checks against data
// already captured at acquisition time: identity, PEP/OFAC watchlist, and
// banned-geography flags, grounded on app/agents/kyc/initial_diligence.py.
type InitialDiligenceAgent struct{}

func NewInitialDiligenceAgent() *InitialDiligenceAgent { return &InitialDiligenceAgent{} }

func (a *InitialDiligenceAgent) Type() string { return "InitialDiligenceAgent" }

func (a *InitialDiligenceAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	watchlist, _ := in.Get(verification.DataTypeUser, "watchlist").(map[string]interface{})

	identityVerified, _ := in.Get(verification.DataTypeUser, "identity_verified").(bool)
	pepFlagged, _ := watchlist["pep"].(bool)
	ofacFlagged, _ := watchlist["ofac"].(bool)
	bannedGeo, _ := in.Get(verification.DataTypeUser, "banned_geography").(bool)

	checks := []verification.Check{
		statusCheck("Identity Verification", identityVerified, "identity not confirmed by provider"),
		{
			Name:    "Watchlist (PEP)",
			Status:  boolToCheckStatus(!pepFlagged),
			Details: fmt.Sprintf("pep_flagged=%v", pepFlagged),
		},
		{
			Name:    "Watchlist (OFAC)",
			Status:  boolToCheckStatus(!ofacFlagged),
			Details: fmt.Sprintf("ofac_flagged=%v", ofacFlagged),
		},
		{
			Name:    "Banned Geographies",
			Status:  boolToCheckStatus(!bannedGeo),
			Details: fmt.Sprintf("banned_geography=%v", bannedGeo),
		},
	}

	return verification.AgentResult{
		Status:  verification.AgentStatusSuccess,
		Details: "initial diligence completed",
		Checks:  checks,
	}, nil
}

func statusCheck(name string, ok bool, failDetail string) verification.Check {
	if ok {
		return verification.Check{Name: name, Status: verification.CheckPassed}
	}
	return verification.Check{Name: name, Status: verification.CheckFailed, Details: failDetail}
}

func boolToCheckStatus(passed bool) verification.CheckStatus {
	if passed {
		return verification.CheckPassed
	}
	return verification.CheckFailed
}
