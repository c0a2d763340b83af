package individual

import (
	"context"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/providers"
	"github.com/verifyengine/core/internal/agent"
)

// OfacVerificationAgent calls SanctionsProvider.SearchEntity with
// name/address derived in precedence order (persisted subject data ->
// provider fields -> fallback), analyzes the matches, and adds a
// standalone country-sanctions check, grounded on
// app/agents/kyc/ofac.py.
type OfacVerificationAgent struct {
	sanctions providers.SanctionsProvider
}

func NewOfacVerificationAgent(sanctions providers.SanctionsProvider) *OfacVerificationAgent {
	return &OfacVerificationAgent{sanctions: sanctions}
}

func (a *OfacVerificationAgent) Type() string { return "OfacVerificationAgent" }

func (a *OfacVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	name := firstNonEmpty(
		in.GetString(verification.DataTypeUser, "name"),
		in.GetString(verification.DataTypeUser, "persona_name"),
		"",
	)

	address, _ := in.Get(verification.DataTypeUser, "address").(map[string]interface{})
	personaAddress, _ := in.Get(verification.DataTypeUser, "persona_address").(map[string]interface{})

	street := firstNonEmpty(addrField(address, "street"), addrField(personaAddress, "street"), "")
	city := firstNonEmpty(addrField(address, "city"), addrField(personaAddress, "city"), "")
	state := firstNonEmpty(addrField(address, "state"), addrField(personaAddress, "state"), "")
	zip := firstNonEmpty(addrField(address, "zip"), addrField(personaAddress, "zip"), "")
	country := firstNonEmpty(addrField(address, "country"), addrField(personaAddress, "country"), "")

	if name == "" {
		return verification.AgentResult{
			Status:  verification.AgentStatusWarning,
			Details: "no name available for OFAC search",
			Checks: []verification.Check{
				{Name: "OFAC Sanctions List Match", Status: verification.CheckNotApplicable, Details: "no subject name on file"},
			},
		}, nil
	}

	hits, err := a.sanctions.SearchEntity(ctx, name, street, city, state, zip, country)
	if err != nil {
		return verification.AgentResult{}, fmt.Errorf("ofac search_entity: %w", err)
	}

	analysis := a.sanctions.Analyze(hits)

	matchStatus := verification.CheckPassed
	if analysis.TotalMatches > 0 {
		matchStatus = verification.CheckFailed
	}

	checks := []verification.Check{
		{
			Name:    "OFAC Sanctions List Match",
			Status:  matchStatus,
			Details: fmt.Sprintf("found %d potential matches, risk level: %s", analysis.TotalMatches, analysis.RiskLevel),
			Metadata: map[string]interface{}{
				"total_matches": analysis.TotalMatches,
				"risk_level":    analysis.RiskLevel,
				"sources":       analysis.Sources,
			},
		},
		{
			Name:    "Country Sanctions Check",
			Status:  boolToCheckStatus(!isSanctionedCountry(strings.ToUpper(country))),
			Details: fmt.Sprintf("country: %s", country),
		},
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: fmt.Sprintf("OFAC verification completed, risk level: %s", analysis.RiskLevel),
		Checks:  checks,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func addrField(addr map[string]interface{}, field string) string {
	if addr == nil {
		return ""
	}
	v, _ := addr[field].(string)
	return v
}
