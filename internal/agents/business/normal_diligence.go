package business

import (
	"context"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// NormalDiligenceAgent checks business/industry type against banned lists,
// cross-validates against the registry, matches the UBO name against the
// EIN-owner name on file, and checks the registered country against the
// sanctions list, grounded on app/agents/kyb/normal_diligence.py.
type NormalDiligenceAgent struct{}

func NewNormalDiligenceAgent() *NormalDiligenceAgent { return &NormalDiligenceAgent{} }

func (a *NormalDiligenceAgent) Type() string { return "NormalDiligenceAgent" }

func (a *NormalDiligenceAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	businessType := strings.ToLower(in.GetString(verification.DataTypeBusiness, "business_type"))
	industryType := strings.ToLower(in.GetString(verification.DataTypeBusiness, "industry_type"))
	uboName := in.GetString(verification.DataTypeBusiness, "ubo_name")
	einOwnerName := in.GetString(verification.DataTypeBusiness, "ein_owner_name")
	registryType, _ := in.Get(verification.DataTypeBusiness, "registry_business_type").(string)

	address, _ := in.Get(verification.DataTypeBusiness, "address").(map[string]interface{})
	country := ""
	if address != nil {
		country, _ = address["country"].(string)
	}

	typeMatch := strings.EqualFold(businessType, registryType)
	uboMatch := strings.EqualFold(strings.TrimSpace(uboName), strings.TrimSpace(einOwnerName))
	countryBanned := contains(bannedCountries, strings.ToLower(country))

	checks := []verification.Check{
		{
			Name:    "Business Type",
			Status:  boolToCheckStatus(!contains(bannedBusinessTypes, businessType)),
			Details: fmt.Sprintf("business type: %s, match with registry: %v", businessType, typeMatch),
		},
		{
			Name:    "Industry Type",
			Status:  boolToCheckStatus(!contains(bannedIndustries, industryType)),
			Details: fmt.Sprintf("industry type: %s", industryType),
		},
		{
			Name:    "KYC/UBO Information",
			Status:  boolToCheckStatus(uboMatch),
			Details: fmt.Sprintf("UBO name: %s, EIN owner name: %s, match: %v", uboName, einOwnerName, uboMatch),
		},
		{
			Name:    "Banned Geographics",
			Status:  boolToCheckStatus(!countryBanned),
			Details: fmt.Sprintf("business country: %s", country),
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
		Details: "normal diligence checks completed",
		Checks:  checks,
	}, nil
}

func boolToCheckStatus(passed bool) verification.CheckStatus {
	if passed {
		return verification.CheckPassed
	}
	return verification.CheckFailed
}
