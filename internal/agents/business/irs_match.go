package business

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// IrsMatchAgent checks tax-ID format, the IRS-verified flag, name-match
// against the EIN record, and good-standing, grounded on
// app/agents/kyb/irs_match.py.
type IrsMatchAgent struct{}

func NewIrsMatchAgent() *IrsMatchAgent { return &IrsMatchAgent{} }

func (a *IrsMatchAgent) Type() string { return "IrsMatchAgent" }

func (a *IrsMatchAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	businessName := in.GetString(verification.DataTypeBusiness, "business_name")
	taxID := in.GetString(verification.DataTypeBusiness, "tax_id")
	taxIDVerified, _ := in.Get(verification.DataTypeBusiness, "tax_id_verified").(bool)
	einOwnerName := in.GetString(verification.DataTypeBusiness, "ein_owner_name")
	goodStanding, _ := in.Get(verification.DataTypeBusiness, "good_standing").(bool)

	digitsOnly := stripNonDigits(taxID)
	taxIDValid := taxID != "" && len(digitsOnly) == 9
	nameMatch := strings.EqualFold(strings.TrimSpace(businessName), strings.TrimSpace(einOwnerName))

	checks := []verification.Check{
		{
			Name:    "Tax ID Format Validation",
			Status:  boolToCheckStatus(taxIDValid),
			Details: fmt.Sprintf("tax ID: %s", taxID),
		},
		{
			Name:    "IRS Database Match",
			Status:  boolToCheckStatus(taxIDVerified),
			Details: fmt.Sprintf("tax ID verified with IRS database: %v", taxIDVerified),
		},
		{
			Name:    "Business Name Match",
			Status:  boolToCheckStatus(nameMatch),
			Details: fmt.Sprintf("submitted: %s, IRS: %s, match: %v", businessName, einOwnerName, nameMatch),
		},
		{
			Name:    "Tax Filing Status",
			Status:  boolToCheckStatus(goodStanding),
			Details: fmt.Sprintf("good standing with IRS: %v", goodStanding),
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
		Details: "IRS verification completed",
		Checks:  checks,
	}, nil
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
