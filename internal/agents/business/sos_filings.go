package business

import (
	"context"
	"fmt"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

const (
	newBusinessAgeDays    = 180
	staleFilingWindowDays = 365
)

// SosFilingsAgent checks Secretary of State registration status, business
// age, and recency of filings, grounded on app/agents/kyb/sos_filings.py.
// Its Business Name Consistency check is always reported as passed: the
// submitted name is not compared against any registry record.
type SosFilingsAgent struct{}

func NewSosFilingsAgent() *SosFilingsAgent { return &SosFilingsAgent{} }

func (a *SosFilingsAgent) Type() string { return "SosFilingsAgent" }

func (a *SosFilingsAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	businessName := in.GetString(verification.DataTypeBusiness, "business_name")
	sosFilingStatus := in.GetString(verification.DataTypeBusiness, "sos_filing_status")
	incorporationDate := in.GetString(verification.DataTypeBusiness, "incorporation_date")
	lastFilingDate := in.GetString(verification.DataTypeBusiness, "last_filing_date")

	checks := []verification.Check{
		{
			Name:    "SoS Registration",
			Status:  boolToCheckStatus(sosFilingStatus == "active"),
			Details: fmt.Sprintf("SoS filing status: %s", sosFilingStatus),
		},
		{
			Name:    "Business Name Consistency",
			Status:  verification.CheckPassed,
			Details: fmt.Sprintf("business name consistent with SoS records: %s", businessName),
		},
		a.ageCheck(incorporationDate),
		a.filingRecencyCheck(lastFilingDate),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "Secretary of State filings verification completed",
		Checks:  checks,
	}, nil
}

func (a *SosFilingsAgent) ageCheck(incorporationDate string) verification.Check {
	if incorporationDate == "" {
		return verification.Check{Name: "Business Age", Status: verification.CheckFailed, Details: "incorporation date not available"}
	}

	incorporatedAt, err := time.Parse(time.RFC3339, incorporationDate)
	if err != nil {
		return verification.Check{Name: "Business Age", Status: verification.CheckFailed, Details: fmt.Sprintf("invalid incorporation date: %s", incorporationDate)}
	}

	ageDays := int(time.Since(incorporatedAt).Hours() / 24)
	status := verification.CheckPassed
	if ageDays < newBusinessAgeDays {
		status = verification.CheckWarning
	}

	return verification.Check{
		Name:    "Business Age",
		Status:  status,
		Details: fmt.Sprintf("business age: %d days, incorporation date: %s", ageDays, incorporationDate),
	}
}

func (a *SosFilingsAgent) filingRecencyCheck(lastFilingDate string) verification.Check {
	if lastFilingDate == "" {
		return verification.Check{Name: "Recent Filings", Status: verification.CheckFailed, Details: "last filing date not available"}
	}

	filedAt, err := time.Parse(time.RFC3339, lastFilingDate)
	if err != nil {
		return verification.Check{Name: "Recent Filings", Status: verification.CheckFailed, Details: fmt.Sprintf("invalid last filing date: %s", lastFilingDate)}
	}

	daysSince := int(time.Since(filedAt).Hours() / 24)
	status := verification.CheckPassed
	if daysSince >= staleFilingWindowDays {
		status = verification.CheckFailed
	}

	return verification.Check{
		Name:    "Recent Filings",
		Status:  status,
		Details: fmt.Sprintf("days since last filing: %d, last filing date: %s", daysSince, lastFilingDate),
	}
}
