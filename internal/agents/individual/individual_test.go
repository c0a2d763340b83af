package individual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/providers"
	"github.com/verifyengine/core/internal/agent"
)

func inputWithUser(payload map[string]interface{}) agent.Input {
	return agent.Input{
		Verification: &verification.Verification{ID: "v1"},
		Inputs: map[verification.DataType]map[string]interface{}{
			verification.DataTypeUser: payload,
		},
	}
}

func findCheck(checks []verification.Check, name string) *verification.Check {
	for i := range checks {
		if checks[i].Name == name {
			return &checks[i]
		}
	}
	return nil
}

func TestLoginActivitiesAgent_ImpossibleTravel(t *testing.T) {
	tokyo := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	berlin := tokyo.Add(30 * time.Minute)

	in := inputWithUser(map[string]interface{}{
		"login_activities": []interface{}{
			map[string]interface{}{"location": "Tokyo", "device": "d1", "ip": "8.8.8.8", "success": true, "date": tokyo.Format(time.RFC3339)},
			map[string]interface{}{"location": "Berlin", "device": "d1", "ip": "8.8.4.4", "success": true, "date": berlin.Format(time.RFC3339)},
		},
	})

	result, err := NewLoginActivitiesAgent().Run(context.Background(), in)
	require.NoError(t, err)

	check := findCheck(result.Checks, "Login Location Analysis")
	require.NotNil(t, check)
	assert.Equal(t, verification.CheckFailed, check.Status)
}

func TestPaymentBehaviorAgent_RapidTransactions(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	in := inputWithUser(map[string]interface{}{
		"bank_accounts": []interface{}{
			map[string]interface{}{
				"verified": true,
				"last_transactions": []interface{}{
					map[string]interface{}{"amount": 6000.0, "date": base.Format(time.RFC3339)},
					map[string]interface{}{"amount": 100.0, "date": base.Add(3 * time.Minute).Format(time.RFC3339)},
					map[string]interface{}{"amount": 200.0, "date": base.Add(8 * time.Minute).Format(time.RFC3339)},
				},
			},
		},
		"fraud_score": map[string]interface{}{"payment_abuse": 10.0},
	})

	result, err := NewPaymentBehaviorAgent().Run(context.Background(), in)
	require.NoError(t, err)

	check := findCheck(result.Checks, "Transaction Pattern Analysis")
	require.NotNil(t, check)
	assert.Equal(t, verification.CheckFailed, check.Status)
}

func TestIdSelfieVerificationAgent_Threshold(t *testing.T) {
	passing := inputWithUser(map[string]interface{}{"selfie_match_confidence": 0.71})
	result, err := NewIdSelfieVerificationAgent().Run(context.Background(), passing)
	require.NoError(t, err)
	assert.Equal(t, verification.CheckPassed, result.Checks[0].Status)

	failing := inputWithUser(map[string]interface{}{"selfie_match_confidence": 0.5})
	result, err = NewIdSelfieVerificationAgent().Run(context.Background(), failing)
	require.NoError(t, err)
	assert.Equal(t, verification.CheckFailed, result.Checks[0].Status)
}

type fakeSanctionsProvider struct {
	hits *providers.SanctionsHits
}

func (f *fakeSanctionsProvider) SearchEntity(ctx context.Context, name, addr, city, state, zip, country string) (*providers.SanctionsHits, error) {
	return f.hits, nil
}

func (f *fakeSanctionsProvider) Analyze(hits *providers.SanctionsHits) providers.SanctionsAnalysis {
	total := 0
	if hits != nil {
		total = len(hits.Matches)
	}
	level := "low"
	if total >= 4 {
		level = "high"
	} else if total >= 2 {
		level = "medium"
	}
	return providers.SanctionsAnalysis{TotalMatches: total, RiskLevel: level}
}

func TestOfacVerificationAgent_SanctionedCountryFailsEvenWithNoMatches(t *testing.T) {
	provider := &fakeSanctionsProvider{hits: &providers.SanctionsHits{}}
	in := inputWithUser(map[string]interface{}{
		"name":    "Jane Doe",
		"address": map[string]interface{}{"country": "KP"},
	})

	result, err := NewOfacVerificationAgent(provider).Run(context.Background(), in)
	require.NoError(t, err)

	countryCheck := findCheck(result.Checks, "Country Sanctions Check")
	require.NotNil(t, countryCheck)
	assert.Equal(t, verification.CheckFailed, countryCheck.Status)
}

func TestOfacVerificationAgent_NoNameIsNotApplicable(t *testing.T) {
	provider := &fakeSanctionsProvider{}
	in := inputWithUser(map[string]interface{}{})

	result, err := NewOfacVerificationAgent(provider).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, verification.CheckNotApplicable, result.Checks[0].Status)
}

func TestGovtIdVerificationAgent_MissingChecksAreNotApplicable(t *testing.T) {
	in := inputWithUser(map[string]interface{}{
		"govt_id_checks": map[string]interface{}{"barcode_match": true},
	})

	result, err := NewGovtIdVerificationAgent().Run(context.Background(), in)
	require.NoError(t, err)
	assert.Len(t, result.Checks, len(govtIDCheckNames))

	found := findCheck(result.Checks, "expiration")
	require.NotNil(t, found)
	assert.Equal(t, verification.CheckNotApplicable, found.Status)
}
