package business

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/docpipeline"
	"github.com/verifyengine/core/infrastructure/providers"
)

func inputWithBusiness(payload map[string]interface{}) agent.Input {
	return agent.Input{
		Verification: &verification.Verification{ID: "v1"},
		Inputs: map[verification.DataType]map[string]interface{}{
			verification.DataTypeBusiness: payload,
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

func TestIrsMatchAgent_InvalidTaxIDFormatFails(t *testing.T) {
	in := inputWithBusiness(map[string]interface{}{
		"tax_id":          "12-34",
		"tax_id_verified": true,
		"good_standing":   true,
	})

	result, err := NewIrsMatchAgent().Run(context.Background(), in)
	require.NoError(t, err)

	check := findCheck(result.Checks, "Tax ID Format Validation")
	require.NotNil(t, check)
	assert.Equal(t, verification.CheckFailed, check.Status)
}

func TestSosFilingsAgent_StaleFilingFails(t *testing.T) {
	old := "2020-01-01T00:00:00Z"
	in := inputWithBusiness(map[string]interface{}{
		"sos_filing_status":  "active",
		"incorporation_date": "2010-01-01T00:00:00Z",
		"last_filing_date":   old,
	})

	result, err := NewSosFilingsAgent().Run(context.Background(), in)
	require.NoError(t, err)

	check := findCheck(result.Checks, "Recent Filings")
	require.NotNil(t, check)
	assert.Equal(t, verification.CheckFailed, check.Status)
}

func TestEinLetterAgent_MatchingEinPasses(t *testing.T) {
	in := agent.Input{
		Verification: &verification.Verification{ID: "v1"},
		Inputs: map[verification.DataType]map[string]interface{}{
			verification.DataTypeBusiness: {"business_name": "Acme Corp", "tax_id": "12-3456789"},
		},
		Documents: []*docpipeline.ProcessedDocument{
			{
				DocumentRef:    providers.DocumentRef{DocumentID: "doc1"},
				Classification: docpipeline.Classification{Kind: docpipeline.KindEinLetter, Confidence: 0.9},
				Fields:         map[string]interface{}{"ein": "12-3456789", "business_name": "Acme Corp"},
			},
		},
	}

	result, err := NewEinLetterAgent().Run(context.Background(), in)
	require.NoError(t, err)

	check := findCheck(result.Checks, "EIN Number Verification")
	require.NotNil(t, check)
	assert.Equal(t, verification.CheckPassed, check.Status)
}

func TestEinLetterAgent_NoDocumentsIsWarning(t *testing.T) {
	in := agent.Input{Verification: &verification.Verification{ID: "v1"}}
	result, err := NewEinLetterAgent().Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, verification.AgentStatusWarning, result.Status)
}
