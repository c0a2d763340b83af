package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_RiskBandingByMatchKind(t *testing.T) {
	provider := NewOfacSanctionsProvider()

	cases := []struct {
		name      string
		queryName string
		matches   []map[string]interface{}
		want      string
	}{
		{"no matches", "John Smith", nil, "low"},
		{
			"fuzzy matches only", "John Smith",
			[]map[string]interface{}{{"name": "Johnny Smithson", "source": "SDN"}},
			"medium",
		},
		{
			"exact case-insensitive match", "John Smith",
			[]map[string]interface{}{{"name": "john smith", "source": "SDN"}},
			"high",
		},
		{
			"exact match among several fuzzy ones", "John Smith",
			[]map[string]interface{}{
				{"name": "Johnny Smithson", "source": "SDN"},
				{"name": "John Smith", "source": "SDN"},
			},
			"high",
		},
	}

	for _, tc := range cases {
		hits := &SanctionsHits{QueryName: tc.queryName, Matches: tc.matches}
		analysis := provider.Analyze(hits)
		assert.Equal(t, tc.want, analysis.RiskLevel, tc.name)
		assert.Equal(t, len(tc.matches), analysis.TotalMatches, tc.name)
	}
}

func TestAnalyze_NilHitsIsLowRisk(t *testing.T) {
	provider := NewOfacSanctionsProvider()
	analysis := provider.Analyze(nil)
	assert.Equal(t, "low", analysis.RiskLevel)
	assert.Equal(t, 0, analysis.TotalMatches)
}

func TestAnalyze_DedupesSources(t *testing.T) {
	provider := NewOfacSanctionsProvider()
	hits := &SanctionsHits{QueryName: "Some Company", Matches: []map[string]interface{}{
		{"source": "SDN"},
		{"source": "sdn"},
		{"source": "Non-SDN"},
	}}

	analysis := provider.Analyze(hits)
	assert.Len(t, analysis.Sources, 2)
}
