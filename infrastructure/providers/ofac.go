package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/verifyengine/core/infrastructure/resilience"
)

// OfacSanctionsProvider implements SanctionsProvider against the OFAC
// sanctions-list search API named in the original's app/integrations/ofac.py.
// Analyze reproduces the original's exact-match-vs-any-match risk banding
// (SPEC_FULL.md §D.5). Circuit-broken per infrastructure/resilience.
type OfacSanctionsProvider struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

func NewOfacSanctionsProvider() *OfacSanctionsProvider {
	return &OfacSanctionsProvider{
		baseURL:    "https://sanctionssearch.ofac.treas.gov/api/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    resilience.New(resilience.DefaultConfig()),
	}
}

func (o *OfacSanctionsProvider) SearchEntity(ctx context.Context, name, addr, city, state, zip, country string) (*SanctionsHits, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("address", addr)
	q.Set("city", city)
	q.Set("state", state)
	q.Set("zip", zip)
	q.Set("country", country)

	endpoint := o.baseURL + "/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build ofac request: %w", err)
	}

	var resp *http.Response
	err = o.breaker.Execute(ctx, func() error {
		var doErr error
		resp, doErr = o.httpClient.Do(req)
		return doErr
	})
	if err != nil {
		return nil, fmt.Errorf("ofac search_entity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ofac search_entity: status %d", resp.StatusCode)
	}

	var body struct {
		Matches []map[string]interface{} `json:"matches"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode ofac response: %w", err)
	}

	return &SanctionsHits{QueryName: name, Matches: body.Matches}, nil
}

func (o *OfacSanctionsProvider) Analyze(hits *SanctionsHits) SanctionsAnalysis {
	if hits == nil {
		return SanctionsAnalysis{TotalMatches: 0, RiskLevel: "low"}
	}

	total := len(hits.Matches)
	sources := make([]string, 0, total)
	for _, m := range hits.Matches {
		if src, ok := m["source"].(string); ok {
			sources = append(sources, src)
		}
	}

	return SanctionsAnalysis{
		TotalMatches: total,
		RiskLevel:    riskLevelForQuery(hits),
		MatchDetails: hits.Matches,
		Sources:      dedupe(sources),
	}
}

// riskLevelForQuery reproduces analyze_search_results from the original's
// app/integrations/ofac.py: no matches is low, any match is medium, and an
// exact case-insensitive name match against the queried name is high. Match
// count beyond that distinction carries no extra weight.
func riskLevelForQuery(hits *SanctionsHits) string {
	if len(hits.Matches) == 0 {
		return "low"
	}

	queryName := strings.ToLower(hits.QueryName)
	for _, m := range hits.Matches {
		name, _ := m["name"].(string)
		if strings.ToLower(name) == queryName {
			return "high"
		}
	}
	return "medium"
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
