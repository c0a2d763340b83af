package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/verifyengine/core/infrastructure/resilience"
)

// HTTPRegistryProvider implements RegistryProvider against a generic
// corporate-registry lookup API (state Secretary of State filings and
// equivalents). Circuit-broken per infrastructure/resilience so a stalled
// registry doesn't block every business data acquisition behind it.
type HTTPRegistryProvider struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

func NewHTTPRegistryProvider(baseURL string) *HTTPRegistryProvider {
	return &HTTPRegistryProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    resilience.New(resilience.DefaultConfig()),
	}
}

func (r *HTTPRegistryProvider) Lookup(ctx context.Context, name, country string) (*RegistryRecord, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("country", country)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/lookup?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request: %w", err)
	}

	var resp *http.Response
	err = r.breaker.Execute(ctx, func() error {
		var doErr error
		resp, doErr = r.httpClient.Do(req)
		return doErr
	})
	if err != nil {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry lookup: status %d", resp.StatusCode)
	}

	var record RegistryRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode registry record: %w", err)
	}
	return &record, nil
}
