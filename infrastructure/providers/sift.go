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

// SiftFraudProvider implements FraudProvider against the Sift Science score
// API, the fraud-scoring vendor named in the original's app/integrations/sift.py.
// Circuit-broken per infrastructure/resilience.
type SiftFraudProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
}

func NewSiftFraudProvider(apiKey string) *SiftFraudProvider {
	return &SiftFraudProvider{
		apiKey:     apiKey,
		baseURL:    "https://api.sift.com/v205",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		breaker:    resilience.New(resilience.DefaultConfig()),
	}
}

func (s *SiftFraudProvider) GetUserScore(ctx context.Context, userID string) (*FraudScore, error) {
	endpoint := fmt.Sprintf("%s/score/%s?api_key=%s", s.baseURL, url.PathEscape(userID), s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build sift request: %w", err)
	}

	var resp *http.Response
	err = s.breaker.Execute(ctx, func() error {
		var doErr error
		resp, doErr = s.httpClient.Do(req)
		return doErr
	})
	if err != nil {
		return nil, fmt.Errorf("sift get_user_score: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sift get_user_score: status %d", resp.StatusCode)
	}

	var body siftScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sift score: %w", err)
	}

	return &FraudScore{
		Score:             body.Scores.PaymentAbuse.Score * 100,
		PaymentAbuseScore: body.Scores.PaymentAbuse.Score * 100,
		AccountAbuseScore: body.Scores.AccountAbuse.Score * 100,
		ContentAbuseScore: body.Scores.ContentAbuse.Score * 100,
		Network:           map[string]interface{}{"latest_labels": body.LatestLabels},
	}, nil
}

type siftScoreResponse struct {
	Scores struct {
		PaymentAbuse struct{ Score float64 `json:"score"` } `json:"payment_abuse"`
		AccountAbuse struct{ Score float64 `json:"score"` } `json:"account_abuse"`
		ContentAbuse struct{ Score float64 `json:"score"` } `json:"content_abuse"`
	} `json:"scores"`
	LatestLabels map[string]interface{} `json:"latest_labels"`
}
