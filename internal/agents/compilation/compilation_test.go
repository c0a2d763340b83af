package compilation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/llm"
	"github.com/verifyengine/core/infrastructure/providers"
)

type fakeStore struct {
	inputs  []*verification.VerificationInput
	results []*verification.AgentResult
	links   []*verification.UboLink
	byID    map[string]*verification.Verification
}

func newFakeStore() *fakeStore { return &fakeStore{byID: map[string]*verification.Verification{}} }

func (f *fakeStore) CreateVerification(ctx context.Context, v *verification.Verification) error {
	f.byID[v.ID] = v
	return nil
}
func (f *fakeStore) GetVerification(ctx context.Context, id string) (*verification.Verification, error) {
	return f.byID[id], nil
}
func (f *fakeStore) MarkProcessing(ctx context.Context, id string) error { return nil }
func (f *fakeStore) Complete(ctx context.Context, id string, result verification.Result, reason string) error {
	return nil
}
func (f *fakeStore) Fail(ctx context.Context, id string, reason string) error { return nil }
func (f *fakeStore) ListVerifications(ctx context.Context, filter verification.ListFilter, createdBefore *time.Time, lastID string, limit int) ([]*verification.Verification, error) {
	return nil, nil
}
func (f *fakeStore) AppendInput(ctx context.Context, input *verification.VerificationInput) error {
	f.inputs = append(f.inputs, input)
	return nil
}
func (f *fakeStore) ListInputs(ctx context.Context, verificationID string) ([]*verification.VerificationInput, error) {
	return f.inputs, nil
}
func (f *fakeStore) ListInputsByType(ctx context.Context, verificationID string, dataType verification.DataType) ([]*verification.VerificationInput, error) {
	return nil, nil
}
func (f *fakeStore) AppendAgentResult(ctx context.Context, result *verification.AgentResult) error {
	f.results = append(f.results, result)
	return nil
}
func (f *fakeStore) ListAgentResults(ctx context.Context, verificationID string) ([]*verification.AgentResult, error) {
	return f.results, nil
}
func (f *fakeStore) CreateUboLink(ctx context.Context, link *verification.UboLink) error {
	f.links = append(f.links, link)
	return nil
}
func (f *fakeStore) ListUboLinks(ctx context.Context, parentVerificationID string) ([]*verification.UboLink, error) {
	return f.links, nil
}

type fakeLlm struct {
	response string
}

func (f *fakeLlm) Invoke(ctx context.Context, prompt string, imageData []byte) (string, error) {
	return f.response, nil
}
func (f *fakeLlm) ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error {
	if err := json.Unmarshal([]byte(f.response), out); err != nil {
		return &llm.ParseError{RawResponse: f.response, Err: err}
	}
	return nil
}

type fakeRecords struct {
	inquiryID string
	err       error
}

func (f *fakeRecords) GetInquiryID(ctx context.Context, userID, kind string) (string, error) {
	return f.inquiryID, f.err
}
func (f *fakeRecords) GetFraudScores(ctx context.Context, userID string) (*providers.FraudScore, error) {
	return &providers.FraudScore{Score: 42, Network: map[string]interface{}{"risk_score": 10.0}}, nil
}
func (f *fakeRecords) GetBusinessRecord(ctx context.Context, businessID string) (*providers.BusinessRecord, error) {
	return &providers.BusinessRecord{Name: "Acme Corp", GoodStanding: true}, nil
}
func (f *fakeRecords) GetBusinessOwners(ctx context.Context, businessID string) ([]providers.BusinessOwner, error) {
	return []providers.BusinessOwner{{UserID: "u1", Name: "Jane Doe", Percent: 50}}, nil
}

type fakeIdProvider struct{}

func (f *fakeIdProvider) GetInquiry(ctx context.Context, inquiryID string) (*providers.InquiryRecord, error) {
	return &providers.InquiryRecord{InquiryID: inquiryID, Fields: map[string]interface{}{"name": "Jane Doe"}}, nil
}
func (f *fakeIdProvider) ExtractBusinessInfo(record *providers.InquiryRecord) providers.BusinessInfo {
	return providers.BusinessInfo{}
}
func (f *fakeIdProvider) GetAndStoreDocuments(ctx context.Context, inquiryID string) ([]providers.DocumentRef, error) {
	return nil, nil
}

type fakeFraudProvider struct{}

func (f *fakeFraudProvider) GetUserScore(ctx context.Context, userID string) (*providers.FraudScore, error) {
	return &providers.FraudScore{PaymentAbuseScore: 5}, nil
}

type fakeRegistryProvider struct{}

func (f *fakeRegistryProvider) Lookup(ctx context.Context, name, country string) (*providers.RegistryRecord, error) {
	return &providers.RegistryRecord{Active: true, EntityType: "llc"}, nil
}

func TestDataAcquisitionAgent_PersistsInput(t *testing.T) {
	store := newFakeStore()
	agent := NewDataAcquisitionAgent(&fakeRecords{inquiryID: "inq1"}, &fakeIdProvider{}, &fakeFraudProvider{}, store)

	result := agent.Run(context.Background(), &verification.Verification{ID: "v1", UserID: "u1"})
	require.Equal(t, verification.AgentStatusSuccess, result.Status)
	require.Len(t, store.inputs, 1)
	assert.Equal(t, verification.DataTypeUser, store.inputs[0].DataType)

	siftData, ok := store.inputs[0].Payload["sift_data"].(map[string]interface{})
	require.True(t, ok, "sift_data must be persisted so SiftVerificationAgent has a real payload to check")
	assert.Equal(t, 42.0, siftData["score"])
}

func TestDataAcquisitionAgent_ErrorBecomesErrorResult(t *testing.T) {
	store := newFakeStore()
	agent := NewDataAcquisitionAgent(&fakeRecords{err: assert.AnError}, &fakeIdProvider{}, &fakeFraudProvider{}, store)

	result := agent.Run(context.Background(), &verification.Verification{ID: "v1", UserID: "u1"})
	assert.Equal(t, verification.AgentStatusError, result.Status)
	assert.Empty(t, store.inputs)
}

func TestBusinessDataAcquisitionAgent_EnumeratesUbos(t *testing.T) {
	store := newFakeStore()
	agent := NewBusinessDataAcquisitionAgent(&fakeRecords{}, &fakeIdProvider{}, &fakeRegistryProvider{}, store)

	result, owners := agent.Run(context.Background(), &verification.Verification{ID: "v1", BusinessID: "b1"})
	require.Equal(t, verification.AgentStatusSuccess, result.Status)
	require.Len(t, owners, 1)
	require.Len(t, store.inputs, 1)
	ubos, _ := store.inputs[0].Payload["ubos"].([]interface{})
	assert.Len(t, ubos, 1)

	owner, ok := ubos[0].(map[string]interface{})
	require.True(t, ok)
	siftData, ok := owner["sift_data"].(map[string]interface{})
	require.True(t, ok, "each UBO with a user id must carry its own sift_data, per the original's ubo_sift_data")
	assert.Equal(t, 42.0, siftData["score"])
}

func TestResultCompilationAgent_PassedResult(t *testing.T) {
	store := newFakeStore()
	store.results = append(store.results, &verification.AgentResult{AgentType: "InitialDiligenceAgent", Status: verification.AgentStatusSuccess})

	llmClient := &fakeLlm{response: `{"verification_result":"passed","reasoning":"all checks passed","summary":"ok"}`}
	agent := NewResultCompilationAgent(store, llmClient)

	result, reason, err := agent.Compile(context.Background(), &verification.Verification{ID: "v1"})
	require.NoError(t, err)
	assert.Equal(t, verification.ResultPassed, result)
	assert.Equal(t, "all checks passed", reason)
	assert.Len(t, store.results, 2)
}

func TestResultCompilationAgent_UnparsableResponseStillReachesTerminalState(t *testing.T) {
	store := newFakeStore()
	llmClient := &fakeLlm{response: "not json at all"}
	agent := NewResultCompilationAgent(store, llmClient)

	result, reason, err := agent.Compile(context.Background(), &verification.Verification{ID: "v1"})
	require.NoError(t, err, "a malformed LLM response must never surface as a hard Compile error")
	assert.Equal(t, verification.ResultFailed, result)
	assert.NotEmpty(t, reason)

	require.Len(t, store.results, 1)
	persisted := store.results[0]
	assert.Equal(t, verification.AgentStatusError, persisted.Status)
	require.Len(t, persisted.Checks, 1)
	assert.Equal(t, "not json at all", persisted.Checks[0].Metadata["raw_response"])
	assert.NotEmpty(t, persisted.Checks[0].Metadata["parse_error"])
}
