package workflow

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/llm"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/providers"
	"github.com/verifyengine/core/infrastructure/queue"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/agents/compilation"
)

type fakeStore struct {
	byID      map[string]*verification.Verification
	inputs    map[string][]*verification.VerificationInput
	results   map[string][]*verification.AgentResult
	links     map[string][]*verification.UboLink
	completed map[string]verification.Result
	failed    map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:      map[string]*verification.Verification{},
		inputs:    map[string][]*verification.VerificationInput{},
		results:   map[string][]*verification.AgentResult{},
		links:     map[string][]*verification.UboLink{},
		completed: map[string]verification.Result{},
		failed:    map[string]string{},
	}
}

func (f *fakeStore) CreateVerification(ctx context.Context, v *verification.Verification) error {
	f.byID[v.ID] = v
	return nil
}
func (f *fakeStore) GetVerification(ctx context.Context, id string) (*verification.Verification, error) {
	return f.byID[id], nil
}
func (f *fakeStore) MarkProcessing(ctx context.Context, id string) error {
	f.byID[id].Status = verification.StatusProcessing
	return nil
}
func (f *fakeStore) Complete(ctx context.Context, id string, result verification.Result, reason string) error {
	f.byID[id].Status = verification.StatusCompleted
	f.byID[id].Result = result
	f.byID[id].Reason = reason
	f.completed[id] = result
	return nil
}
func (f *fakeStore) Fail(ctx context.Context, id string, reason string) error {
	f.byID[id].Status = verification.StatusFailed
	f.byID[id].Reason = reason
	f.failed[id] = reason
	return nil
}
func (f *fakeStore) ListVerifications(ctx context.Context, filter verification.ListFilter, createdBefore *time.Time, lastID string, limit int) ([]*verification.Verification, error) {
	var out []*verification.Verification
	for _, v := range f.byID {
		if filter.Subject != "" && v.Subject != filter.Subject {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
func (f *fakeStore) AppendInput(ctx context.Context, input *verification.VerificationInput) error {
	f.inputs[input.VerificationID] = append(f.inputs[input.VerificationID], input)
	return nil
}
func (f *fakeStore) ListInputs(ctx context.Context, verificationID string) ([]*verification.VerificationInput, error) {
	return f.inputs[verificationID], nil
}
func (f *fakeStore) ListInputsByType(ctx context.Context, verificationID string, dataType verification.DataType) ([]*verification.VerificationInput, error) {
	return nil, nil
}
func (f *fakeStore) AppendAgentResult(ctx context.Context, result *verification.AgentResult) error {
	f.results[result.VerificationID] = append(f.results[result.VerificationID], result)
	return nil
}
func (f *fakeStore) ListAgentResults(ctx context.Context, verificationID string) ([]*verification.AgentResult, error) {
	return f.results[verificationID], nil
}
func (f *fakeStore) CreateUboLink(ctx context.Context, link *verification.UboLink) error {
	f.links[link.ParentVerificationID] = append(f.links[link.ParentVerificationID], link)
	return nil
}
func (f *fakeStore) ListUboLinks(ctx context.Context, parentVerificationID string) ([]*verification.UboLink, error) {
	return f.links[parentVerificationID], nil
}

type fakeDispatcher struct {
	enqueued []string
}

func (d *fakeDispatcher) Enqueue(ctx context.Context, jobType string, payload interface{}) (*queue.Job, error) {
	d.enqueued = append(d.enqueued, jobType)
	return &queue.Job{ID: "job-1", Type: jobType}, nil
}

type fakeRecords struct{ err error }

func (f *fakeRecords) GetInquiryID(ctx context.Context, userID, kind string) (string, error) {
	return "inq1", f.err
}
func (f *fakeRecords) GetFraudScores(ctx context.Context, userID string) (*providers.FraudScore, error) {
	return &providers.FraudScore{}, nil
}
func (f *fakeRecords) GetBusinessRecord(ctx context.Context, businessID string) (*providers.BusinessRecord, error) {
	return &providers.BusinessRecord{Name: "Acme Corp", GoodStanding: true}, nil
}
func (f *fakeRecords) GetBusinessOwners(ctx context.Context, businessID string) ([]providers.BusinessOwner, error) {
	return []providers.BusinessOwner{
		{UserID: "u-ubo-1", Name: "Jane Doe", Percent: 50},
		{UserID: "", Name: "No Id Owner", Percent: 10},
	}, nil
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

type fakeLlm struct{ response string }

func (f *fakeLlm) Invoke(ctx context.Context, prompt string, imageData []byte) (string, error) {
	return f.response, nil
}
func (f *fakeLlm) ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error {
	if err := json.Unmarshal([]byte(f.response), out); err != nil {
		return &llm.ParseError{RawResponse: f.response, Err: err}
	}
	return nil
}

type stubAgent struct {
	agentType string
	result    verification.AgentResult
}

func (s *stubAgent) Type() string { return s.agentType }
func (s *stubAgent) Run(ctx context.Context, input agent.Input) (verification.AgentResult, error) {
	return s.result, nil
}

func testLogger() *logging.Logger {
	return logging.New("verification-engine-test", "error", "json")
}

func TestIndividualWorkflow_HappyPath(t *testing.T) {
	store := newFakeStore()
	v := &verification.Verification{ID: "v1", Subject: verification.SubjectIndividual, UserID: "u1", Status: verification.StatusQueued}
	store.byID[v.ID] = v

	acquisition := compilation.NewDataAcquisitionAgent(&fakeRecords{}, &fakeIdProvider{}, &fakeFraudProvider{}, store)
	agents := []agent.Agent{&stubAgent{agentType: "InitialDiligenceAgent", result: verification.AgentResult{Status: verification.AgentStatusSuccess}}}
	compile := compilation.NewResultCompilationAgent(store, &fakeLlm{response: `{"verification_result":"passed","reasoning":"ok","summary":"ok"}`})

	wf := NewIndividualWorkflow(store, testLogger(), acquisition, agents, compile)
	err := wf.Run(context.Background(), v.ID)
	require.NoError(t, err)

	assert.Equal(t, verification.StatusCompleted, v.Status)
	assert.Equal(t, verification.ResultPassed, v.Result)
	require.Len(t, store.results["v1"], 3) // acquisition + stub agent + compilation
}

func TestIndividualWorkflow_AcquisitionFailureStopsWorkflow(t *testing.T) {
	store := newFakeStore()
	v := &verification.Verification{ID: "v1", Subject: verification.SubjectIndividual, UserID: "u1", Status: verification.StatusQueued}
	store.byID[v.ID] = v

	acquisition := compilation.NewDataAcquisitionAgent(&fakeRecords{err: assert.AnError}, &fakeIdProvider{}, &fakeFraudProvider{}, store)
	compile := compilation.NewResultCompilationAgent(store, &fakeLlm{})

	wf := NewIndividualWorkflow(store, testLogger(), acquisition, nil, compile)
	err := wf.Run(context.Background(), v.ID)
	require.NoError(t, err)

	assert.Equal(t, verification.StatusFailed, v.Status)
	assert.Equal(t, "Data acquisition failed", v.Reason)
	require.Len(t, store.results["v1"], 1)
}

// TestIndividualWorkflow_UnparsableCompilationReachesTerminalState guards
// the Terminality property (spec.md §8): a malformed compilation LLM
// response must never leave the verification stuck in processing.
func TestIndividualWorkflow_UnparsableCompilationReachesTerminalState(t *testing.T) {
	store := newFakeStore()
	v := &verification.Verification{ID: "v1", Subject: verification.SubjectIndividual, UserID: "u1", Status: verification.StatusQueued}
	store.byID[v.ID] = v

	acquisition := compilation.NewDataAcquisitionAgent(&fakeRecords{}, &fakeIdProvider{}, &fakeFraudProvider{}, store)
	agents := []agent.Agent{&stubAgent{agentType: "InitialDiligenceAgent", result: verification.AgentResult{Status: verification.AgentStatusSuccess}}}
	compile := compilation.NewResultCompilationAgent(store, &fakeLlm{response: "not json at all"})

	wf := NewIndividualWorkflow(store, testLogger(), acquisition, agents, compile)
	err := wf.Run(context.Background(), v.ID)
	require.NoError(t, err)

	assert.NotEqual(t, verification.StatusProcessing, v.Status, "must reach a terminal state, not stick in processing")
	assert.Equal(t, verification.StatusCompleted, v.Status)
	assert.Equal(t, verification.ResultFailed, v.Result)
}

func TestBusinessWorkflow_EnumeratesAndLinksUbosSkippingMissingUserID(t *testing.T) {
	origInterval, origDeadline := uboJoinPollInterval, uboJoinDeadline
	uboJoinPollInterval = time.Millisecond
	uboJoinDeadline = 5 * time.Millisecond
	defer func() { uboJoinPollInterval, uboJoinDeadline = origInterval, origDeadline }()

	store := newFakeStore()
	v := &verification.Verification{ID: "bv1", Subject: verification.SubjectBusiness, BusinessID: "b1", Status: verification.StatusQueued}
	store.byID[v.ID] = v

	acquisition := compilation.NewBusinessDataAcquisitionAgent(&fakeRecords{}, &fakeIdProvider{}, &fakeRegistryProvider{}, store)
	agents := []agent.Agent{&stubAgent{agentType: "NormalDiligenceAgent", result: verification.AgentResult{Status: verification.AgentStatusSuccess}}}
	compile := compilation.NewBusinessResultCompilationAgent(store, &fakeLlm{response: `{"verification_result":"passed","reasoning":"ok","summary":"ok"}`})
	dispatcher := &fakeDispatcher{}

	wf := NewBusinessWorkflow(store, testLogger(), dispatcher, acquisition, agents, compile)

	// The one valid UBO's child verification is never advanced past `queued`,
	// so the join must hit its (shrunk) deadline rather than hang; a timeout
	// must not fail the parent (spec.md §4.5 step 5).
	err := wf.Run(context.Background(), v.ID)
	require.NoError(t, err)

	require.Len(t, store.links["bv1"], 1, "the UBO without a user id must be skipped")
	assert.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, JobTypeIndividual, dispatcher.enqueued[0])

	childID := store.links["bv1"][0].ChildVerificationID
	child := store.byID[childID]
	require.NotNil(t, child)
	assert.Equal(t, verification.StatusQueued, child.Status, "join timeout leaves the child's last-known status untouched")

	assert.Equal(t, verification.StatusCompleted, v.Status, "join timeout does not fail the parent")
	assert.Equal(t, verification.ResultPassed, v.Result)
}
