package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/queue"
	"github.com/verifyengine/core/internal/workflow"
)

type fakeStore struct {
	byID    map[string]*verification.Verification
	inputs  map[string][]*verification.VerificationInput
	results map[string][]*verification.AgentResult
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:    map[string]*verification.Verification{},
		inputs:  map[string][]*verification.VerificationInput{},
		results: map[string][]*verification.AgentResult{},
	}
}

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
	return nil
}
func (f *fakeStore) ListAgentResults(ctx context.Context, verificationID string) ([]*verification.AgentResult, error) {
	return f.results[verificationID], nil
}
func (f *fakeStore) CreateUboLink(ctx context.Context, link *verification.UboLink) error { return nil }
func (f *fakeStore) ListUboLinks(ctx context.Context, parentVerificationID string) ([]*verification.UboLink, error) {
	return nil, nil
}

type fakeDispatcher struct {
	enqueued []string
	err      error
}

func (f *fakeDispatcher) Enqueue(ctx context.Context, jobType string, payload interface{}) (*queue.Job, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.enqueued = append(f.enqueued, jobType)
	return &queue.Job{ID: "job-1", Type: jobType}, nil
}

type fakeQueue struct {
	status queue.Status
	info   queue.Info
	err    error
}

func (f *fakeQueue) Status(ctx context.Context, jobID string) (queue.Status, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.status, nil
}

func (f *fakeQueue) Info(ctx context.Context) (queue.Info, error) {
	return f.info, nil
}

func testLogger() *logging.Logger {
	return logging.New("httpapi-test", "error", "json")
}

func newTestDeps() (Deps, *fakeStore, *fakeDispatcher, *fakeQueue) {
	store := newFakeStore()
	dispatcher := &fakeDispatcher{}
	q := &fakeQueue{status: queue.StatusQueued, info: queue.Info{Queued: 1, Healthy: true}}
	return Deps{Store: store, Dispatcher: dispatcher, Queue: q, Logger: testLogger()}, store, dispatcher, q
}

func TestHandleSubmitKYC_RejectsMissingUserID(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodPost, "/verify/kyc", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	handleSubmitKYC(deps)(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleSubmitKYC_EnqueuesAndPersists(t *testing.T) {
	deps, store, dispatcher, _ := newTestDeps()
	body := `{"user_id":"user-1","additional_data":{"phone":"+15551234"}}`
	req := httptest.NewRequest(http.MethodPost, "/verify/kyc", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	handleSubmitKYC(deps)(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.NotEmpty(t, resp.VerificationID)

	assert.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, workflow.JobTypeIndividual, dispatcher.enqueued[0])
	assert.Contains(t, store.byID, resp.VerificationID)
	assert.Len(t, store.inputs[resp.VerificationID], 1)
}

func TestHandleSubmitBusiness_RejectsMissingBusinessID(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodPost, "/verify/business", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()

	handleSubmitBusiness(deps)(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleGetStatus_NotFound(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/verify/status/missing", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()

	handleGetStatus(deps)(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleGetStatus_Found(t *testing.T) {
	deps, store, _, _ := newTestDeps()
	v := &verification.Verification{ID: "v-1", Status: verification.StatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.byID[v.ID] = v

	req := httptest.NewRequest(http.MethodGet, "/verify/status/v-1", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "v-1"})
	rec := httptest.NewRecorder()

	handleGetStatus(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "v-1", resp.VerificationID)
}

func TestHandleGetReport_RequiresAQueryParam(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/verify/report", nil)
	rec := httptest.NewRecorder()

	handleGetReport(deps)(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleGetReport_ByUserID(t *testing.T) {
	deps, store, _, _ := newTestDeps()
	v := &verification.Verification{
		ID: "v-1", Subject: verification.SubjectIndividual, UserID: "user-9",
		Status: verification.StatusCompleted, Result: verification.ResultPassed,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	store.byID[v.ID] = v
	store.results[v.ID] = []*verification.AgentResult{
		{AgentType: "identity", Status: verification.AgentStatusSuccess, Checks: []verification.Check{{Name: "id_match", Status: verification.CheckPassed}}},
	}

	req := httptest.NewRequest(http.MethodGet, "/verify/report?user_id=user-9", nil)
	rec := httptest.NewRecorder()

	handleGetReport(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "v-1", resp.VerificationID)
	require.Len(t, resp.AgentResults, 1)
	assert.Equal(t, "identity", resp.AgentResults[0].AgentType)
}

func TestHandleList_FiltersBySubject(t *testing.T) {
	deps, store, _, _ := newTestDeps()
	store.byID["v-individual"] = &verification.Verification{ID: "v-individual", Subject: verification.SubjectIndividual, Status: verification.StatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	store.byID["v-business"] = &verification.Verification{ID: "v-business", Subject: verification.SubjectBusiness, Status: verification.StatusQueued, CreatedAt: time.Now(), UpdatedAt: time.Now()}

	req := httptest.NewRequest(http.MethodGet, "/verify/kyc/list", nil)
	rec := httptest.NewRecorder()

	handleList(deps, verification.SubjectIndividual)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Verifications, 1)
	assert.Equal(t, "v-individual", resp.Verifications[0].VerificationID)
}

func TestHandleJobStatus(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/job-status/job-1", nil)
	req = mux.SetURLVars(req, map[string]string{"job_id": "job-1"})
	rec := httptest.NewRecorder()

	handleJobStatus(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp jobStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "job-1", resp.JobID)
	assert.Equal(t, string(queue.StatusQueued), resp.Status)
}

func TestHandleQueueInfo(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	req := httptest.NewRequest(http.MethodGet, "/queue-info", nil)
	rec := httptest.NewRecorder()

	handleQueueInfo(deps)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp queue.Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Healthy)
}
