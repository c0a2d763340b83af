// Package httpapi is the HTTP façade over the verification engine: request
// validation, auth, and a thin translation layer between spec.md §6's wire
// contract and the domain/verification store and workflow dispatcher.
// Adapted from the teacher gateway's handler idiom (infrastructure/httputil
// generic writers, gorilla/mux routing), with the gateway's mTLS/service-mesh
// identity extraction replaced by the API-key/bearer-token scheme spec.md
// actually calls for (see DESIGN.md).
package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/verifyengine/core/domain/verification"
	verrors "github.com/verifyengine/core/infrastructure/errors"
	"github.com/verifyengine/core/infrastructure/httputil"
	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/queue"
	"github.com/verifyengine/core/internal/workflow"
)

// Dispatcher is the slice of workflow.Dispatcher the façade needs to enqueue
// newly submitted verifications.
type Dispatcher interface {
	Enqueue(ctx context.Context, jobType string, payload interface{}) (*queue.Job, error)
}

// QueueInspector is the slice of *queue.Queue the façade needs for the
// unauthenticated job/queue introspection endpoints.
type QueueInspector interface {
	Status(ctx context.Context, jobID string) (queue.Status, error)
	Info(ctx context.Context) (queue.Info, error)
}

// Deps wires the façade's handlers to the engine's persistence and queueing
// layers.
type Deps struct {
	Store      verification.Store
	Dispatcher Dispatcher
	Queue      QueueInspector
	Logger     *logging.Logger
}

type submitKYCRequest struct {
	UserID         string                 `json:"user_id"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

type submitBusinessRequest struct {
	BusinessID     string                 `json:"business_id"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

type submitResponse struct {
	VerificationID string `json:"verification_id"`
	Status         string `json:"status"`
}

type statusResponse struct {
	VerificationID string    `json:"verification_id"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type checkDTO struct {
	Name     string                 `json:"name"`
	Status   string                 `json:"status"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type agentResultDTO struct {
	AgentType string     `json:"agent_type"`
	Status    string     `json:"status"`
	Details   string     `json:"details,omitempty"`
	Checks    []checkDTO `json:"checks,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type reportResponse struct {
	VerificationID string           `json:"verification_id"`
	Subject        string           `json:"subject"`
	Status         string           `json:"status"`
	Result         string           `json:"result,omitempty"`
	Reason         string           `json:"reason,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	AgentResults   []agentResultDTO `json:"agent_results"`
}

type listResponse struct {
	Verifications []statusResponse `json:"verifications"`
	NextCursor    string           `json:"next_cursor,omitempty"`
}

type jobStatusResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// handleSubmitKYC implements POST /verify/kyc.
func handleSubmitKYC(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitKYCRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}
		if req.UserID == "" {
			writeServiceError(w, r, verrors.ValidationError("user_id", "must not be empty"))
			return
		}

		v := &verification.Verification{
			ID:        uuid.NewString(),
			Subject:   verification.SubjectIndividual,
			UserID:    req.UserID,
			Status:    verification.StatusQueued,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		submit(w, r, deps, v, req.AdditionalData, workflow.JobTypeIndividual)
	}
}

// handleSubmitBusiness implements POST /verify/business.
func handleSubmitBusiness(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitBusinessRequest
		if !httputil.DecodeJSON(w, r, &req) {
			return
		}
		if req.BusinessID == "" {
			writeServiceError(w, r, verrors.ValidationError("business_id", "must not be empty"))
			return
		}

		v := &verification.Verification{
			ID:         uuid.NewString(),
			Subject:    verification.SubjectBusiness,
			BusinessID: req.BusinessID,
			Status:     verification.StatusQueued,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		submit(w, r, deps, v, req.AdditionalData, workflow.JobTypeBusiness)
	}
}

func submit(w http.ResponseWriter, r *http.Request, deps Deps, v *verification.Verification, additionalData map[string]interface{}, jobType string) {
	ctx := r.Context()

	if err := deps.Store.CreateVerification(ctx, v); err != nil {
		deps.Logger.Error(ctx, "create verification failed", err, map[string]interface{}{"verification_id": v.ID})
		writeServiceError(w, r, verrors.DatabaseError("create_verification", err))
		return
	}

	if len(additionalData) > 0 {
		input := &verification.VerificationInput{
			VerificationID: v.ID,
			DataType:       verification.DataTypeAdditionalData,
			Payload:        verification.NormalizePayload(additionalData),
			CreatedAt:      time.Now().UTC(),
		}
		if err := deps.Store.AppendInput(ctx, input); err != nil {
			deps.Logger.Error(ctx, "persist additional_data failed", err, map[string]interface{}{"verification_id": v.ID})
			writeServiceError(w, r, verrors.DatabaseError("append_input", err))
			return
		}
	}

	if _, err := deps.Dispatcher.Enqueue(ctx, jobType, map[string]interface{}{"verification_id": v.ID}); err != nil {
		deps.Logger.Error(ctx, "enqueue verification job failed", err, map[string]interface{}{"verification_id": v.ID})
		writeServiceError(w, r, verrors.Internal("failed to enqueue verification", err))
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, submitResponse{VerificationID: v.ID, Status: "PENDING"})
}

// handleGetStatus implements GET /verify/status/{id}.
func handleGetStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		v, err := deps.Store.GetVerification(r.Context(), id)
		if err != nil || v == nil {
			httputil.NotFound(w, "verification not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, statusResponse{
			VerificationID: v.ID,
			Status:         string(v.Status),
			CreatedAt:      v.CreatedAt,
			UpdatedAt:      v.UpdatedAt,
		})
	}
}

// handleGetReport implements GET /verify/report, queried by verification_id,
// user_id, or business_id (the first one present wins). Lookup by user_id or
// business_id scans the most recent verifications for that subject rather
// than an indexed lookup — acceptable because spec.md does not require a
// dedicated secondary index and report lookups are low-volume (see
// DESIGN.md).
func handleGetReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		var v *verification.Verification
		var err error

		switch {
		case q.Get("verification_id") != "":
			v, err = deps.Store.GetVerification(ctx, q.Get("verification_id"))
		case q.Get("user_id") != "":
			v, err = findLatestBySubjectMatch(ctx, deps.Store, verification.SubjectIndividual, func(candidate *verification.Verification) bool {
				return candidate.UserID == q.Get("user_id")
			})
		case q.Get("business_id") != "":
			v, err = findLatestBySubjectMatch(ctx, deps.Store, verification.SubjectBusiness, func(candidate *verification.Verification) bool {
				return candidate.BusinessID == q.Get("business_id")
			})
		default:
			writeServiceError(w, r, verrors.ValidationError("query", "one of verification_id, user_id, business_id is required"))
			return
		}

		if err != nil || v == nil {
			httputil.NotFound(w, "verification not found")
			return
		}

		results, err := deps.Store.ListAgentResults(ctx, v.ID)
		if err != nil {
			writeServiceError(w, r, verrors.DatabaseError("list_agent_results", err))
			return
		}

		httputil.WriteJSON(w, http.StatusOK, toReportResponse(v, results))
	}
}

func findLatestBySubjectMatch(ctx context.Context, store verification.Store, subject verification.Subject, match func(*verification.Verification) bool) (*verification.Verification, error) {
	rows, err := store.ListVerifications(ctx, verification.ListFilter{Subject: subject}, nil, "", 200)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if match(row) {
			return row, nil
		}
	}
	return nil, nil
}

func toReportResponse(v *verification.Verification, results []*verification.AgentResult) reportResponse {
	out := reportResponse{
		VerificationID: v.ID,
		Subject:        string(v.Subject),
		Status:         string(v.Status),
		Result:         string(v.Result),
		Reason:         v.Reason,
		CreatedAt:      v.CreatedAt,
		UpdatedAt:      v.UpdatedAt,
		AgentResults:   make([]agentResultDTO, 0, len(results)),
	}
	for _, r := range results {
		checks := make([]checkDTO, 0, len(r.Checks))
		for _, c := range r.Checks {
			checks = append(checks, checkDTO{Name: c.Name, Status: string(c.Status), Details: c.Details, Metadata: c.Metadata})
		}
		out.AgentResults = append(out.AgentResults, agentResultDTO{
			AgentType: r.AgentType,
			Status:    string(r.Status),
			Details:   r.Details,
			Checks:    checks,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}

// handleList implements GET /verify/kyc/list and GET /verify/business/list.
func handleList(deps Deps, subject verification.Subject) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cursor, limit := httputil.PaginationParams(r, 50, 200)
		status := httputil.QueryString(r, "status", "")

		// The cursor is "<created_at RFC3339Nano>|<id>" of the last row of the
		// previous page, matching the store's (createdBefore, lastID) keyset.
		var createdBefore *time.Time
		lastID := ""
		if cursor != "" {
			ts, id, ok := strings.Cut(cursor, "|")
			parsed, perr := time.Parse(time.RFC3339Nano, ts)
			if !ok || perr != nil || id == "" {
				writeServiceError(w, r, verrors.ValidationError("cursor", "malformed pagination cursor"))
				return
			}
			createdBefore, lastID = &parsed, id
		}

		filter := verification.ListFilter{Subject: subject, Status: verification.Status(status)}
		rows, err := deps.Store.ListVerifications(r.Context(), filter, createdBefore, lastID, limit)
		if err != nil {
			writeServiceError(w, r, verrors.DatabaseError("list_verifications", err))
			return
		}

		resp := listResponse{Verifications: make([]statusResponse, 0, len(rows))}
		for _, v := range rows {
			resp.Verifications = append(resp.Verifications, statusResponse{
				VerificationID: v.ID, Status: string(v.Status), CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt,
			})
		}
		if len(rows) == limit {
			last := rows[len(rows)-1]
			resp.NextCursor = last.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + last.ID
		}

		httputil.WriteJSON(w, http.StatusOK, resp)
	}
}

// handleJobStatus implements GET /job-status/{job_id} (no auth — a queue
// introspection endpoint, not a verification-result endpoint).
func handleJobStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := mux.Vars(r)["job_id"]
		status, err := deps.Queue.Status(r.Context(), jobID)
		if err != nil {
			httputil.NotFound(w, "job not found")
			return
		}
		httputil.WriteJSON(w, http.StatusOK, jobStatusResponse{JobID: jobID, Status: string(status)})
	}
}

// handleQueueInfo implements GET /queue-info (no auth).
func handleQueueInfo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := deps.Queue.Info(r.Context())
		if err != nil {
			writeServiceError(w, r, verrors.Internal("queue info unavailable", err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, info)
	}
}
