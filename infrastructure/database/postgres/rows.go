package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/verifyengine/core/domain/verification"
)

type verificationRow struct {
	ID          string         `db:"id"`
	Subject     string         `db:"subject"`
	UserID      sql.NullString `db:"user_id"`
	BusinessID  sql.NullString `db:"business_id"`
	Status      string         `db:"status"`
	Result      sql.NullString `db:"result"`
	Reason      sql.NullString `db:"reason"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
}

func (r verificationRow) toDomain() *verification.Verification {
	v := &verification.Verification{
		ID:        r.ID,
		Subject:   verification.Subject(r.Subject),
		Status:    verification.Status(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.UserID.Valid {
		v.UserID = r.UserID.String
	}
	if r.BusinessID.Valid {
		v.BusinessID = r.BusinessID.String
	}
	if r.Result.Valid {
		v.Result = verification.Result(r.Result.String)
	}
	if r.Reason.Valid {
		v.Reason = r.Reason.String
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		v.CompletedAt = &t
	}
	return v
}

type inputRow struct {
	VerificationID string          `db:"verification_id"`
	DataType       string          `db:"data_type"`
	Payload        json.RawMessage `db:"payload"`
	CreatedAt      time.Time       `db:"created_at"`
}

func toInputs(rows []inputRow) ([]*verification.VerificationInput, error) {
	out := make([]*verification.VerificationInput, 0, len(rows))
	for _, r := range rows {
		var payload map[string]interface{}
		if err := json.Unmarshal(r.Payload, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal input payload for %s/%s: %w", r.VerificationID, r.DataType, err)
		}
		out = append(out, &verification.VerificationInput{
			VerificationID: r.VerificationID,
			DataType:       verification.DataType(r.DataType),
			Payload:        payload,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

type agentResultRow struct {
	ID             string          `db:"id"`
	VerificationID string          `db:"verification_id"`
	AgentType      string          `db:"agent_type"`
	Status         string          `db:"status"`
	Details        string          `db:"details"`
	Checks         json.RawMessage `db:"checks"`
	CreatedAt      time.Time       `db:"created_at"`
}

type uboLinkRow struct {
	ParentVerificationID string    `db:"parent_verification_id"`
	UboUserID            string    `db:"ubo_user_id"`
	ChildVerificationID  string    `db:"child_verification_id"`
	CreatedAt            time.Time `db:"created_at"`
}
