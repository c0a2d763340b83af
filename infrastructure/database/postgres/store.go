// Package postgres implements domain/verification.Store against Postgres
// using database/sql + sqlx, following the parameterized-SQL style of the
// oracle service's store with sqlx struct scans into row types (see
// DESIGN.md).
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/verifyengine/core/domain/verification"
)

// Store implements verification.Store against Postgres.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres using dsn and returns a ready Store. The caller
// is responsible for calling ApplyMigrations before first use.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open *sqlx.DB, primarily for tests with sqlmock.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) CreateVerification(ctx context.Context, v *verification.Verification) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	v.CreatedAt, v.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (id, subject, user_id, business_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.Subject, nullable(v.UserID), nullable(v.BusinessID), v.Status, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert verification: %w", err)
	}
	return nil
}

func (s *Store) GetVerification(ctx context.Context, id string) (*verification.Verification, error) {
	var row verificationRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM verifications WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("verification %s: %w", id, sql.ErrNoRows)
	}
	if err != nil {
		return nil, fmt.Errorf("get verification: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) MarkProcessing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE verifications SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, verification.StatusProcessing, time.Now().UTC(), id, verification.StatusQueued)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return checkUpdated(res, id)
}

func (s *Store) Complete(ctx context.Context, id string, result verification.Result, reason string) error {
	return s.finish(ctx, id, verification.StatusCompleted, result, reason)
}

func (s *Store) Fail(ctx context.Context, id string, reason string) error {
	return s.finish(ctx, id, verification.StatusFailed, "", reason)
}

// finish stamps completed_at on both completed and failed, per the Open
// Question decision recorded in SPEC_FULL.md §E — a terminal-state marker,
// not a "success" marker.
func (s *Store) finish(ctx context.Context, id string, status verification.Status, result verification.Result, reason string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE verifications
		SET status = $1, result = $2, reason = $3, updated_at = $4, completed_at = $4
		WHERE id = $5 AND status NOT IN ('completed', 'failed')
	`, status, nullable(string(result)), nullable(reason), now, id)
	if err != nil {
		return fmt.Errorf("finish verification: %w", err)
	}
	return checkUpdated(res, id)
}

func (s *Store) ListVerifications(ctx context.Context, filter verification.ListFilter, createdBefore *time.Time, lastID string, limit int) ([]*verification.Verification, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC()
	if createdBefore != nil {
		cutoff = *createdBefore
	}

	query := `SELECT * FROM verifications WHERE (created_at, id) < ($1, $2)`
	args := []interface{}{cutoff, orMaxID(lastID)}
	if filter.Subject != "" {
		args = append(args, string(filter.Subject))
		query += fmt.Sprintf(" AND subject = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	var rows []verificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}

	out := make([]*verification.Verification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) AppendInput(ctx context.Context, input *verification.VerificationInput) error {
	payload := verification.NormalizePayload(input.Payload)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal input payload: %w", err)
	}
	input.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_inputs (verification_id, data_type, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, input.VerificationID, input.DataType, data, input.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verification input: %w", err)
	}
	return nil
}

func (s *Store) ListInputs(ctx context.Context, verificationID string) ([]*verification.VerificationInput, error) {
	var rows []inputRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT verification_id, data_type, payload, created_at FROM verification_inputs
		WHERE verification_id = $1 ORDER BY created_at ASC
	`, verificationID)
	if err != nil {
		return nil, fmt.Errorf("list verification inputs: %w", err)
	}
	return toInputs(rows)
}

func (s *Store) ListInputsByType(ctx context.Context, verificationID string, dataType verification.DataType) ([]*verification.VerificationInput, error) {
	var rows []inputRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT verification_id, data_type, payload, created_at FROM verification_inputs
		WHERE verification_id = $1 AND data_type = $2 ORDER BY created_at ASC
	`, verificationID, dataType)
	if err != nil {
		return nil, fmt.Errorf("list verification inputs by type: %w", err)
	}
	return toInputs(rows)
}

func (s *Store) AppendAgentResult(ctx context.Context, result *verification.AgentResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	result.CreatedAt = time.Now().UTC()

	checks := result.Checks
	if checks == nil {
		checks = []verification.Check{}
	}
	data, err := json.Marshal(checks)
	if err != nil {
		return fmt.Errorf("marshal checks: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO agent_results (id, verification_id, agent_type, status, details, checks, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, result.ID, result.VerificationID, result.AgentType, result.Status, result.Details, data, result.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert agent result: %w", err)
	}
	return nil
}

func (s *Store) ListAgentResults(ctx context.Context, verificationID string) ([]*verification.AgentResult, error) {
	var rows []agentResultRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, verification_id, agent_type, status, details, checks, created_at
		FROM agent_results WHERE verification_id = $1 ORDER BY created_at ASC
	`, verificationID)
	if err != nil {
		return nil, fmt.Errorf("list agent results: %w", err)
	}

	out := make([]*verification.AgentResult, 0, len(rows))
	for _, r := range rows {
		var checks []verification.Check
		if err := json.Unmarshal(r.Checks, &checks); err != nil {
			return nil, fmt.Errorf("unmarshal checks for %s: %w", r.ID, err)
		}
		out = append(out, &verification.AgentResult{
			ID:             r.ID,
			VerificationID: r.VerificationID,
			AgentType:      r.AgentType,
			Status:         verification.AgentResultStatus(r.Status),
			Details:        r.Details,
			Checks:         checks,
			CreatedAt:      r.CreatedAt,
		})
	}
	return out, nil
}

func (s *Store) CreateUboLink(ctx context.Context, link *verification.UboLink) error {
	link.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ubo_links (parent_verification_id, ubo_user_id, child_verification_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, link.ParentVerificationID, link.UboUserID, link.ChildVerificationID, link.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ubo link: %w", err)
	}
	return nil
}

func (s *Store) ListUboLinks(ctx context.Context, parentVerificationID string) ([]*verification.UboLink, error) {
	var rows []uboLinkRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT parent_verification_id, ubo_user_id, child_verification_id, created_at
		FROM ubo_links WHERE parent_verification_id = $1
	`, parentVerificationID)
	if err != nil {
		return nil, fmt.Errorf("list ubo links: %w", err)
	}

	out := make([]*verification.UboLink, 0, len(rows))
	for _, r := range rows {
		out = append(out, &verification.UboLink{
			ParentVerificationID: r.ParentVerificationID,
			UboUserID:            r.UboUserID,
			ChildVerificationID:  r.ChildVerificationID,
			CreatedAt:            r.CreatedAt,
		})
	}
	return out, nil
}

func checkUpdated(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("verification %s: no matching row updated", id)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// orMaxID lets the first page of ListVerifications (lastID == "") pass a
// sentinel high UUID so the row-value comparison still selects everything
// older than cutoff.
func orMaxID(lastID string) string {
	if lastID == "" {
		return "ffffffff-ffff-ffff-ffff-ffffffffffff"
	}
	return lastID
}
