package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/domain/verification"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(sqlx.NewDb(db, "postgres")), mock
}

func TestCreateVerification_GeneratesIDAndInserts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO verifications").
		WithArgs(sqlmock.AnyArg(), "individual", "user-1", nil, verification.StatusQueued, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	v := &verification.Verification{Subject: verification.SubjectIndividual, UserID: "user-1", Status: verification.StatusQueued}
	err := store.CreateVerification(context.Background(), v)

	require.NoError(t, err)
	assert.NotEmpty(t, v.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkProcessing_NoRowsIsError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE verifications SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkProcessing(context.Background(), "missing-id")

	assert.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAgentResult_DefaultsEmptyChecks(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO agent_results").
		WithArgs(sqlmock.AnyArg(), "ver-1", "ofac_check", verification.AgentStatusSuccess, "", []byte("[]"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	result := &verification.AgentResult{VerificationID: "ver-1", AgentType: "ofac_check", Status: verification.AgentStatusSuccess}
	err := store.AppendAgentResult(context.Background(), result)

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
