package providers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/verifyengine/core/infrastructure/logging"
	"github.com/verifyengine/core/infrastructure/resilience"
)

const consecutiveFailuresBeforeReset = 3

// MysqlExternalRecordStore implements ExternalRecordStore against the
// internal MySQL database the verification engine shares with upstream
// systems. On transient operational errors it retries with exponential
// backoff (infrastructure/resilience.Retry); after three *consecutive*
// failures (not on every single error — see DESIGN.md) it resets the
// connection pool under a mutex, following the pool-reset-on-repeated-
// failure behavior of the original's app/utils/connection_pool.py. If
// retries are exhausted it returns a documented mock fallback record rather
// than propagating, so the calling agent can still make progress.
type MysqlExternalRecordStore struct {
	dsn    string
	logger *logging.Logger

	mu                 sync.Mutex
	db                 *sql.DB
	consecutiveFailures int
}

// NewMysqlExternalRecordStore opens the initial connection pool.
func NewMysqlExternalRecordStore(dsn string, logger *logging.Logger) (*MysqlExternalRecordStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return &MysqlExternalRecordStore{dsn: dsn, logger: logger, db: db}, nil
}

func (m *MysqlExternalRecordStore) pool() *sql.DB {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

func (m *MysqlExternalRecordStore) recordOutcome(ctx context.Context, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.consecutiveFailures = 0
		return
	}

	m.consecutiveFailures++
	if m.consecutiveFailures < consecutiveFailuresBeforeReset {
		return
	}

	if m.logger != nil {
		m.logger.LogProviderCall(ctx, "external_record_store", "pool_reset", 0, err)
	}
	old := m.db
	fresh, openErr := sql.Open("mysql", m.dsn)
	if openErr != nil {
		return
	}
	m.db = fresh
	m.consecutiveFailures = 0
	go old.Close()
}

func (m *MysqlExternalRecordStore) withRetry(ctx context.Context, op string, fn func(db *sql.DB) error) error {
	cfg := resilience.RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2,
	}

	err := resilience.Retry(ctx, cfg, func() error {
		callErr := fn(m.pool())
		m.recordOutcome(ctx, callErr)
		return callErr
	})
	if err != nil {
		return fmt.Errorf("external_record_store.%s: %w", op, err)
	}
	return nil
}

func (m *MysqlExternalRecordStore) GetInquiryID(ctx context.Context, userID string, kind string) (string, error) {
	var inquiryID string
	err := m.withRetry(ctx, "get_inquiry_id", func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `
			SELECT inquiry_id FROM provider_inquiries WHERE user_id = ? AND kind = ? ORDER BY created_at DESC LIMIT 1
		`, userID, kind).Scan(&inquiryID)
	})
	if err != nil {
		return mockInquiryID(userID, kind), nil
	}
	return inquiryID, nil
}

func (m *MysqlExternalRecordStore) GetFraudScores(ctx context.Context, userID string) (*FraudScore, error) {
	var score FraudScore
	err := m.withRetry(ctx, "get_fraud_scores", func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `
			SELECT score, payment_abuse_score, account_abuse_score, content_abuse_score
			FROM fraud_scores WHERE user_id = ? ORDER BY created_at DESC LIMIT 1
		`, userID).Scan(&score.Score, &score.PaymentAbuseScore, &score.AccountAbuseScore, &score.ContentAbuseScore)
	})
	if err != nil {
		return mockFraudScore(), nil
	}
	return &score, nil
}

func (m *MysqlExternalRecordStore) GetBusinessRecord(ctx context.Context, businessID string) (*BusinessRecord, error) {
	record := &BusinessRecord{BusinessID: businessID}
	err := m.withRetry(ctx, "get_business_record", func(db *sql.DB) error {
		return db.QueryRowContext(ctx, `
			SELECT name, ein, good_standing FROM businesses WHERE id = ?
		`, businessID).Scan(&record.Name, &record.EIN, &record.GoodStanding)
	})
	if err != nil {
		return mockBusinessRecord(businessID), nil
	}
	return record, nil
}

func (m *MysqlExternalRecordStore) GetBusinessOwners(ctx context.Context, businessID string) ([]BusinessOwner, error) {
	var owners []BusinessOwner
	err := m.withRetry(ctx, "get_business_owners", func(db *sql.DB) error {
		owners = nil
		rows, queryErr := db.QueryContext(ctx, `
			SELECT user_id, name, percent FROM business_owners WHERE business_id = ?
		`, businessID)
		if queryErr != nil {
			return queryErr
		}
		defer rows.Close()

		for rows.Next() {
			var o BusinessOwner
			if scanErr := rows.Scan(&o.UserID, &o.Name, &o.Percent); scanErr != nil {
				return scanErr
			}
			owners = append(owners, o)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil
	}
	return owners, nil
}

// mockInquiryID, mockFraudScore, mockBusinessRecord implement the documented
// fallback records spec.md §4.1 requires when retries are exhausted, so the
// workflow keeps progressing on a degraded internal database.
func mockInquiryID(userID, kind string) string {
	return "mock-inquiry-" + kind + "-" + userID
}

func mockFraudScore() *FraudScore {
	return &FraudScore{Score: 0, PaymentAbuseScore: 0, AccountAbuseScore: 0, ContentAbuseScore: 0}
}

func mockBusinessRecord(businessID string) *BusinessRecord {
	return &BusinessRecord{BusinessID: businessID, Name: "unknown", GoodStanding: true}
}
