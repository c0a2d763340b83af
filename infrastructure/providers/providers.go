// Package providers defines the capability interfaces the engine calls
// outbound vendors through (ID-proofing, fraud scoring, sanctions search,
// corporate registries) plus the internal ExternalRecordStore, per
// spec.md §4.1.
package providers

import "context"

// InquiryRecord is the vendor-agnostic shape IdProvider.GetInquiry returns.
type InquiryRecord struct {
	InquiryID string
	Fields    map[string]interface{}
	Documents []InquiryDocument
}

// InquiryDocument is one document attached to an inquiry, before it has been
// fetched into blob storage.
type InquiryDocument struct {
	ID          string
	Filename    string
	ContentType string
	URL         string
}

// BusinessInfo is the pure-transform projection of an InquiryRecord for
// business-subject verifications.
type BusinessInfo struct {
	Name            string
	EIN             string
	IncorporationState string
	IncorporationDate  string
	EntityType      string
	Address         map[string]string
}

// DocumentRef is what IdProvider.GetAndStoreDocuments returns per document:
// its id, filename, content-type, blob key, and any vendor checks the
// provider itself performed at fetch time.
type DocumentRef struct {
	DocumentID  string
	Filename    string
	ContentType string
	BlobKey     string
	VendorChecks map[string]interface{}
}

// IdProvider is the ID-proofing vendor capability.
type IdProvider interface {
	GetInquiry(ctx context.Context, inquiryID string) (*InquiryRecord, error)
	ExtractBusinessInfo(record *InquiryRecord) BusinessInfo
	GetAndStoreDocuments(ctx context.Context, inquiryID string) ([]DocumentRef, error)
}

// FraudScore is the FraudProvider response shape.
type FraudScore struct {
	Score            float64
	PaymentAbuseScore float64
	AccountAbuseScore float64
	ContentAbuseScore float64
	Activities       []map[string]interface{}
	Network          map[string]interface{}
}

// FraudProvider is the fraud-scoring vendor capability.
type FraudProvider interface {
	GetUserScore(ctx context.Context, userID string) (*FraudScore, error)
}

// SanctionsHits is the raw SanctionsProvider.SearchEntity response.
// QueryName is the name that was searched for, carried alongside the
// matches so Analyze can tell an exact-name hit from a fuzzy one.
type SanctionsHits struct {
	QueryName string
	Matches   []map[string]interface{}
}

// SanctionsAnalysis is SanctionsProvider.Analyze's risk-banded summary.
type SanctionsAnalysis struct {
	TotalMatches int
	RiskLevel    string // low | medium | high
	MatchDetails []map[string]interface{}
	Sources      []string
}

// SanctionsProvider is the sanctions-search vendor capability.
type SanctionsProvider interface {
	SearchEntity(ctx context.Context, name, addr, city, state, zip, country string) (*SanctionsHits, error)
	Analyze(hits *SanctionsHits) SanctionsAnalysis
}

// RegistryRecord is RegistryProvider.Lookup's response shape.
type RegistryRecord struct {
	Active       bool
	Name         string
	EntityType   string
	LastFilingAt string
	RegisteredAt string
}

// RegistryProvider is the corporate-registry vendor capability.
type RegistryProvider interface {
	Lookup(ctx context.Context, name, country string) (*RegistryRecord, error)
}

// BusinessRecord and BusinessOwner are what ExternalRecordStore returns for
// the internal (MySQL-backed) business data the engine already has on file.
type BusinessRecord struct {
	BusinessID  string
	Name        string
	EIN         string
	GoodStanding bool
}

type BusinessOwner struct {
	UserID string
	Name   string
	Percent float64
}

// ExternalRecordStore is the internal MySQL-backed adapter. It retries
// transient failures with exponential backoff and resets its connection pool
// after repeated operational errors; on exhaustion it returns a documented
// mock fallback record rather than raising, so the workflow can proceed
// (spec.md §4.1).
type ExternalRecordStore interface {
	GetInquiryID(ctx context.Context, userID string, kind string) (string, error)
	GetFraudScores(ctx context.Context, userID string) (*FraudScore, error)
	GetBusinessRecord(ctx context.Context, businessID string) (*BusinessRecord, error)
	GetBusinessOwners(ctx context.Context, businessID string) ([]BusinessOwner, error)
}
