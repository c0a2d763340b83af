package verification

import (
	"context"
	"time"
)

// Store is the durable persistence boundary for verifications, their inputs,
// per-agent results, and UBO linkage. Implementations must make AgentResult
// appends append-only and must not allow writes once a Verification is
// terminal, per the engine's terminality invariant.
type Store interface {
	CreateVerification(ctx context.Context, v *Verification) error
	GetVerification(ctx context.Context, id string) (*Verification, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, result Result, reason string) error
	Fail(ctx context.Context, id string, reason string) error

	// ListVerifications paginates by a (createdBefore, lastID) cursor to keep
	// stable ordering under concurrent inserts, per SPEC_FULL.md §D.8. filter
	// fields left at their zero value are not applied.
	ListVerifications(ctx context.Context, filter ListFilter, createdBefore *time.Time, lastID string, limit int) ([]*Verification, error)

	AppendInput(ctx context.Context, input *VerificationInput) error
	ListInputs(ctx context.Context, verificationID string) ([]*VerificationInput, error)
	ListInputsByType(ctx context.Context, verificationID string, dataType DataType) ([]*VerificationInput, error)

	AppendAgentResult(ctx context.Context, result *AgentResult) error
	ListAgentResults(ctx context.Context, verificationID string) ([]*AgentResult, error)

	CreateUboLink(ctx context.Context, link *UboLink) error
	ListUboLinks(ctx context.Context, parentVerificationID string) ([]*UboLink, error)
}

// ListFilter narrows ListVerifications to a subject and/or status. The zero
// value matches everything.
type ListFilter struct {
	Subject Subject
	Status  Status
}
