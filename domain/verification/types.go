// Package verification defines the core entities of the verification
// orchestration engine: Verification, VerificationInput, AgentResult, Check,
// and UboLink.
package verification

import "time"

// Status is the verification lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Subject identifies whether a verification is for an individual or a business.
type Subject string

const (
	SubjectIndividual Subject = "individual"
	SubjectBusiness   Subject = "business"
)

// Result is the compiled decision, set only once status reaches a terminal value.
type Result string

const (
	ResultPassed Result = "passed"
	ResultFailed Result = "failed"
)

// Verification is the top-level entity tracked by the engine. Exactly one of
// UserID/BusinessID is set, per the subject.
type Verification struct {
	ID         string
	Subject    Subject
	UserID     string
	BusinessID string
	Status     Status
	Result     Result
	Reason     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	CompletedAt *time.Time
}

// DataType tags a VerificationInput row.
type DataType string

const (
	DataTypeUser           DataType = "user"
	DataTypeBusiness       DataType = "business"
	DataTypeAdditionalData DataType = "additional_data"
)

// VerificationInput is a JSON payload persisted during the acquisition phase,
// keyed by (verification id, data_type). The payload must be date-normalized
// (see Normalize) before it reaches the store.
type VerificationInput struct {
	VerificationID string
	DataType       DataType
	Payload        map[string]interface{}
	CreatedAt      time.Time
}

// CheckStatus is the outcome of one named check within an AgentResult.
type CheckStatus string

const (
	CheckPassed        CheckStatus = "passed"
	CheckFailed        CheckStatus = "failed"
	CheckWarning       CheckStatus = "warning"
	CheckNotApplicable CheckStatus = "not_applicable"
	CheckError         CheckStatus = "error"
)

// Check is one named assertion an agent makes, embedded in an AgentResult.
type Check struct {
	Name     string                 `json:"name"`
	Status   CheckStatus            `json:"status"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// AgentResultStatus is the overall outcome of a single agent run.
type AgentResultStatus string

const (
	AgentStatusSuccess AgentResultStatus = "success"
	AgentStatusWarning AgentResultStatus = "warning"
	AgentStatusError   AgentResultStatus = "error"
)

// AgentResult is one agent's contribution to a verification, appended in
// wall-clock completion order. It is never updated in place.
type AgentResult struct {
	ID             string
	VerificationID string
	AgentType      string
	Status         AgentResultStatus
	Details        string
	Checks         []Check
	CreatedAt      time.Time
}

// UboLink weakly references a business verification's UBO child verification.
type UboLink struct {
	ParentVerificationID string
	UboUserID            string
	ChildVerificationID  string
	CreatedAt            time.Time
}
