// Package compilation implements the workflow's bookend agents: data
// acquisition (always first) and result compilation (always last),
// grounded on app/agents/kyc/initial_diligence.py's data-gathering half and
// app/services/workflow_service.py's compilation step in the original.
package compilation

import (
	"context"
	"fmt"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/providers"
)

// DataAcquisitionAgent is the workflow's mandatory first step for an
// individual verification: pulls the provider inquiry, fraud score, and
// login/payment history already on file, and persists it as a single
// user-scoped VerificationInput row.
type DataAcquisitionAgent struct {
	records providers.ExternalRecordStore
	idProv  providers.IdProvider
	fraud   providers.FraudProvider
	store   verification.Store
}

func NewDataAcquisitionAgent(records providers.ExternalRecordStore, idProv providers.IdProvider, fraud providers.FraudProvider, store verification.Store) *DataAcquisitionAgent {
	return &DataAcquisitionAgent{records: records, idProv: idProv, fraud: fraud, store: store}
}

func (a *DataAcquisitionAgent) Type() string { return "DataAcquisitionAgent" }

// Run persists the acquired payload and returns the DataAcquisition
// AgentResult; status=error here is what the workflow engine treats as a
// DataAcquisitionFailure (spec.md §7). Run has no error return: provider
// failures and a refused store write alike come back as an error-status
// result.
func (a *DataAcquisitionAgent) Run(ctx context.Context, v *verification.Verification) verification.AgentResult {
	inquiryID, err := a.records.GetInquiryID(ctx, v.UserID, "individual")
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get inquiry id: %w", err))
	}

	inquiry, err := a.idProv.GetInquiry(ctx, inquiryID)
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get inquiry: %w", err))
	}

	fraudScore, err := a.fraud.GetUserScore(ctx, v.UserID)
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get fraud score: %w", err))
	}

	siftScore, err := a.records.GetFraudScores(ctx, v.UserID)
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get sift scores: %w", err))
	}

	payload := map[string]interface{}{}
	for k, v := range inquiry.Fields {
		payload[k] = v
	}
	payload["fraud_score"] = map[string]interface{}{
		"payment_abuse": fraudScore.PaymentAbuseScore,
		"account_abuse": fraudScore.AccountAbuseScore,
		"content_abuse": fraudScore.ContentAbuseScore,
	}
	payload["sift_data"] = siftDataPayload(siftScore)

	input := &verification.VerificationInput{
		VerificationID: v.ID,
		DataType:       verification.DataTypeUser,
		Payload:        verification.NormalizePayload(payload),
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.AppendInput(ctx, input); err != nil {
		return dataAcquisitionError(fmt.Errorf("persist acquisition input: %w", err))
	}

	return verification.AgentResult{
		Status:  verification.AgentStatusSuccess,
		Details: "data acquisition completed",
	}
}

// siftDataPayload maps an ExternalRecordStore fraud score row onto the
// sift_data shape SiftVerificationAgent reads (score, network.risk_score,
// network.associated_users, activities[]), grounded on the original's
// external_db.get_sift_scores / app/agents/kyc/sift.py.
func siftDataPayload(score *providers.FraudScore) map[string]interface{} {
	activities := make([]interface{}, 0, len(score.Activities))
	for _, a := range score.Activities {
		activities = append(activities, a)
	}
	network := score.Network
	if network == nil {
		network = map[string]interface{}{}
	}
	return map[string]interface{}{
		"score":      score.Score,
		"network":    network,
		"activities": activities,
	}
}

func dataAcquisitionError(err error) verification.AgentResult {
	return verification.AgentResult{
		Status:  verification.AgentStatusError,
		Details: err.Error(),
		Checks: []verification.Check{{
			Name:    "DataAcquisitionAgent",
			Status:  verification.CheckError,
			Details: err.Error(),
		}},
	}
}
