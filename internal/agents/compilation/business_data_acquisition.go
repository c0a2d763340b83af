package compilation

import (
	"context"
	"fmt"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/providers"
)

// BusinessDataAcquisitionAgent is the business-workflow's mandatory first
// step: pulls the business record, registry lookup, and per-UBO fraud
// scores, assembling a nested ubos[] array inside the business input, per
// spec.md §4.3. No per-UBO inquiry id or provider inquiry data is fetched.
type BusinessDataAcquisitionAgent struct {
	records  providers.ExternalRecordStore
	idProv   providers.IdProvider
	registry providers.RegistryProvider
	store    verification.Store
}

func NewBusinessDataAcquisitionAgent(records providers.ExternalRecordStore, idProv providers.IdProvider, registry providers.RegistryProvider, store verification.Store) *BusinessDataAcquisitionAgent {
	return &BusinessDataAcquisitionAgent{records: records, idProv: idProv, registry: registry, store: store}
}

func (a *BusinessDataAcquisitionAgent) Type() string { return "DataAcquisitionAgent" }

func (a *BusinessDataAcquisitionAgent) Run(ctx context.Context, v *verification.Verification) (verification.AgentResult, []providers.BusinessOwner) {
	record, err := a.records.GetBusinessRecord(ctx, v.BusinessID)
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get business record: %w", err)), nil
	}

	owners, err := a.records.GetBusinessOwners(ctx, v.BusinessID)
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("get business owners: %w", err)), nil
	}

	registryRecord, err := a.registry.Lookup(ctx, record.Name, "")
	if err != nil {
		return dataAcquisitionError(fmt.Errorf("registry lookup: %w", err)), nil
	}

	ubos := make([]interface{}, 0, len(owners))
	for _, owner := range owners {
		entry := map[string]interface{}{
			"user_id": owner.UserID,
			"name":    owner.Name,
			"percent": owner.Percent,
		}
		if owner.UserID != "" {
			ownerSift, err := a.records.GetFraudScores(ctx, owner.UserID)
			if err != nil {
				return dataAcquisitionError(fmt.Errorf("get ubo sift scores: %w", err)), nil
			}
			entry["sift_data"] = siftDataPayload(ownerSift)
		}
		ubos = append(ubos, entry)
	}

	payload := map[string]interface{}{
		"business_name":  record.Name,
		"tax_id":         record.EIN,
		"good_standing":  record.GoodStanding,
		"ein_owner_name": record.Name,
		"registry_business_type": registryRecord.EntityType,
		"sos_filing_status":      activeOrInactive(registryRecord.Active),
		"last_filing_date":       registryRecord.LastFilingAt,
		"incorporation_date":     registryRecord.RegisteredAt,
		"ubos":                   ubos,
	}

	input := &verification.VerificationInput{
		VerificationID: v.ID,
		DataType:       verification.DataTypeBusiness,
		Payload:        verification.NormalizePayload(payload),
		CreatedAt:      time.Now().UTC(),
	}
	if err := a.store.AppendInput(ctx, input); err != nil {
		return dataAcquisitionError(fmt.Errorf("persist acquisition input: %w", err)), nil
	}

	return verification.AgentResult{
		Status:  verification.AgentStatusSuccess,
		Details: fmt.Sprintf("business data acquisition completed, %d UBOs enumerated", len(owners)),
	}, owners
}

func activeOrInactive(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
