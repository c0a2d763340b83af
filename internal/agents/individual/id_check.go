package individual

import (
	"context"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// IdCheckAgent performs the comprehensive post-document-pipeline ID
// consistency pass: document type/REAL-ID designation, MRZ validity,
// expiration, security features, and name consistency with on-file data,
// grounded on app/agents/kyc/id_check.py.
type IdCheckAgent struct{}

func NewIdCheckAgent() *IdCheckAgent { return &IdCheckAgent{} }

func (a *IdCheckAgent) Type() string { return "IdCheckAgent" }

func (a *IdCheckAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	idData, _ := in.Get(verification.DataTypeUser, "id_check").(map[string]interface{})
	nameOnFile := in.GetString(verification.DataTypeUser, "name")

	documentType, _ := idData["document_type"].(string)
	realID, _ := idData["real_id_designation"].(bool)
	mrzValid, _ := idData["mrz_valid"].(bool)
	expirationStatus, _ := idData["expiration_status"].(string)
	securityFeaturesValid, _ := idData["security_features_valid"].(bool)
	nameOnID, _ := idData["name_on_id"].(string)

	if expirationStatus == "" {
		expirationStatus = "not_applicable"
	}

	nameMatch := strings.EqualFold(strings.TrimSpace(nameOnID), strings.TrimSpace(nameOnFile))

	checks := []verification.Check{
		{
			Name:    "ID Document Type",
			Status:  verification.CheckPassed,
			Details: fmt.Sprintf("document type: %s, REAL ID: %v", documentType, realID),
		},
		statusCheck("ID MRZ Check", mrzValid, "MRZ data invalid or inconsistent with visual inspection"),
		{
			Name:    "ID Expiration Check",
			Status:  verification.CheckStatus(expirationStatus),
			Details: fmt.Sprintf("expiration status: %s", expirationStatus),
		},
		statusCheck("ID Security Features", securityFeaturesValid, "one or more security features failed verification"),
		statusCheck("ID Data Consistency", nameMatch, fmt.Sprintf("name on ID (%q) does not match name on file (%q)", nameOnID, nameOnFile)),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "ID check completed",
		Checks:  checks,
	}, nil
}
