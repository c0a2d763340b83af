package individual

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

const (
	siftScoreFailThreshold   = 70.0
	siftNetworkFailThreshold = 60.0
	siftAssociatedUsersLimit = 3
)

var suspiciousActivityTypes = map[string]struct{}{
	"chargeback": {}, "dispute": {}, "refund": {},
}

// SiftVerificationAgent checks overall Sift score, network risk, and
// suspicious activity types, grounded on app/agents/kyc/sift.py.
type SiftVerificationAgent struct{}

func NewSiftVerificationAgent() *SiftVerificationAgent { return &SiftVerificationAgent{} }

func (a *SiftVerificationAgent) Type() string { return "SiftVerificationAgent" }

func (a *SiftVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	siftData, _ := in.Get(verification.DataTypeUser, "sift_data").(map[string]interface{})

	score, _ := siftData["score"].(float64)
	network, _ := siftData["network"].(map[string]interface{})
	activitiesRaw, _ := siftData["activities"].([]interface{})

	checks := []verification.Check{
		a.scoreCheck(score),
		a.networkCheck(network),
		a.activitiesCheck(activitiesRaw),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "Sift verification completed",
		Checks:  checks,
	}, nil
}

func (a *SiftVerificationAgent) scoreCheck(score float64) verification.Check {
	status := verification.CheckPassed
	if score > siftScoreFailThreshold {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Sift Score",
		Status:  status,
		Details: fmt.Sprintf("Sift score: %.1f, threshold: %.1f", score, siftScoreFailThreshold),
	}
}

func (a *SiftVerificationAgent) networkCheck(network map[string]interface{}) verification.Check {
	riskScore, _ := network["risk_score"].(float64)
	associatedUsers, _ := network["associated_users"].([]interface{})

	status := verification.CheckPassed
	if riskScore > siftNetworkFailThreshold || len(associatedUsers) > siftAssociatedUsersLimit {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Sift Network",
		Status:  status,
		Details: fmt.Sprintf("network risk: %.1f, associated users: %d", riskScore, len(associatedUsers)),
	}
}

func (a *SiftVerificationAgent) activitiesCheck(activities []interface{}) verification.Check {
	suspicious := 0
	for _, raw := range activities {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		status, _ := entry["status"].(string)
		activityType, _ := entry["type"].(string)
		_, isSuspiciousType := suspiciousActivityTypes[activityType]
		if status == "failed" || isSuspiciousType {
			suspicious++
		}
	}

	checkStatus := verification.CheckPassed
	if suspicious > 0 {
		checkStatus = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Sift Activities",
		Status:  checkStatus,
		Details: fmt.Sprintf("suspicious activities: %d found", suspicious),
	}
}
