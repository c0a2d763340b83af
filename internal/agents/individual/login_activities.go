package individual

import (
	"context"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

const (
	impossibleTravelWindow = 2 * time.Hour
	excessiveDeviceCount   = 5
	excessiveFailureCount  = 3
)

type loginActivity struct {
	location string
	device   string
	ip       string
	at       time.Time
	success  bool
}

// LoginActivitiesAgent flags impossible travel, excessive device counts,
// suspicious IPs, and excessive failed logins, grounded on
// app/agents/kyc/login_activities.py.
type LoginActivitiesAgent struct{}

func NewLoginActivitiesAgent() *LoginActivitiesAgent { return &LoginActivitiesAgent{} }

func (a *LoginActivitiesAgent) Type() string { return "LoginActivitiesAgent" }

func (a *LoginActivitiesAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	raw, _ := in.Get(verification.DataTypeUser, "login_activities").([]interface{})
	activities := parseLoginActivities(raw)

	checks := []verification.Check{
		a.locationCheck(activities),
		a.deviceCheck(activities),
		a.ipCheck(activities),
		a.failureCheck(activities),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "login activities analysis completed",
		Checks:  checks,
	}, nil
}

func parseLoginActivities(raw []interface{}) []loginActivity {
	activities := make([]loginActivity, 0, len(raw))
	for _, r := range raw {
		entry, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		location, _ := entry["location"].(string)
		device, _ := entry["device"].(string)
		ip, _ := entry["ip"].(string)
		success, _ := entry["success"].(bool)
		dateStr, _ := entry["date"].(string)
		at, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			continue
		}
		activities = append(activities, loginActivity{location: location, device: device, ip: ip, at: at, success: success})
	}
	sort.Slice(activities, func(i, j int) bool { return activities[i].at.Before(activities[j].at) })
	return activities
}

func (a *LoginActivitiesAgent) locationCheck(activities []loginActivity) verification.Check {
	unique := map[string]struct{}{}
	for _, act := range activities {
		unique[act.location] = struct{}{}
	}

	impossibleTravel := false
	for i := 1; i < len(activities); i++ {
		cur, prev := activities[i], activities[i-1]
		if cur.location != prev.location && cur.at.Sub(prev.at) < impossibleTravelWindow {
			impossibleTravel = true
			break
		}
	}

	status := verification.CheckPassed
	if impossibleTravel {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Login Location Analysis",
		Status:  status,
		Details: fmt.Sprintf("unique locations: %d, impossible travel detected: %v", len(unique), impossibleTravel),
	}
}

func (a *LoginActivitiesAgent) deviceCheck(activities []loginActivity) verification.Check {
	unique := map[string]struct{}{}
	for _, act := range activities {
		unique[act.device] = struct{}{}
	}

	status := verification.CheckPassed
	if len(unique) > excessiveDeviceCount {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Device Analysis",
		Status:  status,
		Details: fmt.Sprintf("unique devices: %d", len(unique)),
	}
}

func (a *LoginActivitiesAgent) ipCheck(activities []loginActivity) verification.Check {
	suspicious := 0
	for _, act := range activities {
		if act.ip == "" {
			continue
		}
		parsed := net.ParseIP(act.ip)
		if parsed == nil || parsed.IsPrivate() {
			suspicious++
		}
	}

	status := verification.CheckPassed
	if suspicious > 0 {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "IP Analysis",
		Status:  status,
		Details: fmt.Sprintf("suspicious IPs: %d", suspicious),
	}
}

func (a *LoginActivitiesAgent) failureCheck(activities []loginActivity) verification.Check {
	failed := 0
	for _, act := range activities {
		if !act.success {
			failed++
		}
	}

	status := verification.CheckPassed
	if failed > excessiveFailureCount {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Login Failure Analysis",
		Status:  status,
		Details: fmt.Sprintf("failed login attempts: %d", failed),
	}
}
