package individual

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

// EmailPhoneIpVerificationAgent checks the email domain against a fixed
// disposable-domain list, that the phone number starts with "+" and is longer
// than ten characters, and that every login IP parses, grounded on
// app/agents/kyc/email_phone_ip.py. IPs are not checked for private ranges
// or reputation.
type EmailPhoneIpVerificationAgent struct{}

func NewEmailPhoneIpVerificationAgent() *EmailPhoneIpVerificationAgent {
	return &EmailPhoneIpVerificationAgent{}
}

func (a *EmailPhoneIpVerificationAgent) Type() string { return "EmailPhoneIpVerificationAgent" }

func (a *EmailPhoneIpVerificationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	email := in.GetString(verification.DataTypeUser, "email")
	phone := in.GetString(verification.DataTypeUser, "phone")
	activities, _ := in.Get(verification.DataTypeUser, "login_activities").([]interface{})

	checks := []verification.Check{
		a.emailCheck(email),
		a.phoneCheck(phone),
		a.ipCheck(activities),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "email, phone, and IP verification completed",
		Checks:  checks,
	}, nil
}

func (a *EmailPhoneIpVerificationAgent) emailCheck(email string) verification.Check {
	domain := ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		domain = email[at+1:]
	}

	suspicious := false
	for _, d := range disposableEmailDomains {
		if strings.Contains(domain, d) {
			suspicious = true
			break
		}
	}

	if suspicious {
		return verification.Check{Name: "Email Verification", Status: verification.CheckFailed, Details: fmt.Sprintf("suspicious email domain: %s", domain)}
	}
	return verification.Check{Name: "Email Verification", Status: verification.CheckPassed, Details: fmt.Sprintf("email domain: %s", domain)}
}

func (a *EmailPhoneIpVerificationAgent) phoneCheck(phone string) verification.Check {
	valid := strings.HasPrefix(phone, "+") && len(phone) > 10
	if valid {
		return verification.Check{Name: "Phone Verification", Status: verification.CheckPassed, Details: "phone number in E.164 format"}
	}
	return verification.Check{Name: "Phone Verification", Status: verification.CheckFailed, Details: fmt.Sprintf("invalid phone number format: %s", phone)}
}

func (a *EmailPhoneIpVerificationAgent) ipCheck(activities []interface{}) verification.Check {
	var ips []string
	for _, raw := range activities {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if ip, ok := entry["ip"].(string); ok && ip != "" {
			ips = append(ips, ip)
		}
	}

	if len(ips) == 0 {
		return verification.Check{Name: "IP Verification", Status: verification.CheckFailed, Details: "no IP addresses on file"}
	}

	invalid := 0
	for _, ip := range ips {
		if net.ParseIP(ip) == nil {
			invalid++
		}
	}

	if invalid > 0 {
		return verification.Check{
			Name:    "IP Verification",
			Status:  verification.CheckFailed,
			Details: fmt.Sprintf("%d of %d IP addresses failed to parse", invalid, len(ips)),
		}
	}
	return verification.Check{
		Name:    "IP Verification",
		Status:  verification.CheckPassed,
		Details: fmt.Sprintf("%d IP addresses verified", len(ips)),
	}
}
