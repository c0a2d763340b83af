package individual

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
)

const (
	largeTransactionThreshold = 5000.0
	largeTransactionMaxCount  = 2
	rapidTransactionWindow    = 10 * time.Minute
	rapidTransactionMinCount  = 2
	paymentAbuseFailThreshold = 50.0
)

// PaymentBehaviorAgent flags bank-account verification and transaction
// pattern risk, grounded on app/agents/kyc/payment_behavior.py.
type PaymentBehaviorAgent struct{}

func NewPaymentBehaviorAgent() *PaymentBehaviorAgent { return &PaymentBehaviorAgent{} }

func (a *PaymentBehaviorAgent) Type() string { return "PaymentBehaviorAgent" }

func (a *PaymentBehaviorAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	bankAccounts, _ := in.Get(verification.DataTypeUser, "bank_accounts").([]interface{})
	fraudScore, _ := in.Get(verification.DataTypeUser, "fraud_score").(map[string]interface{})

	checks := []verification.Check{
		a.bankAccountCheck(bankAccounts),
		a.transactionPatternCheck(bankAccounts),
		a.paymentAbuseCheck(fraudScore),
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "payment behavior analysis completed",
		Checks:  checks,
	}, nil
}

func (a *PaymentBehaviorAgent) bankAccountCheck(bankAccounts []interface{}) verification.Check {
	verifiedCount := 0
	for _, raw := range bankAccounts {
		account, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		if verified, _ := account["verified"].(bool); verified {
			verifiedCount++
		}
	}

	if verifiedCount > 0 {
		return verification.Check{
			Name:    "Bank Account Verification",
			Status:  verification.CheckPassed,
			Details: fmt.Sprintf("verified bank accounts: %d", verifiedCount),
		}
	}
	return verification.Check{
		Name:    "Bank Account Verification",
		Status:  verification.CheckFailed,
		Details: "no verified bank accounts on file",
	}
}

type transaction struct {
	amount float64
	at     time.Time
}

func (a *PaymentBehaviorAgent) transactionPatternCheck(bankAccounts []interface{}) verification.Check {
	var transactions []transaction
	for _, raw := range bankAccounts {
		account, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		txs, _ := account["last_transactions"].([]interface{})
		for _, txRaw := range txs {
			tx, ok := txRaw.(map[string]interface{})
			if !ok {
				continue
			}
			amount, _ := tx["amount"].(float64)
			dateStr, _ := tx["date"].(string)
			at, err := time.Parse(time.RFC3339, dateStr)
			if err != nil {
				continue
			}
			transactions = append(transactions, transaction{amount: amount, at: at})
		}
	}

	if len(transactions) == 0 {
		return verification.Check{
			Name:    "Transaction Pattern Analysis",
			Status:  verification.CheckNotApplicable,
			Details: "no transaction history available",
		}
	}

	sort.Slice(transactions, func(i, j int) bool { return transactions[i].at.Before(transactions[j].at) })

	large := 0
	for _, tx := range transactions {
		if tx.amount > largeTransactionThreshold {
			large++
		}
	}

	rapid := 0
	for i := 1; i < len(transactions); i++ {
		if transactions[i].at.Sub(transactions[i-1].at) < rapidTransactionWindow {
			rapid++
		}
	}

	risky := large > largeTransactionMaxCount || rapid >= rapidTransactionMinCount
	status := verification.CheckPassed
	if risky {
		status = verification.CheckFailed
	}

	return verification.Check{
		Name:    "Transaction Pattern Analysis",
		Status:  status,
		Details: fmt.Sprintf("large transactions: %d, rapid transactions: %d", large, rapid),
		Metadata: map[string]interface{}{
			"large_transactions": large,
			"rapid_transactions": rapid,
		},
	}
}

func (a *PaymentBehaviorAgent) paymentAbuseCheck(fraudScore map[string]interface{}) verification.Check {
	score, _ := fraudScore["payment_abuse"].(float64)
	status := verification.CheckPassed
	if score > paymentAbuseFailThreshold {
		status = verification.CheckFailed
	}
	return verification.Check{
		Name:    "Sift Payment Abuse Score",
		Status:  status,
		Details: fmt.Sprintf("payment abuse score: %.1f, threshold: %.1f", score, paymentAbuseFailThreshold),
	}
}
