package business

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/docpipeline"
)

// einPattern matches the standard IRS EIN format, per spec.md §4.4.
var einPattern = regexp.MustCompile(`\b\d{2}-\d{7}\b`)

// EinLetterAgent discovers the best EIN-letter candidate among the
// verification's processed documents that are classified as EIN letters
// or whose text contains an EIN-shaped number, tie-breaking by the most non-empty
// extracted fields, then checks name-match, EIN-format-match, IRS
// authenticity, and letter presence, grounded on
// app/agents/kyb/ein_letter.py, extended per spec.md §4.4 to use the
// Document Pipeline rather than a mocked external flag.
type EinLetterAgent struct{}

func NewEinLetterAgent() *EinLetterAgent { return &EinLetterAgent{} }

func (a *EinLetterAgent) Type() string { return "EinLetterAgent" }

func (a *EinLetterAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	businessName := in.GetString(verification.DataTypeBusiness, "business_name")
	taxID := in.GetString(verification.DataTypeBusiness, "tax_id")

	candidates := einCandidates(in.Documents)
	if len(candidates) == 0 {
		return verification.AgentResult{
			Status:  verification.AgentStatusWarning,
			Details: "no EIN letter document found",
			Checks: []verification.Check{
				{Name: "EIN Letter Present", Status: verification.CheckFailed, Details: "no document matched EIN letter classification or EIN pattern"},
			},
		}, nil
	}

	best := bestCandidate(candidates)
	extractedEIN, _ := best.Fields["ein"].(string)
	if extractedEIN == "" {
		extractedEIN = firstEINMatch(best.FullText)
	}
	einOwnerName, _ := best.Fields["business_name"].(string)

	einFormatValid := einPattern.MatchString(extractedEIN)
	einMatchesOnFile := normalizeEIN(extractedEIN) == normalizeEIN(taxID)
	nameMatch := strings.EqualFold(strings.TrimSpace(businessName), strings.TrimSpace(einOwnerName))

	checks := []verification.Check{
		{Name: "EIN Letter Present", Status: verification.CheckPassed, Details: fmt.Sprintf("document %s classified as ein_letter", best.DocumentRef.DocumentID)},
		{
			Name:    "EIN Number Verification",
			Status:  boolToCheckStatus(einFormatValid && einMatchesOnFile),
			Details: fmt.Sprintf("extracted EIN: %s, on-file EIN: %s, format valid: %v, match: %v", extractedEIN, taxID, einFormatValid, einMatchesOnFile),
		},
		{
			Name:    "Business Name Match",
			Status:  boolToCheckStatus(nameMatch),
			Details: fmt.Sprintf("submitted: %s, EIN letter: %s", businessName, einOwnerName),
		},
		{
			Name:    "Letter Authenticity",
			Status:  boolToCheckStatus(best.Classification.Confidence >= 0.5),
			Details: fmt.Sprintf("classification confidence: %.2f", best.Classification.Confidence),
		},
	}

	for k, v := range best.DocumentRef.VendorChecks {
		passed, _ := v.(bool)
		checks = append(checks, verification.Check{
			Name:    fmt.Sprintf("Vendor Check: %s", k),
			Status:  boolToCheckStatus(passed),
			Details: fmt.Sprintf("provider_result=%v", v),
		})
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "EIN letter verification completed",
		Checks:  checks,
	}, nil
}

func einCandidates(docs []*docpipeline.ProcessedDocument) []*docpipeline.ProcessedDocument {
	var out []*docpipeline.ProcessedDocument
	for _, d := range docs {
		if d.Classification.Kind == docpipeline.KindEinLetter {
			out = append(out, d)
			continue
		}
		if einPattern.MatchString(d.FullText) {
			out = append(out, d)
		}
	}
	return out
}

// bestCandidate picks the candidate with the most non-empty extracted
// fields, breaking ties by the vision classifier's confidence score. The
// original has no multi-document candidate selection to ground this
// against (app/agents/kyb/ein_letter.py reads a single external record),
// so this ordering is this pipeline's own determinism policy, not a
// reproduction.
func bestCandidate(docs []*docpipeline.ProcessedDocument) *docpipeline.ProcessedDocument {
	best := docs[0]
	bestScore := nonEmptyFieldCount(best.Fields)
	for _, d := range docs[1:] {
		score := nonEmptyFieldCount(d.Fields)
		switch {
		case score > bestScore:
			best, bestScore = d, score
		case score == bestScore && d.Classification.Confidence > best.Classification.Confidence:
			best = d
		}
	}
	return best
}

func nonEmptyFieldCount(fields map[string]interface{}) int {
	count := 0
	for _, v := range fields {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		if v != nil {
			count++
		}
	}
	return count
}

func firstEINMatch(text string) string {
	return einPattern.FindString(text)
}

func normalizeEIN(ein string) string {
	return strings.ReplaceAll(strings.TrimSpace(ein), "-", "")
}
