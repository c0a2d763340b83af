package business

import (
	"context"
	"fmt"
	"strings"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/internal/agent"
	"github.com/verifyengine/core/internal/docpipeline"
)

// ArticlesIncorporationAgent applies the same document-discovery and
// tie-break pattern as EinLetterAgent over articles-of-incorporation
// documents, checking company name, entity type, incorporation date,
// jurisdiction, and document presence, grounded on
// app/agents/kyb/articles_incorporation.py, extended per spec.md §4.4.
type ArticlesIncorporationAgent struct{}

func NewArticlesIncorporationAgent() *ArticlesIncorporationAgent { return &ArticlesIncorporationAgent{} }

func (a *ArticlesIncorporationAgent) Type() string { return "ArticlesIncorporationAgent" }

func (a *ArticlesIncorporationAgent) Run(ctx context.Context, in agent.Input) (verification.AgentResult, error) {
	businessName := in.GetString(verification.DataTypeBusiness, "business_name")
	entityType := in.GetString(verification.DataTypeBusiness, "entity_type")
	incorporationState := in.GetString(verification.DataTypeBusiness, "incorporation_state")

	candidates := articlesOfIncorporationCandidates(in.Documents)
	if len(candidates) == 0 {
		return verification.AgentResult{
			Status:  verification.AgentStatusWarning,
			Details: "no articles of incorporation document found",
			Checks: []verification.Check{
				{Name: "Articles of Incorporation Present", Status: verification.CheckFailed, Details: "no document matched articles_of_incorporation classification"},
			},
		}, nil
	}

	best := bestCandidate(candidates)
	extractedName, _ := best.Fields["company_name"].(string)
	extractedEntityType, _ := best.Fields["entity_type"].(string)
	extractedJurisdiction, _ := best.Fields["jurisdiction"].(string)
	extractedDate, _ := best.Fields["incorporation_date"].(string)

	checks := []verification.Check{
		{Name: "Articles of Incorporation Present", Status: verification.CheckPassed, Details: fmt.Sprintf("document %s classified as articles_of_incorporation", best.DocumentRef.DocumentID)},
		{
			Name:    "Company Name Match",
			Status:  boolToCheckStatus(strings.EqualFold(strings.TrimSpace(businessName), strings.TrimSpace(extractedName))),
			Details: fmt.Sprintf("on file: %s, extracted: %s", businessName, extractedName),
		},
		{
			Name:    "Entity Type Match",
			Status:  boolToCheckStatus(strings.EqualFold(strings.TrimSpace(entityType), strings.TrimSpace(extractedEntityType))),
			Details: fmt.Sprintf("on file: %s, extracted: %s", entityType, extractedEntityType),
		},
		{
			Name:    "Jurisdiction Match",
			Status:  boolToCheckStatus(strings.EqualFold(strings.TrimSpace(incorporationState), strings.TrimSpace(extractedJurisdiction))),
			Details: fmt.Sprintf("on file: %s, extracted: %s", incorporationState, extractedJurisdiction),
		},
		{
			Name:    "Incorporation Date Present",
			Status:  boolToCheckStatus(extractedDate != ""),
			Details: fmt.Sprintf("extracted incorporation date: %s", extractedDate),
		},
	}

	status := verification.AgentStatusSuccess
	for _, c := range checks {
		if c.Status == verification.CheckFailed {
			status = verification.AgentStatusWarning
		}
	}

	return verification.AgentResult{
		Status:  status,
		Details: "articles of incorporation verification completed",
		Checks:  checks,
	}, nil
}

func articlesOfIncorporationCandidates(docs []*docpipeline.ProcessedDocument) []*docpipeline.ProcessedDocument {
	var out []*docpipeline.ProcessedDocument
	for _, d := range docs {
		if d.Classification.Kind == docpipeline.KindArticlesOfIncorporation {
			out = append(out, d)
		}
	}
	return out
}
