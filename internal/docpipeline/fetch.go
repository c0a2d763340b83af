package docpipeline

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/infrastructure/providers"
)

// FetchAndProcessAll pulls every document attached to an inquiry through the
// IdProvider (fetch + blob-store), then runs each through the pipeline. A
// single document's failure doesn't abort the batch — it's reported inline
// so the calling agent can decide whether a missing document is fatal.
func FetchAndProcessAll(ctx context.Context, idProvider providers.IdProvider, pipeline *Pipeline, inquiryID string) ([]*ProcessedDocument, []error) {
	refs, err := idProvider.GetAndStoreDocuments(ctx, inquiryID)
	if err != nil {
		return nil, []error{fmt.Errorf("get and store documents for inquiry %s: %w", inquiryID, err)}
	}

	var (
		processed []*ProcessedDocument
		errs      []error
	)
	for _, ref := range refs {
		doc, err := pipeline.Process(ctx, ref)
		if err != nil {
			errs = append(errs, fmt.Errorf("document %s (%s): %w", ref.DocumentID, ref.Filename, err))
			continue
		}
		processed = append(processed, doc)
	}

	return processed, errs
}

// FindByKind returns the first processed document matching kind, or nil.
func FindByKind(docs []*ProcessedDocument, kind DocumentKind) *ProcessedDocument {
	for _, d := range docs {
		if d.Classification.Kind == kind {
			return d
		}
	}
	return nil
}

// FindAllByKind returns every processed document matching kind, in input
// order.
func FindAllByKind(docs []*ProcessedDocument, kind DocumentKind) []*ProcessedDocument {
	var out []*ProcessedDocument
	for _, d := range docs {
		if d.Classification.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}
