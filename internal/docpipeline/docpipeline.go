// Package docpipeline makes provider-hosted documents usable for
// field-level verification: fetch, blob-store, rasterize PDFs off the I/O
// path, classify via vision LLM, and extract structured fields per
// document kind, per spec.md §4.2.
package docpipeline

import (
	"context"
	"fmt"

	"github.com/verifyengine/core/infrastructure/blobstore"
	"github.com/verifyengine/core/infrastructure/llm"
	"github.com/verifyengine/core/infrastructure/providers"
)

// DocumentKind is one of the enumerated classification outputs.
type DocumentKind string

const (
	KindArticlesOfIncorporation DocumentKind = "articles_of_incorporation"
	KindCertificateOfOrganization DocumentKind = "certificate_of_organization"
	KindEinLetter               DocumentKind = "ein_letter"
	KindGovernmentID            DocumentKind = "government_id"
	KindBusinessLicense         DocumentKind = "business_license"
	KindBankStatement           DocumentKind = "bank_statement"
	KindUtilityBill             DocumentKind = "utility_bill"
	KindSecretaryOfStateFiling  DocumentKind = "secretary_of_state_filing"
	KindProofOfAddress          DocumentKind = "proof_of_address"
	KindOther                   DocumentKind = "other"
)

// Classification is the vision-LLM classification result for one document.
type Classification struct {
	Kind        DocumentKind
	Subtype     string
	Issuer      string
	Entity      string
	Identifiers []string
	Dates       []string
	Confidence  float64
}

// ProcessedDocument is the pipeline's output per source document: its blob
// key, classification, and extracted structured fields (or raw text if
// extraction failed to parse).
type ProcessedDocument struct {
	DocumentRef    providers.DocumentRef
	Classification Classification
	Fields         map[string]interface{}
	FullText       string
}

// Pipeline wires together blob storage, the bounded PDF rasterizer, and the
// LLM pool to turn an IdProvider inquiry's documents into ProcessedDocuments.
type Pipeline struct {
	blobs      blobstore.BlobStore
	llmPool    llm.Llm
	rasterizer *Rasterizer
}

func NewPipeline(blobs blobstore.BlobStore, llmPool llm.Llm, rasterizer *Rasterizer) *Pipeline {
	return &Pipeline{blobs: blobs, llmPool: llmPool, rasterizer: rasterizer}
}

// Process fetches a document's first page as an image (rasterizing PDFs off
// the I/O path through the bounded worker pool), classifies it, and extracts
// structured fields by kind. Idempotent per spec's explicit non-goal around
// deduping re-uploads of the same inquiry — callers may call this twice.
func (p *Pipeline) Process(ctx context.Context, ref providers.DocumentRef) (*ProcessedDocument, error) {
	raw, err := p.blobs.Get(ctx, ref.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("fetch document %s: %w", ref.DocumentID, err)
	}

	firstPageImage := raw
	if ref.ContentType == "application/pdf" {
		pages, err := p.rasterizer.Rasterize(ctx, raw, 3)
		if err != nil {
			return nil, fmt.Errorf("rasterize document %s: %w", ref.DocumentID, err)
		}
		if len(pages) == 0 {
			return nil, fmt.Errorf("rasterize document %s: no pages produced", ref.DocumentID)
		}
		firstPageImage = pages[0]
	}

	classification, err := p.classify(ctx, firstPageImage)
	if err != nil {
		return nil, fmt.Errorf("classify document %s: %w", ref.DocumentID, err)
	}

	fields, fullText, err := p.extract(ctx, firstPageImage, classification.Kind)
	if err != nil {
		return nil, fmt.Errorf("extract document %s: %w", ref.DocumentID, err)
	}

	return &ProcessedDocument{
		DocumentRef:    ref,
		Classification: *classification,
		Fields:         fields,
		FullText:       fullText,
	}, nil
}

func (p *Pipeline) classify(ctx context.Context, image []byte) (*Classification, error) {
	var out struct {
		Kind        string   `json:"kind"`
		Subtype     string   `json:"subtype"`
		Issuer      string   `json:"issuer"`
		Entity      string   `json:"entity"`
		Identifiers []string `json:"identifiers"`
		Dates       []string `json:"dates"`
		Confidence  float64  `json:"confidence"`
	}

	prompt := classificationPrompt()
	if err := p.llmPool.ExtractStructured(ctx, prompt, classificationSchemaHint, &out); err != nil {
		return nil, err
	}

	return &Classification{
		Kind:        DocumentKind(out.Kind),
		Subtype:     out.Subtype,
		Issuer:      out.Issuer,
		Entity:      out.Entity,
		Identifiers: out.Identifiers,
		Dates:       out.Dates,
		Confidence:  out.Confidence,
	}, nil
}

// extract runs a per-kind extraction prompt. If the LLM response fails to
// parse as JSON, the raw text is carried under "full_text" rather than
// raising, per spec.md §4.2 step 5.
func (p *Pipeline) extract(ctx context.Context, image []byte, kind DocumentKind) (map[string]interface{}, string, error) {
	prompt := extractionPromptFor(kind)

	var fields map[string]interface{}
	err := p.llmPool.ExtractStructured(ctx, prompt, extractionSchemaHintFor(kind), &fields)
	if err == nil {
		return fields, "", nil
	}

	text, invokeErr := p.llmPool.Invoke(ctx, prompt, image)
	if invokeErr != nil {
		return nil, "", fmt.Errorf("extract fields and fallback invoke both failed: %w", err)
	}
	return nil, text, nil
}

func classificationPrompt() string {
	return "Classify this document image into exactly one of: articles_of_incorporation, " +
		"certificate_of_organization, ein_letter, government_id, business_license, bank_statement, " +
		"utility_bill, secretary_of_state_filing, proof_of_address, other. Also report subtype, issuer, " +
		"entity, identifiers, dates, and a confidence score between 0 and 1."
}

const classificationSchemaHint = `{"kind":"...","subtype":"...","issuer":"...","entity":"...","identifiers":["..."],"dates":["..."],"confidence":0.0}`

func extractionPromptFor(kind DocumentKind) string {
	return fmt.Sprintf("Extract structured fields from this %s document image.", kind)
}

func extractionSchemaHintFor(kind DocumentKind) string {
	switch kind {
	case KindEinLetter:
		return `{"ein":"XX-XXXXXXX","business_name":"...","issued_date":"..."}`
	case KindArticlesOfIncorporation:
		return `{"company_name":"...","entity_type":"...","incorporation_date":"...","jurisdiction":"..."}`
	case KindGovernmentID:
		return `{"document_type":"...","real_id":true,"name":"...","expiration_date":"...","mrz":"..."}`
	default:
		return `{"fields":{}}`
	}
}
