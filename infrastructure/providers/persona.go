package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/verifyengine/core/infrastructure/blobstore"
	"github.com/verifyengine/core/infrastructure/resilience"
)

// PersonaIdProvider implements IdProvider against the Persona inquiry API,
// the ID-proofing vendor named in the original's app/integrations/persona.py.
// Outbound calls are circuit-broken (infrastructure/resilience) so a
// misbehaving Persona endpoint can't stall every acquisition agent waiting
// on its timeout.
type PersonaIdProvider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	blobs      blobstore.BlobStore
	breaker    *resilience.CircuitBreaker
}

func NewPersonaIdProvider(apiKey string, blobs blobstore.BlobStore) *PersonaIdProvider {
	return &PersonaIdProvider{
		apiKey:     apiKey,
		baseURL:    "https://withpersona.com/api/v1",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		blobs:      blobs,
		breaker:    resilience.New(resilience.DefaultConfig()),
	}
}

// do runs req through the circuit breaker, preserving the *http.Response so
// callers can inspect status codes and decode bodies as before.
func (p *PersonaIdProvider) do(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	err := p.breaker.Execute(req.Context(), func() error {
		var doErr error
		resp, doErr = p.httpClient.Do(req)
		return doErr
	})
	return resp, err
}

func (p *PersonaIdProvider) GetInquiry(ctx context.Context, inquiryID string) (*InquiryRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/inquiries/"+inquiryID, nil)
	if err != nil {
		return nil, fmt.Errorf("build persona request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("persona get_inquiry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("persona get_inquiry: status %d", resp.StatusCode)
	}

	var body personaInquiryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode persona inquiry: %w", err)
	}

	return body.toRecord(inquiryID), nil
}

func (p *PersonaIdProvider) ExtractBusinessInfo(record *InquiryRecord) BusinessInfo {
	info := BusinessInfo{Address: map[string]string{}}
	if record == nil {
		return info
	}
	if v, ok := record.Fields["business-name"].(string); ok {
		info.Name = v
	}
	if v, ok := record.Fields["employer-identification-number"].(string); ok {
		info.EIN = v
	}
	if v, ok := record.Fields["incorporation-state"].(string); ok {
		info.IncorporationState = v
	}
	if v, ok := record.Fields["incorporation-date"].(string); ok {
		info.IncorporationDate = v
	}
	if v, ok := record.Fields["entity-type"].(string); ok {
		info.EntityType = v
	}
	return info
}

func (p *PersonaIdProvider) GetAndStoreDocuments(ctx context.Context, inquiryID string) ([]DocumentRef, error) {
	record, err := p.GetInquiry(ctx, inquiryID)
	if err != nil {
		return nil, err
	}

	refs := make([]DocumentRef, 0, len(record.Documents))
	for _, doc := range record.Documents {
		data, err := p.fetchDocument(ctx, doc.URL)
		if err != nil {
			return nil, fmt.Errorf("fetch document %s: %w", doc.ID, err)
		}

		documentID := uuid.NewString()
		ext := extensionFor(doc.ContentType)
		key := blobstore.DocumentKey(documentID, ext)
		if err := p.blobs.Put(ctx, key, data, doc.ContentType); err != nil {
			return nil, fmt.Errorf("store document %s: %w", doc.ID, err)
		}

		refs = append(refs, DocumentRef{
			DocumentID:  documentID,
			Filename:    doc.Filename,
			ContentType: doc.ContentType,
			BlobKey:     key,
		})
	}
	return refs, nil
}

func (p *PersonaIdProvider) fetchDocument(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func extensionFor(contentType string) string {
	switch contentType {
	case "application/pdf":
		return "pdf"
	case "image/png":
		return "png"
	case "image/jpeg":
		return "jpg"
	default:
		return "bin"
	}
}

type personaInquiryResponse struct {
	Data struct {
		Attributes map[string]interface{} `json:"attributes"`
	} `json:"data"`
	Included []struct {
		Type       string `json:"type"`
		ID         string `json:"id"`
		Attributes struct {
			Filename    string `json:"filename"`
			ContentType string `json:"content-type"`
			URL         string `json:"url"`
		} `json:"attributes"`
	} `json:"included"`
}

func (r personaInquiryResponse) toRecord(inquiryID string) *InquiryRecord {
	record := &InquiryRecord{InquiryID: inquiryID, Fields: r.Data.Attributes}
	for _, inc := range r.Included {
		if inc.Type != "document" {
			continue
		}
		record.Documents = append(record.Documents, InquiryDocument{
			ID:          inc.ID,
			Filename:    inc.Attributes.Filename,
			ContentType: inc.Attributes.ContentType,
			URL:         inc.Attributes.URL,
		})
	}
	return record
}
