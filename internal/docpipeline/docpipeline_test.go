package docpipeline

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verifyengine/core/infrastructure/blobstore"
	"github.com/verifyengine/core/infrastructure/providers"
)

type fakeLlm struct {
	classifyResponse string
	extractResponse  string
	extractErr       error
	invokeResponse   string
}

func (f *fakeLlm) Invoke(ctx context.Context, prompt string, imageData []byte) (string, error) {
	return f.invokeResponse, nil
}

func (f *fakeLlm) ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error {
	if prompt == classificationPrompt() {
		return json.Unmarshal([]byte(f.classifyResponse), out)
	}
	if f.extractErr != nil {
		return f.extractErr
	}
	return json.Unmarshal([]byte(f.extractResponse), out)
}

func TestPipeline_Process_NonPDFSkipsRasterization(t *testing.T) {
	blobs := blobstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "documents/doc1.png", []byte("fake-image-bytes"), "image/png"))

	fake := &fakeLlm{
		classifyResponse: `{"kind":"government_id","confidence":0.95}`,
		extractResponse:  `{"document_type":"drivers_license","name":"Jane Doe"}`,
	}
	pipeline := NewPipeline(blobs, fake, NewRasterizer(2, 2.0))

	ref := providers.DocumentRef{DocumentID: "doc1", ContentType: "image/png", BlobKey: "documents/doc1.png"}
	result, err := pipeline.Process(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, KindGovernmentID, result.Classification.Kind)
	assert.Equal(t, "Jane Doe", result.Fields["name"])
}

func TestPipeline_Process_ExtractionFallsBackToRawTextOnParseFailure(t *testing.T) {
	blobs := blobstore.NewInMemoryStore()
	ctx := context.Background()
	require.NoError(t, blobs.Put(ctx, "documents/doc2.png", []byte("fake-image-bytes"), "image/png"))

	fake := &fakeLlm{
		classifyResponse: `{"kind":"other","confidence":0.4}`,
		extractErr:       assert.AnError,
		invokeResponse:   "unparseable model output",
	}
	pipeline := NewPipeline(blobs, fake, NewRasterizer(2, 2.0))

	ref := providers.DocumentRef{DocumentID: "doc2", ContentType: "image/png", BlobKey: "documents/doc2.png"}
	result, err := pipeline.Process(ctx, ref)
	require.NoError(t, err)
	assert.Nil(t, result.Fields)
	assert.Equal(t, "unparseable model output", result.FullText)
}

func TestFindByKind_ReturnsFirstMatch(t *testing.T) {
	docs := []*ProcessedDocument{
		{Classification: Classification{Kind: KindEinLetter}},
		{Classification: Classification{Kind: KindArticlesOfIncorporation}},
		{Classification: Classification{Kind: KindEinLetter}},
	}
	found := FindByKind(docs, KindArticlesOfIncorporation)
	require.NotNil(t, found)
	assert.Equal(t, KindArticlesOfIncorporation, found.Classification.Kind)

	all := FindAllByKind(docs, KindEinLetter)
	assert.Len(t, all, 2)
}
