package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Llm against the Anthropic Messages API, used for
// both the text compilation prompts and the vision document-classification
// prompts (image-bearing Invoke calls).
type AnthropicClient struct {
	client  anthropic.Client
	modelID string
}

// NewAnthropicClient builds a client from an API key and model id
// (e.g. "claude-3-5-sonnet-20241022", read from MODEL_ID).
func NewAnthropicClient(apiKey, modelID string) *AnthropicClient {
	return &AnthropicClient{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		modelID: modelID,
	}
}

func (a *AnthropicClient) Invoke(ctx context.Context, prompt string, imageData []byte) (string, error) {
	blocks := []anthropic.ContentBlockParamUnion{}
	if len(imageData) > 0 {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", base64.StdEncoding.EncodeToString(imageData)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(prompt))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.modelID),
		MaxTokens: 2048,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic invoke: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, nil
}

func (a *AnthropicClient) ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error {
	fullPrompt := prompt + "\n\nRespond with a single JSON object matching this shape, and nothing else:\n" + schemaHint

	text, err := a.Invoke(ctx, fullPrompt, nil)
	if err != nil {
		return err
	}
	if err := ParseJSONTolerant(text, out); err != nil {
		return &ParseError{RawResponse: text, Err: err}
	}
	return nil
}
