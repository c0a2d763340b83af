// Package llm defines the engine's LLM capability interface and a bounded
// concurrency pool in front of it, grounded on the "analyze_with_llm" helper
// the original Python agents share (app/utils/llm.py) and on the Anthropic
// Go SDK declared (but unused) in jordigilh-kubernaut's go.mod.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
)

// Llm is the capability interface agents and the document pipeline call
// through. It is never adjudicated for pass/fail — only for human-facing
// detail synthesis and structured document field extraction.
type Llm interface {
	// Invoke sends a text prompt (optionally with an image) and returns the
	// model's raw text response.
	Invoke(ctx context.Context, prompt string, imageData []byte) (string, error)

	// ExtractStructured sends a prompt that demands a JSON object matching
	// schemaHint and parses the response, tolerating markdown code fences and
	// leading/trailing prose the way the original's llm.py does. A malformed
	// response is never a hard failure: it comes back as a *ParseError
	// carrying the raw text, never as an opaque error a caller can only
	// propagate.
	ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error
}

// ParseError is what ExtractStructured returns when the model's response
// could not be parsed into the requested shape. Callers should use
// errors.As to recover RawResponse and persist it alongside the parse
// failure rather than failing the surrounding operation outright,
// mirroring extract_structured_data's fallback in app/utils/llm.py
// ({"error": ..., "raw_text": generation} instead of raising).
type ParseError struct {
	RawResponse string
	Err         error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse llm response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// BoundedPool wraps an Llm with a semaphore so no more than N calls run
// concurrently against the upstream vision/text model, matching the
// original's bounded "analyze_with_llm" concurrency guard.
type BoundedPool struct {
	inner   Llm
	limiter chan struct{}
	rate    *rate.Limiter
}

// NewBoundedPool bounds concurrent Invoke/ExtractStructured calls to
// maxConcurrency and additionally smooths bursts to ratePerSecond requests/s.
func NewBoundedPool(inner Llm, maxConcurrency int, ratePerSecond float64) *BoundedPool {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	if ratePerSecond <= 0 {
		ratePerSecond = float64(maxConcurrency)
	}
	return &BoundedPool{
		inner:   inner,
		limiter: make(chan struct{}, maxConcurrency),
		rate:    rate.NewLimiter(rate.Limit(ratePerSecond), maxConcurrency),
	}
}

func (p *BoundedPool) acquire(ctx context.Context) error {
	if err := p.rate.Wait(ctx); err != nil {
		return fmt.Errorf("llm rate limit wait: %w", err)
	}
	select {
	case p.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BoundedPool) release() { <-p.limiter }

func (p *BoundedPool) Invoke(ctx context.Context, prompt string, imageData []byte) (string, error) {
	if err := p.acquire(ctx); err != nil {
		return "", err
	}
	defer p.release()
	return p.inner.Invoke(ctx, prompt, imageData)
}

func (p *BoundedPool) ExtractStructured(ctx context.Context, prompt string, schemaHint string, out interface{}) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.release()
	return p.inner.ExtractStructured(ctx, prompt, schemaHint, out)
}

// ParseJSONTolerant strips common wrapping the model adds around a JSON
// payload (```json fences, leading prose) before unmarshaling, mirroring
// the original's tolerant JSON parse in app/utils/llm.py.
func ParseJSONTolerant(raw string, out interface{}) error {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start == -1 || end == -1 || end < start {
		start = strings.IndexByte(trimmed, '[')
		end = strings.LastIndexByte(trimmed, ']')
	}
	if start != -1 && end != -1 && end >= start {
		trimmed = trimmed[start : end+1]
	}

	if err := json.Unmarshal([]byte(trimmed), out); err != nil {
		return fmt.Errorf("parse llm json response: %w", err)
	}
	return nil
}
