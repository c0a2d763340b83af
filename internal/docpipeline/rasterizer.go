package docpipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
)

// Rasterizer converts PDF bytes into per-page PNG images at a fixed scale,
// bounded by a worker-pool semaphore so a burst of document uploads cannot
// starve the process of CPU the way an unbounded fan-out would. Mirrors the
// bounded-concurrency shape of infrastructure/llm.BoundedPool, applied here
// to CPU-bound rasterization instead of outbound LLM calls.
type Rasterizer struct {
	sem   chan struct{}
	scale float64
}

// NewRasterizer builds a Rasterizer allowing at most maxConcurrency
// documents to be rasterized at once, at the given page-render scale
// (spec.md §4.2 calls for 2x).
func NewRasterizer(maxConcurrency int, scale float64) *Rasterizer {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	if scale <= 0 {
		scale = 2.0
	}
	return &Rasterizer{sem: make(chan struct{}, maxConcurrency), scale: scale}
}

// Rasterize renders up to maxPages pages of the PDF in raw as PNG-encoded
// images, off the request's I/O path: go-fitz requires a file on disk, so
// the bytes are spooled to a temp file for the duration of the render.
func (r *Rasterizer) Rasterize(ctx context.Context, raw []byte, maxPages int) ([][]byte, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-r.sem }()

	tmp, err := os.CreateTemp("", "verifyengine-doc-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("spool pdf to temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(raw); err != nil {
		return nil, fmt.Errorf("write pdf temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close pdf temp file: %w", err)
	}

	doc, err := fitz.New(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("open pdf document: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if maxPages > 0 && pageCount > maxPages {
		pageCount = maxPages
	}

	images := make([][]byte, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(i, 72.0*r.scale)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i, err)
		}

		encoded, err := encodePNG(img)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i, err)
		}
		images = append(images, encoded)
	}

	return images, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
