// Package blobstore defines the document-storage capability interface and an
// S3-backed implementation, adapted from Mindburn-Labs-helm's artifact store
// (core/pkg/artifacts/s3_store.go) — keyed here by "documents/{uuid}.{ext}"
// instead of content hash, since verification documents are mutable per
// re-upload and must be addressable by the document id the pipeline assigns.
package blobstore

import "context"

// BlobStore is the capability interface the document pipeline calls through.
type BlobStore interface {
	// Put stores data under key and returns nothing further; the caller
	// already knows the key it asked for.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// DocumentKey builds the content-addressed-by-id key scheme the engine uses
// for uploaded verification documents.
func DocumentKey(documentID, extension string) string {
	return "documents/" + documentID + "." + extension
}
