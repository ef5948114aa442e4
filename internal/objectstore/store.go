// Package objectstore provides a content-addressed, write-once byte store
// abstraction over S3-compatible object storage or a local filesystem.
//
// Grounded on manifold's internal/objectstore/{store.go,s3.go,memory.go}:
// same narrow interface shape, generalized here with a write-once contract
// (PutIfAbsent) the teacher's plain Put does not have, because this
// specification requires retries of the same key to be safe and
// idempotent rather than overwriting (original_source/app/infra/storage.py's
// put_bytes_write_once).
package objectstore

import (
	"context"
	"errors"
	"time"
)

// Common errors returned by Store implementations.
var (
	ErrNotFound      = errors.New("objectstore: object not found")
	ErrAccessDenied  = errors.New("objectstore: access denied")
	ErrBucketMissing = errors.New("objectstore: bucket does not exist")
)

// ObjectAttrs describes a stored object.
type ObjectAttrs struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	ContentType  string
}

// Store is the write-once byte store contract every evidence/artifact write
// in this service goes through. Implementations must be safe for concurrent
// use and must make PutIfAbsent idempotent: calling it twice with the same
// key returns the same URI and never overwrites existing bytes (spec.md
// §4.2's write-once guarantee, §5's "retries of the same key are safe").
type Store interface {
	// PutIfAbsent writes data at key unless an object already exists there,
	// in which case the existing object is left untouched. Returns the
	// storage URI in both cases.
	PutIfAbsent(ctx context.Context, key string, data []byte, contentType string) (uri string, err error)

	// Get reads the full bytes stored at key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Head returns object metadata without downloading the content.
	Head(ctx context.Context, key string) (ObjectAttrs, error)

	// SignedURL returns a time-limited read URL for key. The local
	// filesystem backend returns its local://{key} storage URI instead
	// (there is nothing to sign); it does not return a file:// URI.
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// ParseURI splits a storage_uri of the form "s3://bucket/key", "local://key",
// or "mem://key" into (scheme, key), mirroring
// original_source/app/infra/storage.py::parse_storage_uri's scheme dispatch.
func ParseURI(uri string) (scheme, key string, err error) {
	switch {
	case len(uri) >= 5 && uri[:5] == "s3://":
		rest := uri[5:]
		for i, c := range rest {
			if c == '/' {
				return "s3", rest[i+1:], nil
			}
		}
		return "s3", "", nil
	case len(uri) >= 8 && uri[:8] == "local://":
		return "local", uri[8:], nil
	case len(uri) >= 6 && uri[:6] == "mem://":
		return "mem", uri[6:], nil
	default:
		return "", "", errors.New("objectstore: unsupported storage_uri: " + uri)
	}
}

// ReadByURI dereferences a previously returned storage_uri back to bytes by
// parsing out the backend-relative key and delegating to store.Get,
// regardless of which scheme produced the URI.
func ReadByURI(ctx context.Context, store Store, uri string) ([]byte, error) {
	_, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	return store.Get(ctx, key)
}
