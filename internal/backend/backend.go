// Package backend provides the object stores used to persist project-local
// state such as the local config document. Each backend stores opaque byte
// documents under string keys and supports optimistic writes so that several
// processes sharing one project do not clobber each other.
package backend

import (
	"context"
	"errors"
	"io"
)

// Sentinel errors returned by every backend.
var (
	ErrNotFound           = errors.New("document not found")
	ErrPreconditionFailed = errors.New("precondition failed: document was modified by another process")
)

// Version identifies the revision of a stored document. Backends fill in
// whichever field they natively support.
type Version struct {
	ETag       string // S3, Azure, file, memory
	Generation int64  // GCS, memory
}

// IsZero reports whether v carries no revision information.
func (v Version) IsZero() bool {
	return v.ETag == "" && v.Generation == 0
}

// WriteCondition is the precondition for ConditionalPut. A zero Match with
// MustNotExist unset is rejected by ConditionalPut implementations.
type WriteCondition struct {
	// Match requires the stored document to be at exactly this version.
	Match Version
	// MustNotExist requires that no document is stored under the key.
	MustNotExist bool
}

// PutOptions controls optional behavior for Put and ConditionalPut.
type PutOptions struct {
	ContentType string
}

// Backend is the storage abstraction for project-local documents.
type Backend interface {
	// Get retrieves a document. Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, Version, error)
	// Put writes a document unconditionally.
	Put(ctx context.Context, key string, body io.Reader, opts PutOptions) error
	// ConditionalPut writes a document only if cond holds. Returns
	// ErrPreconditionFailed otherwise.
	ConditionalPut(ctx context.Context, key string, body io.Reader, cond WriteCondition, opts PutOptions) error
	// Delete removes a document. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Name returns the backend name for logging.
	Name() string
}

// Config holds the configuration used by New to construct a Backend.
type Config struct {
	Name           string
	Type           string // "file", "memory", "s3", "azure", "gcs"
	Dir            string // file
	Bucket         string // s3, gcs
	Region         string // s3
	KMSKeyID       string // s3
	StorageAccount string // azure
	ContainerName  string // azure
	KMSKeyName     string // gcs
	Prefix         string
	MaxRetries     int
	RetryBackoff   string // "exponential" | "linear"
}

var errEmptyCondition = errors.New("backend: write condition must set Match or MustNotExist")
