package backend

import (
	"fmt"
	"strings"
)

// New creates a Backend based on the provided Config, wrapping remote
// backends in a RetryBackend when MaxRetries > 0.
func New(cfg Config) (Backend, error) {
	var (
		b   Backend
		err error
	)

	switch cfg.Type {
	case "", "file":
		return newFileBackend(cfg)
	case "memory":
		return GetOrCreateMemoryBackend(cfg.Name), nil
	case "s3":
		b, err = newS3Backend(cfg)
	case "azure":
		b, err = newAzureBackend(cfg)
	case "gcs":
		b, err = newGCSBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %q (must be file, memory, s3, azure, or gcs)", cfg.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("creating %s backend %q: %w", cfg.Type, cfg.Name, err)
	}

	if cfg.MaxRetries > 0 {
		b = NewRetryBackend(b, cfg.MaxRetries, cfg.RetryBackoff)
	}

	return b, nil
}

// normalizePrefix makes a non-empty prefix end in exactly one slash.
func normalizePrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return strings.TrimRight(prefix, "/") + "/"
}
