package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileBackend stores documents as files below a directory, usually the
// project's .garden directory. ETags are content hashes, so a conditional
// write detects any change made since the document was read.
type fileBackend struct {
	dir  string
	name string
	mu   sync.Mutex
}

func newFileBackend(cfg Config) (Backend, error) {
	if cfg.Dir == "" {
		return nil, errors.New("file backend requires a directory")
	}
	return &fileBackend{dir: cfg.Dir, name: cfg.Name}, nil
}

func (f *fileBackend) Name() string {
	return f.name
}

func (f *fileBackend) path(key string) string {
	return filepath.Join(f.dir, filepath.FromSlash(key))
}

func contentETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

func (f *fileBackend) read(key string) ([]byte, error) {
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("file read %q: %w", key, err)
	}
	return data, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (f *fileBackend) write(key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	p := f.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("file mkdir for %q: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("file create temp for %q: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file write %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file close %q: %w", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file rename %q: %w", key, err)
	}
	return nil
}

func (f *fileBackend) Get(_ context.Context, key string) (io.ReadCloser, Version, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.read(key)
	if err != nil {
		return nil, Version{}, err
	}
	return io.NopCloser(bytes.NewReader(data)), Version{ETag: contentETag(data)}, nil
}

func (f *fileBackend) Put(_ context.Context, key string, body io.Reader, _ PutOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(key, body)
}

func (f *fileBackend) ConditionalPut(_ context.Context, key string, body io.Reader, cond WriteCondition, _ PutOptions) error {
	if !cond.MustNotExist && cond.Match.IsZero() {
		return errEmptyCondition
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	existing, err := f.read(key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if cond.MustNotExist && exists {
		return ErrPreconditionFailed
	}
	if !cond.Match.IsZero() && (!exists || contentETag(existing) != cond.Match.ETag) {
		return ErrPreconditionFailed
	}

	return f.write(key, body)
}

func (f *fileBackend) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file delete %q: %w", key, err)
	}
	return nil
}
