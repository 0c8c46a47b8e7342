// Package localconfig implements the project-local configuration store that
// Garden shares with every plugin context. Values live in a single YAML
// document addressed by key paths, e.g. ("kubernetes", "context").
package localconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/terraform-plugin-log/tflog"
	"gopkg.in/yaml.v3"

	"github.com/gardenctx/terraform-provider-garden/internal/backend"
)

// DocumentKey is the backend key under which the store document is kept.
const DocumentKey = "local-config.yml"

// maxWriteAttempts bounds the optimistic read-modify-write loop when other
// processes keep winning the conditional write.
const maxWriteAttempts = 5

// ErrInvalidKeyPath is returned for empty key paths or paths that traverse a
// non-mapping value.
var ErrInvalidKeyPath = errors.New("invalid key path")

// Store reads and writes the local config document through a backend. It is
// safe for concurrent use; writes within a process are serialised and writes
// across processes use conditional puts.
type Store struct {
	backend backend.Backend
	mu      sync.Mutex
}

// New returns a Store persisting through b.
func New(b backend.Backend) *Store {
	return &Store{backend: b}
}

// BackendName returns the name of the underlying backend.
func (s *Store) BackendName() string {
	return s.backend.Name()
}

// load reads the document. A missing document is an empty mapping with a
// zero version.
func (s *Store) load(ctx context.Context) (map[string]any, backend.Version, error) {
	rc, v, err := s.backend.Get(ctx, DocumentKey)
	if errors.Is(err, backend.ErrNotFound) {
		return map[string]any{}, backend.Version{}, nil
	}
	if err != nil {
		return nil, backend.Version{}, fmt.Errorf("localconfig: reading %s: %w", DocumentKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, backend.Version{}, fmt.Errorf("localconfig: reading %s: %w", DocumentKey, err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, backend.Version{}, fmt.Errorf("localconfig: parsing %s: %w", DocumentKey, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, v, nil
}

// All returns the whole document.
func (s *Store) All(ctx context.Context) (map[string]any, error) {
	doc, _, err := s.load(ctx)
	return doc, err
}

// Get returns the value at keyPath, or found=false when any segment is missing.
func (s *Store) Get(ctx context.Context, keyPath ...string) (value any, found bool, err error) {
	if len(keyPath) == 0 {
		return nil, false, ErrInvalidKeyPath
	}

	doc, _, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}

	var cur any = doc
	for _, k := range keyPath {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if cur, ok = m[k]; !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}

// Set stores value at keyPath, creating intermediate mappings as needed.
func (s *Store) Set(ctx context.Context, value any, keyPath ...string) error {
	if len(keyPath) == 0 {
		return ErrInvalidKeyPath
	}

	err := s.update(ctx, func(doc map[string]any) error {
		m := doc
		for _, k := range keyPath[:len(keyPath)-1] {
			next, exists := m[k]
			if !exists {
				child := map[string]any{}
				m[k] = child
				m = child
				continue
			}
			child, ok := next.(map[string]any)
			if !ok {
				return fmt.Errorf("%w: %q is not a mapping", ErrInvalidKeyPath, k)
			}
			m = child
		}
		m[keyPath[len(keyPath)-1]] = value
		return nil
	})
	if err != nil {
		return err
	}

	tflog.Debug(ctx, "set local config value", map[string]interface{}{
		"key_path": keyPath,
		"backend":  s.backend.Name(),
	})
	return nil
}

// Delete removes the value at keyPath. Deleting a missing key is a no-op.
func (s *Store) Delete(ctx context.Context, keyPath ...string) error {
	if len(keyPath) == 0 {
		return ErrInvalidKeyPath
	}

	return s.update(ctx, func(doc map[string]any) error {
		m := doc
		for _, k := range keyPath[:len(keyPath)-1] {
			child, ok := m[k].(map[string]any)
			if !ok {
				return nil
			}
			m = child
		}
		delete(m, keyPath[len(keyPath)-1])
		return nil
	})
}

// update runs an optimistic read-modify-write cycle, retrying when another
// writer changed the document between the read and the conditional put.
func (s *Store) update(ctx context.Context, mutate func(doc map[string]any) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 1; ; attempt++ {
		doc, v, err := s.load(ctx)
		if err != nil {
			return err
		}
		if err := mutate(doc); err != nil {
			return err
		}

		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("localconfig: encoding %s: %w", DocumentKey, err)
		}

		cond := backend.WriteCondition{Match: v}
		if v.IsZero() {
			cond = backend.WriteCondition{MustNotExist: true}
		}

		err = s.backend.ConditionalPut(ctx, DocumentKey, bytes.NewReader(data), cond, backend.PutOptions{ContentType: "application/yaml"})
		if err == nil {
			return nil
		}
		if !errors.Is(err, backend.ErrPreconditionFailed) || attempt >= maxWriteAttempts {
			return fmt.Errorf("localconfig: writing %s: %w", DocumentKey, err)
		}

		tflog.Debug(ctx, "local config changed concurrently, retrying write", map[string]interface{}{
			"attempt": attempt,
			"backend": s.backend.Name(),
		})
	}
}
