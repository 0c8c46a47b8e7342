package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

type memoryDocument struct {
	data       []byte
	generation int64
	etag       string
}

// MemoryBackend is an in-memory implementation of Backend, intended for
// tests. It honours both ETag and generation preconditions.
type MemoryBackend struct {
	name       string
	mu         sync.RWMutex
	docs       map[string]*memoryDocument
	genCounter atomic.Int64
}

// NewMemoryBackend creates a new in-memory Backend with the given name.
func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		name: name,
		docs: make(map[string]*memoryDocument),
	}
}

func (m *MemoryBackend) Name() string {
	return m.name
}

// store must be called with m.mu held for writing.
func (m *MemoryBackend) store(key string, data []byte) {
	gen := m.genCounter.Add(1)
	m.docs[key] = &memoryDocument{
		data:       data,
		generation: gen,
		etag:       fmt.Sprintf(`"%d"`, gen),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (io.ReadCloser, Version, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key]
	if !ok {
		return nil, Version{}, ErrNotFound
	}

	buf := make([]byte, len(doc.data))
	copy(buf, doc.data)

	return io.NopCloser(bytes.NewReader(buf)), Version{ETag: doc.etag, Generation: doc.generation}, nil
}

func (m *MemoryBackend) Put(_ context.Context, key string, body io.Reader, _ PutOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store(key, data)
	return nil
}

func (m *MemoryBackend) ConditionalPut(_ context.Context, key string, body io.Reader, cond WriteCondition, _ PutOptions) error {
	if !cond.MustNotExist && cond.Match.IsZero() {
		return errEmptyCondition
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, exists := m.docs[key]

	if cond.MustNotExist && exists {
		return ErrPreconditionFailed
	}
	if !cond.Match.IsZero() {
		if !exists {
			return ErrPreconditionFailed
		}
		if cond.Match.ETag != "" && existing.etag != cond.Match.ETag {
			return ErrPreconditionFailed
		}
		if cond.Match.Generation != 0 && existing.generation != cond.Match.Generation {
			return ErrPreconditionFailed
		}
	}

	m.store(key, data)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, key)
	return nil
}

// memoryRegistry keeps MemoryBackend instances alive across provider
// re-initializations; terraform-plugin-testing re-creates the provider
// between test steps.
var (
	memoryRegistryMu sync.Mutex
	memoryRegistry   = make(map[string]*MemoryBackend)
)

// GetOrCreateMemoryBackend returns the registered MemoryBackend with the
// given name, creating it on first use.
func GetOrCreateMemoryBackend(name string) *MemoryBackend {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()

	if b, ok := memoryRegistry[name]; ok {
		return b
	}

	b := NewMemoryBackend(name)
	memoryRegistry[name] = b
	return b
}

// ResetMemoryBackends clears the global MemoryBackend registry.
func ResetMemoryBackends() {
	memoryRegistryMu.Lock()
	defer memoryRegistryMu.Unlock()

	memoryRegistry = make(map[string]*MemoryBackend)
}
