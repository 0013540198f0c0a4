// Package prefs persists per-workspace UI preferences: dragged node positions
// and simulation parameter overrides. Stores hold whole documents under a key;
// persisters keep a document in memory and write it back through a debouncer.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"
)

// Preference keys.
const (
	KeyPositions  = "graph_positions"
	KeyParameters = "graph_simulation_params"
)

var (
	ErrNotFound    = errors.New("preference not found")
	ErrCorrupt     = errors.New("preference document is corrupt")
	ErrStoreClosed = errors.New("preference store is closed")
	ErrInvalidKey  = errors.New("invalid preference key")
)

// Entry is one stored value with the time (unix millis) it was written.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

// Document is the value stored under a preference key.
type Document struct {
	Data map[string]Entry `json:"data"`
}

// Clone returns a copy that shares no map with d.
func (d Document) Clone() Document {
	return Document{Data: maps.Clone(d.Data)}
}

// Store reads and writes preference documents for one workspace.
type Store interface {
	Get(ctx context.Context, key string) (Document, error)
	Set(ctx context.Context, key string, doc Document) error
	Delete(ctx context.Context, key string) (bool, error)
}

// StoreError describes a failed store operation.
type StoreError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("prefs %s %q: %v", e.Op, e.Key, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func validKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	for _, r := range key {
		if !(r == '_' || r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// MemoryStore keeps documents in memory.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return Document{}, &StoreError{Op: "get", Key: key, Cause: ErrNotFound}
	}
	return doc.Clone(), nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validKey(key); err != nil {
		return &StoreError{Op: "set", Key: key, Cause: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[key] = doc.Clone()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.docs[key]
	delete(m.docs, key)
	return ok, nil
}
