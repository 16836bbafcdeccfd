// Package storage provides the scoped key/value store the player keeps its
// credentials and preferences in, and helpers for the keys it uses.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Scope selects who a value belongs to.
type Scope string

// Visibility selects who can read a value.
type Visibility string

const (
	ScopeBoard  Scope = "board"
	ScopeMember Scope = "member"

	Shared  Visibility = "shared"
	Private Visibility = "private"
)

// ErrInvalidScope is returned for an unknown scope or visibility.
var ErrInvalidScope = errors.New("invalid storage scope")

// Store is a scoped key/value store.
type Store interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, scope Scope, vis Visibility, key string) (value string, ok bool, err error)
	Set(ctx context.Context, scope Scope, vis Visibility, key, value string) error
	Remove(ctx context.Context, scope Scope, vis Visibility, key string) error
}

func validate(scope Scope, vis Visibility) error {
	switch scope {
	case ScopeBoard, ScopeMember:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
	}
	switch vis {
	case Shared, Private:
	default:
		return fmt.Errorf("%w: visibility %q", ErrInvalidScope, vis)
	}
	return nil
}

// document is the stored layout: scope, then visibility, then key.
type document map[Scope]map[Visibility]map[string]string

func (d document) get(scope Scope, vis Visibility, key string) (string, bool) {
	v, ok := d[scope][vis][key]
	return v, ok
}

func (d document) set(scope Scope, vis Visibility, key, value string) {
	if d[scope] == nil {
		d[scope] = make(map[Visibility]map[string]string)
	}
	if d[scope][vis] == nil {
		d[scope][vis] = make(map[string]string)
	}
	d[scope][vis][key] = value
}

func (d document) remove(scope Scope, vis Visibility, key string) bool {
	if _, ok := d[scope][vis][key]; !ok {
		return false
	}
	delete(d[scope][vis], key)
	return true
}

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu  sync.RWMutex
	doc document
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{doc: make(document)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, scope Scope, vis Visibility, key string) (string, bool, error) {
	if err := validate(scope, vis); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.doc.get(scope, vis, key)
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, scope Scope, vis Visibility, key, value string) error {
	if err := validate(scope, vis); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.set(scope, vis, key, value)
	return nil
}

// Remove implements Store.
func (s *MemoryStore) Remove(_ context.Context, scope Scope, vis Visibility, key string) error {
	if err := validate(scope, vis); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.remove(scope, vis, key)
	return nil
}
