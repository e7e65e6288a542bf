package asset

import (
	"context"
	"slices"
	"sync"
)

var (
	_ Source = (*MemStore)(nil)
	_ Lister = (*MemStore)(nil)
)

// MemStore is a thread-safe in-memory asset catalog. The zero value is ready
// to use.
type MemStore struct {
	mu     sync.RWMutex
	assets map[string]Asset
}

// NewMemStore returns a store holding assets. Invalid assets are skipped.
func NewMemStore(assets ...Asset) *MemStore {
	s := &MemStore{assets: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		_ = s.Add(a)
	}
	return s
}

// Add inserts or replaces an asset.
func (s *MemStore) Add(a Asset) error {
	if err := a.Validate(); err != nil {
		return err
	}
	a.Name = Normalize(a.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.assets == nil {
		s.assets = make(map[string]Asset)
	}
	s.assets[a.Name] = a
	return nil
}

// Remove deletes an asset. Removing an unknown name is a no-op.
func (s *MemStore) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assets, Normalize(name))
}

// Get returns the asset called name or [ErrNotFound].
func (s *MemStore) Get(name string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[Normalize(name)]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

// Exists implements [Source].
func (s *MemStore) Exists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[Normalize(name)]
	return ok, nil
}

// Names implements [Lister]. Names are sorted.
func (s *MemStore) Names(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.assets))
	for n := range s.assets {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// Len returns the number of assets.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assets)
}
