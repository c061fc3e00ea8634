// Package memory provides an in-memory metadata store for development and
// testing. Filter expressions are evaluated directly against the records.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/corpora-io/corpora/internal/core/domain"
	"github.com/corpora-io/corpora/internal/core/filter"
	"github.com/corpora-io/corpora/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.MetadataStore = (*Store)(nil)

// Store is an in-memory implementation of driven.MetadataStore.
type Store struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
}

// New creates a new in-memory metadata store.
func New() *Store {
	return &Store{records: make(map[string]domain.DocumentRecord)}
}

// Save implements driven.MetadataStore. Timestamps are stamped on the
// stored copy; the caller's record is left untouched.
func (s *Store) Save(_ context.Context, record *domain.DocumentRecord) error {
	if record.UID == "" {
		return domain.ErrInvalidInput
	}

	stored := *record
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[stored.UID] = stored
	return nil
}

// Get implements driven.MetadataStore.
func (s *Store) Get(_ context.Context, uid string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &record, nil
}

// Query implements driven.MetadataStore.
func (s *Store) Query(_ context.Context, expr map[string]any) ([]domain.DocumentRecord, error) {
	preds, err := filter.Parse(expr)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DocumentRecord
	for _, record := range s.records {
		if filter.Match(preds, &record) {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Delete implements driven.MetadataStore.
func (s *Store) Delete(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, uid)
	return nil
}

// List implements driven.MetadataStore.
func (s *Store) List(_ context.Context) ([]domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.DocumentRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// Close implements driven.MetadataStore.
func (s *Store) Close() error { return nil }
