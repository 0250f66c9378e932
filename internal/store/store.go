// Package store buffers captured records for a session.
package store

import (
	"sync"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/filter"
)

// Store holds the records of a capture session in two ordered partitions:
// pending records appended by the stream drain, and committed records
// visible to readers. Only CommitPending moves records between them.
// All methods are safe for concurrent use and never return internal slices.
type Store struct {
	mu        sync.Mutex
	committed []domain.Record
	pending   []domain.Record
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// AppendPending adds rec to the end of the pending partition.
func (s *Store) AppendPending(rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, rec)
}

// CommitPending moves all pending records to the end of the committed
// partition and returns them in arrival order. It returns nil when
// nothing was pending.
func (s *Store) CommitPending() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}
	moved := s.pending
	s.committed = append(s.committed, moved...)
	s.pending = nil
	return moved
}

// All returns a copy of the committed records.
func (s *Store) All() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Record, len(s.committed))
	copy(out, s.committed)
	return out
}

// Filtered returns the committed records that pass reg.
func (s *Store) Filtered(reg *filter.Registry) []domain.Record {
	return reg.Filter(s.All())
}

// Len returns the number of committed records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.committed)
}

// PendingLen returns the number of records awaiting commit.
func (s *Store) PendingLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Clear drops both partitions.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = nil
	s.pending = nil
}
