// Package filter holds the named predicates that decide record visibility.
package filter

import (
	"sort"
	"sync"

	"github.com/bft-labs/logtap/internal/domain"
)

// Predicate reports whether a record is visible.
// Predicates must be pure: they may be called from any goroutine.
type Predicate func(domain.Record) bool

// Registry maps filter names to predicates. A record is visible when every
// registered predicate accepts it; an empty registry accepts everything.
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]Predicate
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]Predicate)}
}

// Add registers pred under name, replacing any previous predicate with that name.
// A nil predicate is ignored.
func (r *Registry) Add(name string, pred Predicate) {
	if pred == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = pred
}

// Remove deletes the predicate registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.filters, name)
}

// Clear removes all predicates.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = make(map[string]Predicate)
}

// Len returns the number of registered predicates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters)
}

// Names returns the registered filter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Evaluate reports whether rec passes every registered predicate.
func (r *Registry) Evaluate(rec domain.Record) bool {
	return all(r.snapshot(), rec)
}

// Filter returns the records of recs that pass every predicate, in order.
// One snapshot of the registry is used for the whole slice.
func (r *Registry) Filter(recs []domain.Record) []domain.Record {
	preds := r.snapshot()
	out := make([]domain.Record, 0, len(recs))
	for _, rec := range recs {
		if all(preds, rec) {
			out = append(out, rec)
		}
	}
	return out
}

// snapshot copies the predicate set so evaluation runs without the lock.
func (r *Registry) snapshot() []Predicate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	preds := make([]Predicate, 0, len(r.filters))
	for _, p := range r.filters {
		preds = append(preds, p)
	}
	return preds
}

func all(preds []Predicate, rec domain.Record) bool {
	for _, p := range preds {
		if !p(rec) {
			return false
		}
	}
	return true
}
