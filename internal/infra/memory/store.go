// Package memory provides in-memory implementations of the reconciliation
// storage interfaces. They back dry runs and tests; data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// AggregateStore keeps aggregate cells as raw strings, the way a worksheet
// does: a cell may hold text that does not parse as a number, which surfaces
// as an *recon.AggregationError on Get.
type AggregateStore struct {
	mu    sync.RWMutex
	cells map[string]string
}

// NewAggregateStore creates an empty store.
func NewAggregateStore() *AggregateStore {
	return &AggregateStore{cells: make(map[string]string)}
}

// Seed preloads raw cell values, e.g. from a worksheet export.
func (s *AggregateStore) Seed(cells map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ref, raw := range cells {
		s.cells[ref] = raw
	}
}

// Get returns the numeric value at reference. A missing cell is 0. A cell
// holding non-numeric text returns an *recon.AggregationError.
func (s *AggregateStore) Get(ctx context.Context, reference string) (float64, error) {
	s.mu.RLock()
	raw, ok := s.cells[reference]
	s.mu.RUnlock()

	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, &recon.AggregationError{Reference: reference, Raw: raw}
	}
	return v, nil
}

// Set overwrites the cell at reference with a numeric value.
func (s *AggregateStore) Set(ctx context.Context, reference string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cells[reference] = strconv.FormatFloat(value, 'f', -1, 64)
	return nil
}

// Snapshot returns the current cells sorted by reference, for reporting a
// dry run's end state.
func (s *AggregateStore) Snapshot() []AggregateCell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]AggregateCell, 0, len(s.cells))
	for ref, raw := range s.cells {
		out = append(out, AggregateCell{Reference: ref, Raw: raw})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out
}

// AggregateCell is one reference/value pair from a snapshot.
type AggregateCell struct {
	Reference string
	Raw       string
}

var _ recon.AggregateStore = (*AggregateStore)(nil)
