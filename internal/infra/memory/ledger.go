package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// Ledger is an in-memory transaction/reference ledger pair. It serves as
// EntrySource, EntryStatusStore and CollectionSource for dry runs and tests.
type Ledger struct {
	mu          sync.RWMutex
	entries     map[string][]*recon.SourceEntry // period -> entries, original order
	collections []recon.NamedCollection
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string][]*recon.SourceEntry)}
}

// LoadEntries replaces the entries for a period.
func (l *Ledger) LoadEntries(period string, entries []*recon.SourceEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[period] = entries
}

// LoadCollections replaces the reference collections.
func (l *Ledger) LoadCollections(collections []recon.NamedCollection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collections = collections
}

// FetchEntries returns copies of the period's entries so the engine can
// mutate them without racing other readers.
func (l *Ledger) FetchEntries(ctx context.Context, period string) ([]*recon.SourceEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.entries[period]
	out := make([]*recon.SourceEntry, len(stored))
	for i, e := range stored {
		cp := *e
		out[i] = &cp
	}
	return out, nil
}

// SaveEntryStatus writes the entry's status and matched reference back.
func (l *Ledger) SaveEntryStatus(ctx context.Context, period string, entry *recon.SourceEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, stored := range l.entries[period] {
		if stored.EntryID == entry.EntryID {
			stored.Status = entry.Status
			stored.MatchedReference = entry.MatchedReference
			return nil
		}
	}
	return fmt.Errorf("memory ledger: entry %s not found in period %s", entry.EntryID, period)
}

// FetchCollections returns the loaded collections. Scope does not narrow the
// in-memory ledger: callers load exactly the collections they want matched.
func (l *Ledger) FetchCollections(ctx context.Context, scope recon.MatchScope) ([]recon.NamedCollection, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]recon.NamedCollection, len(l.collections))
	copy(out, l.collections)
	return out, nil
}

var (
	_ recon.EntrySource      = (*Ledger)(nil)
	_ recon.EntryStatusStore = (*Ledger)(nil)
	_ recon.CollectionSource = (*Ledger)(nil)
)
