package recon

import "context"

// NamedCollection is one reference sub-list (e.g. the "Expenses" block of a
// P&L worksheet) exposed to the indexer.
type NamedCollection interface {
	Name() string
	Rows() []CollectionRow
}

// CollectionRow is one addressable row of a named collection. Address is the
// stable cell address within the collection (e.g. "B12"), Text the raw name.
type CollectionRow struct {
	Address string
	Text    string
}

// Collection is the plain-struct implementation of NamedCollection used by
// ledger parsers and tests.
type Collection struct {
	CollectionName string
	CollectionRows []CollectionRow
}

func (c *Collection) Name() string          { return c.CollectionName }
func (c *Collection) Rows() []CollectionRow { return c.CollectionRows }

// MatchOracle resolves a noisy entity name against a candidate set. It never
// returns an error: transport and schema failures degrade to the zero-value
// NoMatch decision inside the client so one bad entry cannot abort a batch.
type MatchOracle interface {
	FindBestMatch(ctx context.Context, query string, candidates []CandidateRecord) MatchDecision
}

// AggregateStore is the numeric accumulator of the reference ledger, addressed
// by candidate reference. Get returns an *AggregationError when the stored
// value is not numeric.
type AggregateStore interface {
	Get(ctx context.Context, reference string) (float64, error)
	Set(ctx context.Context, reference string, value float64) error
}

// AuditSink receives the append-only decision trail. Implementations must
// preserve append order; no update or delete operation exists.
type AuditSink interface {
	Append(ctx context.Context, rec AuditRecord) error
}

// ProgressSink receives incremental counters after every handled entry.
// Push-based and fire-and-forget: a failing sink must not abort the run.
type ProgressSink interface {
	OnProgress(stats ProgressStats)
}

// ProgressFunc adapts a function to the ProgressSink interface.
type ProgressFunc func(stats ProgressStats)

func (f ProgressFunc) OnProgress(stats ProgressStats) { f(stats) }

// EntrySource yields the source entries of the transaction ledger for one
// reconciliation period, with their persisted match status from prior runs.
type EntrySource interface {
	FetchEntries(ctx context.Context, period string) ([]*SourceEntry, error)
}

// EntryStatusStore persists per-entry match status as the run progresses, so
// an aborted run can resume without redoing (or double-aggregating) entries.
type EntryStatusStore interface {
	SaveEntryStatus(ctx context.Context, period string, entry *SourceEntry) error
}

// CollectionSource yields the current reference collections for a scope.
type CollectionSource interface {
	FetchCollections(ctx context.Context, scope MatchScope) ([]NamedCollection, error)
}

// RunStore records run lifecycle for later inspection. Optional: a nil
// RunStore disables run persistence.
type RunStore interface {
	StartRun(ctx context.Context, run RunContext) error
	FinishRun(ctx context.Context, run RunContext, summary RunSummary, runErr error) error
}
