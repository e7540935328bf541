package recon

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
)

// Reconciler is the host-facing entry point: it pulls the ledgers, builds the
// candidate index and drives one reconciliation run end to end.
type Reconciler struct {
	entries     EntrySource
	statuses    EntryStatusStore
	collections CollectionSource
	indexer     *Indexer
	engine      *Engine
	scheduler   *Scheduler
	runs        RunStore
}

// NewReconciler wires a reconciler. runs may be nil to disable run
// persistence; everything else is required.
func NewReconciler(entries EntrySource, statuses EntryStatusStore, collections CollectionSource, engine *Engine, scheduler *Scheduler, runs RunStore) *Reconciler {
	return &Reconciler{
		entries:     entries,
		statuses:    statuses,
		collections: collections,
		indexer:     NewIndexer(),
		engine:      engine,
		scheduler:   scheduler,
		runs:        runs,
	}
}

// StartReconciliation runs one reconciliation for the given period.
//
// The run is synchronous and strictly sequential. On a fatal error the
// returned summary still reports the progress committed before the abort;
// because match statuses are persisted entry by entry, calling this again for
// the same period resumes where the failed run stopped.
func (r *Reconciler) StartReconciliation(ctx context.Context, period string, policy MatchPolicy, mode RunMode) (RunSummary, error) {
	run := NewRunContext(period, policy, mode)

	log := logger.WithRun(logger.FromContext(ctx), run.RunID, period, string(mode))
	ctx = logger.WithContext(ctx, log)

	if r.runs != nil {
		if err := r.runs.StartRun(ctx, run); err != nil {
			return RunSummary{RunID: run.RunID, Period: period, Mode: mode}, fmt.Errorf("reconciler: recording run start: %w", err)
		}
	}

	summary, err := r.execute(ctx, run)

	if r.runs != nil {
		if finErr := r.runs.FinishRun(ctx, run, summary, err); finErr != nil {
			log.Warn().Err(finErr).Msg("Failed to record run finish")
		}
	}

	if err != nil {
		log.Error().Err(err).
			Int("processed", summary.Processed).
			Int("matched", summary.Matched).
			Int("skipped", summary.Skipped).
			Msg("Reconciliation aborted")
		return summary, err
	}

	log.Info().
		Int("processed", summary.Processed).
		Int("matched", summary.Matched).
		Int("skipped", summary.Skipped).
		Dur("elapsed", summary.Elapsed).
		Msg("Reconciliation completed")
	return summary, nil
}

func (r *Reconciler) execute(ctx context.Context, run RunContext) (RunSummary, error) {
	summary := RunSummary{RunID: run.RunID, Period: run.Period, Mode: run.Mode}

	entries, err := r.entries.FetchEntries(ctx, run.Period)
	if err != nil {
		return summary, fmt.Errorf("reconciler: fetching source entries: %w", err)
	}

	collections, err := r.collections.FetchCollections(ctx, run.Policy.Scope)
	if err != nil {
		return summary, fmt.Errorf("reconciler: fetching reference collections: %w", err)
	}

	candidates, err := r.indexer.Build(collections)
	if err != nil {
		return summary, err
	}
	if len(candidates) == 0 {
		return summary, &ValidationError{Field: "candidates", Reason: "reference collections produced no candidates"}
	}

	if run.Mode == RunModeTest {
		entries = capEligible(entries, TestModeEntryCap)
	}

	process := func(ctx context.Context, entry *SourceEntry) (Outcome, error) {
		outcome, err := r.engine.Process(ctx, run, entry, candidates, run.Policy)
		if err != nil {
			return outcome, err
		}
		if outcome.Skipped {
			return outcome, nil
		}
		// Persist the transition immediately: this is what lets an aborted
		// run resume without double-aggregating already-matched entries.
		if err := r.statuses.SaveEntryStatus(ctx, run.Period, entry); err != nil {
			return outcome, fmt.Errorf("reconciler: persisting status of entry %s: %w", entry.EntryID, err)
		}
		return outcome, nil
	}

	summary = r.scheduler.Run(ctx, run, entries, process)
	if summary.Aborted() {
		return summary, fmt.Errorf("reconciler: run aborted after %d processed entries: %s", summary.Processed, summary.Errors[0])
	}
	return summary, nil
}

// capEligible truncates the entry list right after the n-th eligible
// (not yet Matched) entry. Already-matched entries encountered along the way
// stay in the list so they are still counted as skips.
func capEligible(entries []*SourceEntry, n int) []*SourceEntry {
	eligible := 0
	for i, e := range entries {
		if e.Status != StatusMatched {
			eligible++
			if eligible == n {
				return entries[:i+1]
			}
		}
	}
	return entries
}
