package recon

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/google/uuid"
)

// Engine performs per-entry decisioning: idempotency guard, threshold policy,
// additive aggregation, status transition, audit append.
type Engine struct {
	oracle MatchOracle
	store  AggregateStore
	audit  AuditSink
}

// NewEngine wires the engine's collaborators. All three are required.
func NewEngine(oracle MatchOracle, store AggregateStore, audit AuditSink) *Engine {
	return &Engine{
		oracle: oracle,
		store:  store,
		audit:  audit,
	}
}

// Process decides one source entry against the candidate set.
//
// Entries already Matched return immediately with Outcome.Skipped set: the
// oracle is not consulted and no aggregate is touched, which is what makes
// rerunning a period safe. NoMatch entries are decided again, so they recover
// once the reference data improves.
//
// A structural problem (blank name, invalid amount, empty candidate set) is a
// *ValidationError and aborts the calling batch unit. Oracle failures never
// reach here: the client degrades them to a NoMatch decision.
func (e *Engine) Process(ctx context.Context, run RunContext, entry *SourceEntry, candidates []CandidateRecord, policy MatchPolicy) (Outcome, error) {
	if entry.Status == StatusMatched {
		return Outcome{Skipped: true}, nil
	}

	if err := validateEntry(entry, candidates); err != nil {
		return Outcome{}, err
	}

	log := logger.FromContext(ctx)

	started := time.Now()
	decision := e.oracle.FindBestMatch(ctx, entry.Name, candidates)
	latency := time.Since(started)

	accepted := decision.Matched && decision.Confidence > policy.Threshold

	rec := AuditRecord{
		RecordID:   uuid.New().String(),
		RunID:      run.RunID,
		Period:     run.Period,
		EntryID:    entry.EntryID,
		EntryName:  entry.Name,
		Confidence: decision.Confidence,
		Accepted:   accepted,
		LatencyMS:  latency.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}

	if accepted {
		prev, err := e.store.Get(ctx, decision.Reference)
		if err != nil {
			var aggErr *AggregationError
			if !errors.As(err, &aggErr) {
				return Outcome{}, fmt.Errorf("engine: reading aggregate %s: %w", decision.Reference, err)
			}
			// Non-numeric cell: treat as zero, keep going, leave a trace.
			prev = 0
			rec.Warning = aggErr.Error()
			log.Warn().
				Str("entry_id", entry.EntryID).
				Str("reference", decision.Reference).
				Msg("Aggregate cell not numeric, treating as zero")
		}

		next := prev + entry.Amount
		if err := e.store.Set(ctx, decision.Reference, next); err != nil {
			return Outcome{}, fmt.Errorf("engine: writing aggregate %s: %w", decision.Reference, err)
		}

		entry.Status = StatusMatched
		entry.MatchedReference = decision.Reference

		rec.MatchedText = candidateText(candidates, decision.Reference)
		rec.MatchedReference = decision.Reference
		rec.Contribution = entry.Amount
		rec.PreviousValue = prev
		rec.NewValue = next
	} else {
		entry.Status = StatusNoMatch
		entry.MatchedReference = ""
	}

	if err := e.audit.Append(ctx, rec); err != nil {
		return Outcome{}, fmt.Errorf("engine: appending audit record for entry %s: %w", entry.EntryID, err)
	}

	log.Info().
		Str("entry_id", entry.EntryID).
		Str("entry_name", entry.Name).
		Bool("accepted", accepted).
		Float64("confidence", decision.Confidence).
		Str("reference", decision.Reference).
		Dur("latency", latency).
		Msg("Entry decided")

	return Outcome{Accepted: accepted, Decision: decision}, nil
}

func validateEntry(entry *SourceEntry, candidates []CandidateRecord) error {
	if strings.TrimSpace(entry.Name) == "" {
		return &ValidationError{Field: "entry.name", Reason: fmt.Sprintf("entry %s has no name", entry.EntryID)}
	}
	if math.IsNaN(entry.Amount) || math.IsInf(entry.Amount, 0) {
		return &ValidationError{Field: "entry.amount", Reason: fmt.Sprintf("entry %s has invalid amount", entry.EntryID)}
	}
	if len(candidates) == 0 {
		return &ValidationError{Field: "candidates", Reason: "candidate set is empty"}
	}
	return nil
}

func candidateText(candidates []CandidateRecord, reference string) string {
	for _, c := range candidates {
		if c.Reference == reference {
			return c.Text
		}
	}
	return ""
}
