package recon

import (
	"context"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
)

// Scheduler defaults. The oracle enforces external rate limits, so pacing is
// mandatory: a fixed delay after every oracle call and a longer one between
// batches stand in for real concurrency control.
const (
	DefaultBatchSize     = 10
	DefaultPerCallDelay  = 1 * time.Second
	DefaultPerBatchDelay = 5 * time.Second
)

// SchedulerConfig controls batching and pacing. Zero values fall back to the
// package defaults.
type SchedulerConfig struct {
	BatchSize     int
	PerCallDelay  time.Duration
	PerBatchDelay time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.PerCallDelay <= 0 {
		c.PerCallDelay = DefaultPerCallDelay
	}
	if c.PerBatchDelay <= 0 {
		c.PerBatchDelay = DefaultPerBatchDelay
	}
	return c
}

// ProcessFunc decides one entry. It is the scheduler's only view of the
// engine.
type ProcessFunc func(ctx context.Context, entry *SourceEntry) (Outcome, error)

// Scheduler chunks entries into fixed-size batches and walks them strictly
// sequentially, pacing oracle calls and pushing progress after every entry.
type Scheduler struct {
	cfg      SchedulerConfig
	progress ProgressSink
}

// NewScheduler builds a scheduler. progress may be nil.
func NewScheduler(cfg SchedulerConfig, progress ProgressSink) *Scheduler {
	return &Scheduler{cfg: cfg.withDefaults(), progress: progress}
}

// Run processes entries one at a time, batch by batch. The first error from
// process aborts the run; everything committed for earlier entries stands and
// is reported in the summary. Context cancellation aborts the same way.
func (s *Scheduler) Run(ctx context.Context, run RunContext, entries []*SourceEntry, process ProcessFunc) RunSummary {
	log := logger.FromContext(ctx)
	started := time.Now()

	summary := RunSummary{
		RunID:  run.RunID,
		Period: run.Period,
		Mode:   run.Mode,
	}

	total := len(entries)
	for batchStart := 0; batchStart < total; batchStart += s.cfg.BatchSize {
		batchEnd := batchStart + s.cfg.BatchSize
		if batchEnd > total {
			batchEnd = total
		}

		log.Info().
			Int("batch_start", batchStart).
			Int("batch_end", batchEnd).
			Int("total", total).
			Msg("Starting batch")

		for _, entry := range entries[batchStart:batchEnd] {
			outcome, err := process(ctx, entry)
			if err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				summary.Elapsed = time.Since(started)
				log.Error().
					Err(err).
					Str("entry_id", entry.EntryID).
					Int("processed", summary.Processed).
					Msg("Run aborted; prior progress stands")
				return summary
			}

			if outcome.Skipped {
				summary.Skipped++
			} else {
				summary.Processed++
				if outcome.Accepted {
					summary.Matched++
				}
			}

			s.pushProgress(ProgressStats{
				Processed: summary.Processed,
				Matched:   summary.Matched,
				Skipped:   summary.Skipped,
				ElapsedMS: time.Since(started).Milliseconds(),
			})

			// Skipped entries never reached the oracle, so no pacing.
			if !outcome.Skipped {
				if err := sleepCtx(ctx, s.cfg.PerCallDelay); err != nil {
					summary.Errors = append(summary.Errors, err.Error())
					summary.Elapsed = time.Since(started)
					return summary
				}
			}
		}

		if batchEnd < total {
			if err := sleepCtx(ctx, s.cfg.PerBatchDelay); err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				summary.Elapsed = time.Since(started)
				return summary
			}
		}
	}

	summary.Elapsed = time.Since(started)
	return summary
}

// pushProgress delivers counters to the sink. The sink is fire-and-forget:
// a panicking sink must not take the run down with it.
func (s *Scheduler) pushProgress(stats ProgressStats) {
	if s.progress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.progress.OnProgress(stats)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
