package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"google.golang.org/api/iterator"
)

// Run lifecycle states recorded in finance.reconcile_runs.
const (
	runStatusRunning = "RUNNING"
	runStatusSuccess = "SUCCESS"
	runStatusFailed  = "FAILED"
)

// RunRow is one reconciliation run record.
type RunRow struct {
	RunID  string `bigquery:"run_id"`
	Period string `bigquery:"period"`
	Mode   string `bigquery:"mode"`

	Scope     string  `bigquery:"scope"`
	Threshold float64 `bigquery:"threshold"`

	Status       string              `bigquery:"status"`
	ErrorMessage bigquery.NullString `bigquery:"error_message"`

	Processed int64 `bigquery:"processed"`
	Matched   int64 `bigquery:"matched"`
	Skipped   int64 `bigquery:"skipped"`
	ElapsedMS int64 `bigquery:"elapsed_ms"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`
}

// StartRun records a run as RUNNING.
func (r *Repository) StartRun(ctx context.Context, run recon.RunContext) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT INTO %s.%s (
			run_id,
			period,
			mode,
			scope,
			threshold,
			status,
			started_ts
		)
		VALUES (
			@run_id,
			@period,
			@mode,
			@scope,
			@threshold,
			@status,
			@started_ts
		)
	`, r.datasetID, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: run.RunID},
		{Name: "period", Value: run.Period},
		{Name: "mode", Value: string(run.Mode)},
		{Name: "scope", Value: string(run.Policy.Scope)},
		{Name: "threshold", Value: run.Policy.Threshold},
		{Name: "status", Value: runStatusRunning},
		{Name: "started_ts", Value: run.StartedAt},
	}

	return r.runDML(ctx, q, "StartRun")
}

// FinishRun records the run's terminal state and counters.
func (r *Repository) FinishRun(ctx context.Context, run recon.RunContext, summary recon.RunSummary, runErr error) error {
	status := runStatusSuccess
	errMsg := ""
	if runErr != nil {
		status = runStatusFailed
		errMsg = runErr.Error()
		const maxLen = 2000
		if len(errMsg) > maxLen {
			errMsg = errMsg[:maxLen]
		}
	}

	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    error_message = @error_message,
		    processed = @processed,
		    matched = @matched,
		    skipped = @skipped,
		    elapsed_ms = @elapsed_ms,
		    finished_ts = @finished_ts
		WHERE run_id = @run_id
	`, r.datasetID, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "error_message", Value: errMsg},
		{Name: "processed", Value: int64(summary.Processed)},
		{Name: "matched", Value: int64(summary.Matched)},
		{Name: "skipped", Value: int64(summary.Skipped)},
		{Name: "elapsed_ms", Value: summary.Elapsed.Milliseconds()},
		{Name: "finished_ts", Value: time.Now().UTC()},
		{Name: "run_id", Value: run.RunID},
	}

	return r.runDML(ctx, q, "FinishRun")
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, r.datasetID, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: reading query: %w", err)
	}

	var out []*RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating rows: %w", err)
		}
		out = append(out, &row)
	}
	return out, nil
}

var _ recon.RunStore = (*Repository)(nil)
