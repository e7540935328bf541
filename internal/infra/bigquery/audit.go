package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"google.golang.org/api/iterator"
)

// AuditRow is one immutable line of finance.audit_records. Rows are only ever
// streamed in; no update or delete path exists anywhere in this package.
type AuditRow struct {
	RecordID string `bigquery:"record_id"`
	RunID    string `bigquery:"run_id"`
	Period   string `bigquery:"period"`

	EntryID   string `bigquery:"entry_id"`
	EntryName string `bigquery:"entry_name"`

	MatchedText      bigquery.NullString `bigquery:"matched_text"`
	MatchedReference bigquery.NullString `bigquery:"matched_reference"`

	Contribution  float64 `bigquery:"contribution"`
	PreviousValue float64 `bigquery:"previous_value"`
	NewValue      float64 `bigquery:"new_value"`

	Confidence float64 `bigquery:"confidence"`
	Accepted   bool    `bigquery:"accepted"`

	Warning bigquery.NullString `bigquery:"warning"`

	LatencyMS int64     `bigquery:"latency_ms"`
	Timestamp time.Time `bigquery:"record_ts"`
}

// Append streams one audit record into the audit table.
func (r *Repository) Append(ctx context.Context, rec recon.AuditRecord) error {
	row := &AuditRow{
		RecordID:      rec.RecordID,
		RunID:         rec.RunID,
		Period:        rec.Period,
		EntryID:       rec.EntryID,
		EntryName:     rec.EntryName,
		Contribution:  rec.Contribution,
		PreviousValue: rec.PreviousValue,
		NewValue:      rec.NewValue,
		Confidence:    rec.Confidence,
		Accepted:      rec.Accepted,
		LatencyMS:     rec.LatencyMS,
		Timestamp:     rec.Timestamp,
	}
	if rec.MatchedText != "" {
		row.MatchedText = bigquery.NullString{StringVal: rec.MatchedText, Valid: true}
	}
	if rec.MatchedReference != "" {
		row.MatchedReference = bigquery.NullString{StringVal: rec.MatchedReference, Valid: true}
	}
	if rec.Warning != "" {
		row.Warning = bigquery.NullString{StringVal: rec.Warning, Valid: true}
	}

	table := r.client.DatasetInProject(r.projectID, r.datasetID).Table(auditTable)
	inserter := table.Inserter()
	if err := inserter.Put(ctx, []*AuditRow{row}); err != nil {
		return fmt.Errorf("Append: inserting audit row: %w", err)
	}
	return nil
}

// QueryAuditByRun returns a run's audit trail in processing order.
func (r *Repository) QueryAuditByRun(ctx context.Context, runID string) ([]*AuditRow, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE run_id = @run_id
		ORDER BY record_ts
	`, r.datasetID, auditTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: runID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryAuditByRun: reading query: %w", err)
	}

	var out []*AuditRow
	for {
		var row AuditRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryAuditByRun: iterating rows: %w", err)
		}
		out = append(out, &row)
	}
	return out, nil
}

var _ recon.AuditSink = (*Repository)(nil)
