package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"google.golang.org/api/iterator"
)

// EntryRow is one invoice line in finance.invoice_entries.
type EntryRow struct {
	EntryID    string `bigquery:"entry_id"`    // REQUIRED
	Period     string `bigquery:"period"`      // REQUIRED, e.g. "2026-07"
	EntityName string `bigquery:"entity_name"` // REQUIRED

	Amount    float64    `bigquery:"amount"`     // REQUIRED
	IssueDate civil.Date `bigquery:"issue_date"` // invoice issue date

	MatchStatus      string              `bigquery:"match_status"`      // UNPROCESSED | MATCHED | NO_MATCH
	MatchedReference bigquery.NullString `bigquery:"matched_reference"` // NULLABLE

	RowOrder  int64                  `bigquery:"row_order"` // original ledger order
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// FetchEntries returns the period's invoice entries in original ledger order,
// with the match status persisted by prior runs.
func (r *Repository) FetchEntries(ctx context.Context, period string) ([]*recon.SourceEntry, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			entry_id,
			period,
			entity_name,
			amount,
			issue_date,
			match_status,
			matched_reference,
			row_order,
			updated_ts
		FROM %s.%s
		WHERE period = @period
		ORDER BY row_order
	`, r.datasetID, entriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "period", Value: period},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchEntries: reading query: %w", err)
	}

	var out []*recon.SourceEntry
	for {
		var row EntryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FetchEntries: iterating rows: %w", err)
		}

		entry := &recon.SourceEntry{
			EntryID: row.EntryID,
			Name:    row.EntityName,
			Amount:  row.Amount,
			Status:  recon.MatchStatus(row.MatchStatus),
		}
		if entry.Status == "" {
			entry.Status = recon.StatusUnprocessed
		}
		if row.MatchedReference.Valid {
			entry.MatchedReference = row.MatchedReference.StringVal
		}
		out = append(out, entry)
	}
	return out, nil
}

// SaveEntryStatus persists one entry's status transition.
func (r *Repository) SaveEntryStatus(ctx context.Context, period string, entry *recon.SourceEntry) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET match_status = @match_status,
		    matched_reference = @matched_reference,
		    updated_ts = @updated_ts
		WHERE period = @period AND entry_id = @entry_id
	`, r.datasetID, entriesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "match_status", Value: string(entry.Status)},
		{Name: "matched_reference", Value: entry.MatchedReference},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "period", Value: period},
		{Name: "entry_id", Value: entry.EntryID},
	}

	return r.runDML(ctx, q, "SaveEntryStatus")
}

var (
	_ recon.EntrySource      = (*Repository)(nil)
	_ recon.EntryStatusStore = (*Repository)(nil)
)
