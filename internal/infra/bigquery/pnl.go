package bigquery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/recon"
	"google.golang.org/api/iterator"
)

// PnlRow mirrors one row of the profit-and-loss worksheet. The same table
// backs both sides of the engine: entity_text feeds the candidate index and
// value_raw is the aggregate cell a matched contribution is added into.
//
// value_raw is a STRING on purpose: worksheet cells can hold text that does
// not parse as a number, and the engine needs to see that as an
// AggregationError rather than a silent zero.
type PnlRow struct {
	Reference  string `bigquery:"reference"`   // REQUIRED, "collection:address"
	Collection string `bigquery:"collection"`  // REQUIRED, e.g. "Expenses"
	RowAddress string `bigquery:"row_address"` // REQUIRED, e.g. "B12"
	EntityText string `bigquery:"entity_text"` // raw name, may be blank

	ValueRaw bigquery.NullString `bigquery:"value_raw"` // aggregate cell

	RowOrder  int64                  `bigquery:"row_order"` // original worksheet order
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// FetchCollections returns the worksheet rows grouped into named collections,
// in worksheet order. Authoritative scope narrows to the configured
// collection; merged scope returns all of them.
func (r *Repository) FetchCollections(ctx context.Context, scope recon.MatchScope) ([]recon.NamedCollection, error) {
	query := fmt.Sprintf(`
		SELECT
			reference,
			collection,
			row_address,
			entity_text,
			value_raw,
			row_order,
			updated_ts
		FROM %s.%s
		%s
		ORDER BY collection, row_order
	`, r.datasetID, pnlTable, scopeFilter(scope))

	q := r.client.Query(query)
	if scope != recon.ScopeMerged {
		q.Parameters = []bigquery.QueryParameter{
			{Name: "collection", Value: r.authoritativeCollection},
		}
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FetchCollections: reading query: %w", err)
	}

	// Rows arrive ordered by collection; fold consecutive runs into one
	// collection each.
	var (
		out     []recon.NamedCollection
		current *recon.Collection
	)
	for {
		var row PnlRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FetchCollections: iterating rows: %w", err)
		}

		if current == nil || current.CollectionName != row.Collection {
			current = &recon.Collection{CollectionName: row.Collection}
			out = append(out, current)
		}
		current.CollectionRows = append(current.CollectionRows, recon.CollectionRow{
			Address: row.RowAddress,
			Text:    row.EntityText,
		})
	}
	return out, nil
}

func scopeFilter(scope recon.MatchScope) string {
	if scope == recon.ScopeMerged {
		return ""
	}
	return "WHERE collection = @collection"
}

// Get reads the aggregate cell at reference. A missing row or blank cell is
// zero; a non-numeric cell is an *recon.AggregationError.
func (r *Repository) Get(ctx context.Context, reference string) (float64, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT value_raw
		FROM %s.%s
		WHERE reference = @reference
	`, r.datasetID, pnlTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "reference", Value: reference},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("Get: reading query: %w", err)
	}

	var row struct {
		ValueRaw bigquery.NullString `bigquery:"value_raw"`
	}
	err = it.Next(&row)
	if err == iterator.Done {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("Get: iterating rows: %w", err)
	}

	if !row.ValueRaw.Valid || strings.TrimSpace(row.ValueRaw.StringVal) == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row.ValueRaw.StringVal), 64)
	if err != nil {
		return 0, &recon.AggregationError{Reference: reference, Raw: row.ValueRaw.StringVal}
	}
	return v, nil
}

// Set writes the aggregate cell at reference.
func (r *Repository) Set(ctx context.Context, reference string, value float64) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET value_raw = @value_raw,
		    updated_ts = @updated_ts
		WHERE reference = @reference
	`, r.datasetID, pnlTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "value_raw", Value: strconv.FormatFloat(value, 'f', -1, 64)},
		{Name: "updated_ts", Value: time.Now().UTC()},
		{Name: "reference", Value: reference},
	}

	return r.runDML(ctx, q, "Set")
}

var (
	_ recon.CollectionSource = (*Repository)(nil)
	_ recon.AggregateStore   = (*Repository)(nil)
)
