// Package bigquery persists the reconciliation state: source-entry match
// status, P&L worksheet rows (candidate text + aggregate cells), the audit
// trail and run records.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
)

const (
	entriesTable = "invoice_entries"
	pnlTable     = "pnl_rows"
	auditTable   = "audit_records"
	runsTable    = "reconcile_runs"
)

// Repository holds a shared BigQuery client plus dataset coordinates. It
// implements the recon storage interfaces (EntrySource, EntryStatusStore,
// CollectionSource, AggregateStore, AuditSink, RunStore).
type Repository struct {
	client    *bigquery.Client
	projectID string
	datasetID string

	// authoritativeCollection is the single collection searched when the
	// run scope is authoritative (merged scope searches all collections).
	authoritativeCollection string
}

// NewRepository creates a repository with its own BigQuery client.
// Credentials come from Application Default Credentials.
func NewRepository(ctx context.Context, projectID, datasetID, authoritativeCollection string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewRepository: bigquery client: %w", err)
	}
	return &Repository{
		client:                  client,
		projectID:               projectID,
		datasetID:               datasetID,
		authoritativeCollection: authoritativeCollection,
	}, nil
}

// Close closes the underlying BigQuery client.
func (r *Repository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// runDML executes a DML statement and waits for it to finish.
func (r *Repository) runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running query: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
