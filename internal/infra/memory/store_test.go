package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

func TestAggregateStore_GetMissingCellIsZero(t *testing.T) {
	store := NewAggregateStore()

	v, err := store.Get(context.Background(), "Expenses:B2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected 0 for missing cell, got %v", v)
	}
}

func TestAggregateStore_GetBlankCellIsZero(t *testing.T) {
	store := NewAggregateStore()
	store.Seed(map[string]string{"Expenses:B2": "   "})

	v, err := store.Get(context.Background(), "Expenses:B2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 0 {
		t.Errorf("Expected 0 for blank cell, got %v", v)
	}
}

func TestAggregateStore_GetNonNumericCell(t *testing.T) {
	store := NewAggregateStore()
	store.Seed(map[string]string{"Expenses:B2": "see note 4"})

	_, err := store.Get(context.Background(), "Expenses:B2")
	if err == nil {
		t.Fatal("Expected error for non-numeric cell, got nil")
	}

	var aggErr *recon.AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("Expected *recon.AggregationError, got %T: %v", err, err)
	}
	if aggErr.Reference != "Expenses:B2" || aggErr.Raw != "see note 4" {
		t.Errorf("Unexpected error payload: %+v", aggErr)
	}
}

func TestAggregateStore_SetThenGetRoundTrip(t *testing.T) {
	store := NewAggregateStore()
	ctx := context.Background()

	if err := store.Set(ctx, "Expenses:B2", 120.50); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := store.Get(ctx, "Expenses:B2")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 120.50 {
		t.Errorf("Expected 120.50, got %v", v)
	}
}

func TestAggregateStore_SetRepairsNonNumericCell(t *testing.T) {
	store := NewAggregateStore()
	ctx := context.Background()
	store.Seed(map[string]string{"Expenses:B2": "tbd"})

	if err := store.Set(ctx, "Expenses:B2", 42); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := store.Get(ctx, "Expenses:B2")
	if err != nil {
		t.Fatalf("Get after Set failed: %v", err)
	}
	if v != 42 {
		t.Errorf("Expected 42, got %v", v)
	}
}

func TestAggregateStore_Snapshot(t *testing.T) {
	store := NewAggregateStore()
	store.Seed(map[string]string{
		"Staffing:C2": "5",
		"Expenses:B2": "100",
	})

	snapshot := store.Snapshot()
	if len(snapshot) != 2 {
		t.Fatalf("Expected 2 cells, got %d", len(snapshot))
	}
	// Sorted by reference for stable reporting.
	if snapshot[0].Reference != "Expenses:B2" || snapshot[1].Reference != "Staffing:C2" {
		t.Errorf("Unexpected snapshot order: %+v", snapshot)
	}
}

func TestLedger_SaveEntryStatusPersists(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	ledger.LoadEntries("2026-07", []*recon.SourceEntry{
		{EntryID: "inv-1", Name: "ACME", Amount: 10, Status: recon.StatusUnprocessed},
	})

	entries, err := ledger.FetchEntries(ctx, "2026-07")
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}

	entries[0].Status = recon.StatusMatched
	entries[0].MatchedReference = "Expenses:B2"
	if err := ledger.SaveEntryStatus(ctx, "2026-07", entries[0]); err != nil {
		t.Fatalf("SaveEntryStatus failed: %v", err)
	}

	// A fresh fetch must observe the transition.
	refetched, err := ledger.FetchEntries(ctx, "2026-07")
	if err != nil {
		t.Fatalf("FetchEntries failed: %v", err)
	}
	if refetched[0].Status != recon.StatusMatched || refetched[0].MatchedReference != "Expenses:B2" {
		t.Errorf("Status not persisted: %+v", refetched[0])
	}
}

func TestLedger_FetchEntriesReturnsCopies(t *testing.T) {
	ledger := NewLedger()
	ctx := context.Background()
	ledger.LoadEntries("2026-07", []*recon.SourceEntry{
		{EntryID: "inv-1", Name: "ACME", Amount: 10, Status: recon.StatusUnprocessed},
	})

	first, _ := ledger.FetchEntries(ctx, "2026-07")
	first[0].Status = recon.StatusMatched // mutate without saving

	second, _ := ledger.FetchEntries(ctx, "2026-07")
	if second[0].Status != recon.StatusUnprocessed {
		t.Error("Unsaved mutation leaked into the ledger")
	}
}

func TestLedger_SaveEntryStatusUnknownEntry(t *testing.T) {
	ledger := NewLedger()

	err := ledger.SaveEntryStatus(context.Background(), "2026-07", &recon.SourceEntry{EntryID: "ghost"})
	if err == nil {
		t.Fatal("Expected error for unknown entry, got nil")
	}
}

func TestAuditSink_AppendOrder(t *testing.T) {
	sink := NewAuditSink()
	ctx := context.Background()

	for _, id := range []string{"rec-1", "rec-2", "rec-3"} {
		if err := sink.Append(ctx, recon.AuditRecord{RecordID: id}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records := sink.Records()
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, want := range []string{"rec-1", "rec-2", "rec-3"} {
		if records[i].RecordID != want {
			t.Errorf("Record %d: expected %s, got %s", i, want, records[i].RecordID)
		}
	}
}
