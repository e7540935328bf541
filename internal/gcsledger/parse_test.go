package gcsledger

import (
	"strings"
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

func TestParseEntries_FreshExport(t *testing.T) {
	data := []byte("entry_id,entity_name,amount\n" +
		"inv-1,ACME S.R.L.,120.50\n" +
		"inv-2,Globex SA,40\n")

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.EntryID != "inv-1" || first.Name != "ACME S.R.L." || first.Amount != 120.50 {
		t.Errorf("Unexpected first entry: %+v", first)
	}
	if first.Status != recon.StatusUnprocessed {
		t.Errorf("Expected fresh entries to be unprocessed, got %s", first.Status)
	}
}

func TestParseEntries_ReexportWithStatus(t *testing.T) {
	data := []byte("entry_id,entity_name,amount,match_status,matched_reference\n" +
		"inv-1,ACME S.R.L.,120.50,MATCHED,Expenses:B2\n" +
		"inv-2,Globex SA,40,NO_MATCH,\n" +
		"inv-3,Initech GmbH,7,,\n")

	entries, err := ParseEntries(data)
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}

	if entries[0].Status != recon.StatusMatched || entries[0].MatchedReference != "Expenses:B2" {
		t.Errorf("Unexpected matched entry: %+v", entries[0])
	}
	if entries[1].Status != recon.StatusNoMatch {
		t.Errorf("Expected NO_MATCH, got %s", entries[1].Status)
	}
	// Blank status column falls back to unprocessed.
	if entries[2].Status != recon.StatusUnprocessed {
		t.Errorf("Expected blank status to mean unprocessed, got %s", entries[2].Status)
	}
}

func TestParseEntries_BadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "too few columns",
			data: "entry_id,entity_name,amount\ninv-1,ACME\n",
			want: "expected at least 3 columns",
		},
		{
			name: "non-numeric amount",
			data: "entry_id,entity_name,amount\ninv-1,ACME,lots\n",
			want: "amount",
		},
		{
			name: "empty file",
			data: "",
			want: "empty CSV",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEntries([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestParseWorksheet_GroupsConsecutiveCollections(t *testing.T) {
	data := []byte("collection,row_address,entity_text,value\n" +
		"Expenses,B2,Acme SRL,100\n" +
		"Expenses,B3,Globex SA,\n" +
		"Staffing,C2,Initech GmbH,not-a-number\n")

	collections, cells, err := ParseWorksheet(data)
	if err != nil {
		t.Fatalf("ParseWorksheet failed: %v", err)
	}

	if len(collections) != 2 {
		t.Fatalf("Expected 2 collections, got %d", len(collections))
	}
	if collections[0].Name() != "Expenses" || len(collections[0].Rows()) != 2 {
		t.Errorf("Unexpected first collection: %s with %d rows", collections[0].Name(), len(collections[0].Rows()))
	}
	if collections[1].Name() != "Staffing" || len(collections[1].Rows()) != 1 {
		t.Errorf("Unexpected second collection: %s with %d rows", collections[1].Name(), len(collections[1].Rows()))
	}

	row := collections[0].Rows()[0]
	if row.Address != "B2" || row.Text != "Acme SRL" {
		t.Errorf("Unexpected row: %+v", row)
	}

	// Raw cells survive verbatim, non-numeric text included.
	if cells["Expenses:B2"] != "100" {
		t.Errorf("Expected Expenses:B2 = 100, got %q", cells["Expenses:B2"])
	}
	if cells["Staffing:C2"] != "not-a-number" {
		t.Errorf("Expected raw text to be preserved, got %q", cells["Staffing:C2"])
	}
}

func TestParseWorksheet_SplitCollectionStaysSeparate(t *testing.T) {
	// A collection name that reappears after another one starts a new block;
	// the indexer will reject the duplicate references downstream.
	data := []byte("collection,row_address,entity_text\n" +
		"Expenses,B2,Acme SRL\n" +
		"Staffing,C2,Initech GmbH\n" +
		"Expenses,B9,Globex SA\n")

	collections, _, err := ParseWorksheet(data)
	if err != nil {
		t.Fatalf("ParseWorksheet failed: %v", err)
	}
	if len(collections) != 3 {
		t.Fatalf("Expected 3 collection blocks, got %d", len(collections))
	}

	candidates, err := recon.NewIndexer().Build(collections)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(candidates) != 3 {
		t.Errorf("Expected 3 candidates, got %d", len(candidates))
	}
}

func TestParseWorksheet_BadInput(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{
			name: "missing address",
			data: "collection,row_address,entity_text\nExpenses,,Acme SRL\n",
			want: "required",
		},
		{
			name: "too few columns",
			data: "collection,row_address,entity_text\nExpenses,B2\n",
			want: "expected at least 3 columns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseWorksheet([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}
