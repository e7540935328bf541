package gcsledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// Invoice export columns: entry_id,entity_name,amount[,match_status,matched_reference]
// Worksheet export columns: collection,row_address,entity_text[,value]

// ParseEntries parses a transaction-ledger CSV export into source entries,
// preserving file order. The status columns are optional so a fresh export
// (everything unprocessed) and a re-export of a partially reconciled ledger
// both load.
func ParseEntries(data []byte) ([]*recon.SourceEntry, error) {
	records, err := readCSV(data)
	if err != nil {
		return nil, fmt.Errorf("ParseEntries: %w", err)
	}

	var out []*recon.SourceEntry
	for i, rec := range records {
		if len(rec) < 3 {
			return nil, fmt.Errorf("ParseEntries: line %d: expected at least 3 columns, got %d", i+2, len(rec))
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("ParseEntries: line %d: amount %q: %w", i+2, rec[2], err)
		}

		entry := &recon.SourceEntry{
			EntryID: strings.TrimSpace(rec[0]),
			Name:    rec[1],
			Amount:  amount,
			Status:  recon.StatusUnprocessed,
		}
		if len(rec) > 3 && strings.TrimSpace(rec[3]) != "" {
			entry.Status = recon.MatchStatus(strings.TrimSpace(rec[3]))
		}
		if len(rec) > 4 {
			entry.MatchedReference = strings.TrimSpace(rec[4])
		}
		out = append(out, entry)
	}
	return out, nil
}

// ParseWorksheet parses a reference-ledger CSV export into named collections
// (for the candidate index) and the raw aggregate cells keyed by reference
// (for seeding an in-memory aggregate store). Consecutive rows with the same
// collection value form one collection, in file order.
func ParseWorksheet(data []byte) ([]recon.NamedCollection, map[string]string, error) {
	records, err := readCSV(data)
	if err != nil {
		return nil, nil, fmt.Errorf("ParseWorksheet: %w", err)
	}

	var (
		collections []recon.NamedCollection
		current     *recon.Collection
	)
	cells := make(map[string]string)

	for i, rec := range records {
		if len(rec) < 3 {
			return nil, nil, fmt.Errorf("ParseWorksheet: line %d: expected at least 3 columns, got %d", i+2, len(rec))
		}

		name := strings.TrimSpace(rec[0])
		address := strings.TrimSpace(rec[1])
		if name == "" || address == "" {
			return nil, nil, fmt.Errorf("ParseWorksheet: line %d: collection and row_address are required", i+2)
		}

		if current == nil || current.CollectionName != name {
			current = &recon.Collection{CollectionName: name}
			collections = append(collections, current)
		}
		current.CollectionRows = append(current.CollectionRows, recon.CollectionRow{
			Address: address,
			Text:    rec[2],
		})

		if len(rec) > 3 {
			cells[fmt.Sprintf("%s:%s", name, address)] = rec[3]
		}
	}
	return collections, cells, nil
}

// readCSV parses CSV bytes, skipping the header line.
func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // column count validated per row above

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty CSV")
	}
	return records[1:], nil
}
