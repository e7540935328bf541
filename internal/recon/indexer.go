package recon

import (
	"fmt"
	"strings"
)

// Indexer builds the addressable candidate list a run matches against.
type Indexer struct{}

func NewIndexer() *Indexer {
	return &Indexer{}
}

// Build flattens the named collections into an ordered candidate list.
//
// Rows whose text is empty or whitespace-only are excluded BEFORE references
// are assigned. References come from the row's own stable address, never from
// its position in the output slice: position shifts whenever blanks are
// filtered or collections are merged, and an oracle answer pointing at a
// shifted ordinal lands on the wrong row.
//
// Output order follows input order (collections in order, rows in order), so
// the index is deterministic for a given input. A duplicate reference across
// the input is a *ValidationError.
func (ix *Indexer) Build(collections []NamedCollection) ([]CandidateRecord, error) {
	var out []CandidateRecord
	seen := make(map[string]struct{})

	for _, col := range collections {
		name := col.Name()
		for _, row := range col.Rows() {
			text := strings.TrimSpace(row.Text)
			if text == "" {
				continue
			}

			ref := fmt.Sprintf("%s:%s", name, row.Address)
			if _, dup := seen[ref]; dup {
				return nil, &ValidationError{
					Field:  "candidates",
					Reason: fmt.Sprintf("duplicate reference %q", ref),
				}
			}
			seen[ref] = struct{}{}

			out = append(out, CandidateRecord{
				Reference:  ref,
				Text:       row.Text,
				Collection: name,
			})
		}
	}

	return out, nil
}
