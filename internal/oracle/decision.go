package oracle

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// decisionWire is the strict response shape. Pointer fields distinguish a
// missing field from a zero value.
type decisionWire struct {
	Matched     *bool    `json:"matched"`
	Reference   *string  `json:"reference"`
	Confidence  *float64 `json:"confidence"`
	Explanation string   `json:"explanation"`
}

// parseDecision validates raw model output against the decision contract.
//
// Contract violations are *SchemaError: missing "matched" or "confidence",
// confidence outside [0,1], or a matched decision whose reference is absent
// from the candidate set (ordinal drift and hallucinated addresses both land
// here instead of silently crediting the wrong row). A false match carrying a
// stray reference is normalized to an empty reference rather than rejected.
func parseDecision(raw string, candidates []recon.CandidateRecord) (recon.MatchDecision, error) {
	clean := cleanModelJSON(raw)

	var wire decisionWire
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return recon.MatchDecision{}, &SchemaError{
			Reason: fmt.Sprintf("unmarshal: %v", err),
			Raw:    raw,
		}
	}

	if wire.Matched == nil {
		return recon.MatchDecision{}, &SchemaError{Reason: "missing field \"matched\"", Raw: raw}
	}
	if wire.Confidence == nil {
		return recon.MatchDecision{}, &SchemaError{Reason: "missing field \"confidence\"", Raw: raw}
	}
	if *wire.Confidence < 0 || *wire.Confidence > 1 {
		return recon.MatchDecision{}, &SchemaError{
			Reason: fmt.Sprintf("confidence %v outside [0,1]", *wire.Confidence),
			Raw:    raw,
		}
	}

	decision := recon.MatchDecision{
		Matched:     *wire.Matched,
		Confidence:  *wire.Confidence,
		Explanation: wire.Explanation,
	}

	if !decision.Matched {
		// matched=false implies no reference, whatever the model said.
		return decision, nil
	}

	if wire.Reference == nil || *wire.Reference == "" {
		return recon.MatchDecision{}, &SchemaError{Reason: "matched decision without reference", Raw: raw}
	}
	if !referenceKnown(*wire.Reference, candidates) {
		return recon.MatchDecision{}, &SchemaError{
			Reason: fmt.Sprintf("reference %q is not in the candidate set", *wire.Reference),
			Raw:    raw,
		}
	}

	decision.Reference = *wire.Reference
	return decision, nil
}

func referenceKnown(ref string, candidates []recon.CandidateRecord) bool {
	for _, c := range candidates {
		if c.Reference == ref {
			return true
		}
	}
	return false
}

// cleanModelJSON strips Markdown fences and surrounding junk if the model
// ignored the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// Keep only from the first '{' to the last '}' if junk remains.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}
