package oracle

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// buildMatchPrompt constructs the single comparison request sent to the model.
// The query and the full candidate list (reference + text pairs) go into one
// prompt; the model is asked for strict, schema-conformant JSON and nothing
// else.
func buildMatchPrompt(query string, candidates []recon.CandidateRecord) string {
	basePrompt :=
		"You are a company-name matching assistant for financial reconciliation.\n\n" +
			"Task:\n" +
			"- Decide whether the QUERY name below refers to the same legal entity as one of the CANDIDATES.\n" +
			"- Names come from different ledgers and may differ in language, spelling, abbreviations,\n" +
			"  and legal-entity suffixes (S.R.L., SRL, GmbH, Ltd, SA, ...).\n" +
			"- Pick at most ONE candidate: the single best match, or no match at all.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n" +
			"Output a single JSON object with these fields:\n" +
			"- \"matched\": boolean\n" +
			"- \"reference\": string (the reference of the chosen candidate, EXACTLY as listed) or null\n" +
			"- \"confidence\": number between 0 and 1\n" +
			"- \"explanation\": short string (optional)\n\n"

	var b strings.Builder
	b.WriteString(basePrompt)

	b.WriteString("QUERY:\n")
	b.WriteString(query)
	b.WriteString("\n\nCANDIDATES:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- reference: %q  text: %q\n", c.Reference, c.Text)
	}

	b.WriteString("\nRules:\n")
	b.WriteString("1. \"reference\" must be EXACTLY one of the candidate references above, or null.\n")
	b.WriteString("2. If \"matched\" is false, \"reference\" must be null and confidence reflects certainty of NO match.\n")
	b.WriteString("3. Never invent a reference and never answer with a list position or line number.\n")
	b.WriteString("4. Return ONLY valid raw JSON.\n")
	b.WriteString("5. Do NOT wrap the response in code fences. Do NOT use ```json or any Markdown.\n")
	b.WriteString("6. Output must begin with \"{\" and end with \"}\".\n")

	return b.String()
}
