package recon

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state of a source entry within and across
// reconciliation runs. Matched is terminal: matched entries are skipped on
// every subsequent run. NoMatch entries are retried, so a run after the
// reference ledger improves can still pick them up.
type MatchStatus string

const (
	StatusUnprocessed MatchStatus = "UNPROCESSED"
	StatusMatched     MatchStatus = "MATCHED"
	StatusNoMatch     MatchStatus = "NO_MATCH"
)

// SourceEntry is one transaction-ledger line (an invoice row).
type SourceEntry struct {
	// EntryID is the stable row identity in the transaction ledger.
	EntryID string

	// Name is the raw entity name exactly as written in the ledger.
	Name string

	// Amount is the contribution added to the matched aggregate target.
	Amount float64

	Status MatchStatus

	// MatchedReference points into the reference ledger. Populated only
	// when Status is StatusMatched.
	MatchedReference string
}

// CandidateRecord is one reference-ledger row eligible for matching.
type CandidateRecord struct {
	// Reference is an opaque, stable, human-auditable address such as
	// "Expenses:B12". Never a bare positional index: ordinals break
	// silently whenever the candidate set composition changes.
	Reference string

	// Text is the raw name from the reference ledger.
	Text string

	// Collection names the reference sub-list the row came from,
	// e.g. "Expenses" vs "Staffing".
	Collection string
}

// MatchDecision is the oracle's answer for one query against a candidate set.
// Matched == false implies Reference == "".
type MatchDecision struct {
	Matched     bool
	Reference   string
	Confidence  float64
	Explanation string
}

// MatchScope selects which reference collections a run matches against.
type MatchScope string

const (
	// ScopeAuthoritative matches against a single authoritative collection.
	ScopeAuthoritative MatchScope = "authoritative"
	// ScopeMerged matches against all collections merged into one index.
	ScopeMerged MatchScope = "merged"
)

// Historical runs disagreed on the acceptance threshold depending on scope.
// Both values stay configurable; these are only the observed defaults.
const (
	ThresholdAuthoritative = 0.8
	ThresholdMerged        = 0.5
)

// MatchPolicy controls decision acceptance. A decision is accepted only when
// the oracle reports a match AND its confidence is strictly above Threshold.
type MatchPolicy struct {
	Threshold float64
	Scope     MatchScope
}

// DefaultPolicy returns the observed default policy for a scope.
func DefaultPolicy(scope MatchScope) MatchPolicy {
	if scope == ScopeMerged {
		return MatchPolicy{Threshold: ThresholdMerged, Scope: ScopeMerged}
	}
	return MatchPolicy{Threshold: ThresholdAuthoritative, Scope: ScopeAuthoritative}
}

// RunMode selects how much of the eligible ledger a run processes.
type RunMode string

const (
	// RunModeTest caps processing to the first 10 eligible entries.
	RunModeTest RunMode = "test"
	// RunModeFull processes every eligible entry.
	RunModeFull RunMode = "full"
)

// TestModeEntryCap is the number of eligible entries a test run processes.
const TestModeEntryCap = 10

// ParseRunMode validates a run mode string from a flag or request body.
func ParseRunMode(s string) (RunMode, error) {
	switch mode := RunMode(s); mode {
	case RunModeTest, RunModeFull:
		return mode, nil
	default:
		return "", fmt.Errorf("run mode must be %q or %q, got %q", RunModeTest, RunModeFull, s)
	}
}

// ParseMatchScope validates a match scope string from a flag or request body.
func ParseMatchScope(s string) (MatchScope, error) {
	switch scope := MatchScope(s); scope {
	case ScopeAuthoritative, ScopeMerged:
		return scope, nil
	default:
		return "", fmt.Errorf("match scope must be %q or %q, got %q", ScopeAuthoritative, ScopeMerged, s)
	}
}

// RunContext identifies one reconciliation run. It is an explicit immutable
// value passed through every call; nothing reads run identity from globals.
type RunContext struct {
	RunID     string
	Period    string
	Mode      RunMode
	Policy    MatchPolicy
	StartedAt time.Time
}

// NewRunContext mints a run context with a fresh run id.
func NewRunContext(period string, policy MatchPolicy, mode RunMode) RunContext {
	return RunContext{
		RunID:     uuid.New().String(),
		Period:    period,
		Mode:      mode,
		Policy:    policy,
		StartedAt: time.Now().UTC(),
	}
}

// AuditRecord is one immutable line of the decision trail. Exactly one record
// is appended per processed entry, NoMatch outcomes included.
type AuditRecord struct {
	RecordID string
	RunID    string
	Period   string

	EntryID   string
	EntryName string

	// MatchedText is the text of the accepted candidate, empty on NoMatch.
	MatchedText      string
	MatchedReference string

	Contribution  float64
	PreviousValue float64
	NewValue      float64

	Confidence float64
	Accepted   bool

	// Warning carries a non-fatal anomaly, e.g. a non-numeric aggregate
	// cell that was treated as zero.
	Warning string

	LatencyMS int64
	Timestamp time.Time
}

// Outcome reports what Process did with one entry.
type Outcome struct {
	// Skipped is true when the idempotency guard fired: the entry was
	// already Matched and the oracle was not consulted.
	Skipped  bool
	Accepted bool
	Decision MatchDecision
}

// ProgressStats is the incremental counter snapshot pushed to a ProgressSink
// after every handled entry.
type ProgressStats struct {
	Processed int
	Matched   int
	Skipped   int
	ElapsedMS int64
}

// RunSummary is the terminal report of a reconciliation run.
type RunSummary struct {
	RunID   string
	Period  string
	Mode    RunMode

	// Processed counts entries that went through decisioning (skips excluded).
	Processed int
	// Matched counts accepted decisions.
	Matched int
	// Skipped counts entries short-circuited by the idempotency guard.
	Skipped int

	Elapsed time.Duration

	// Errors holds run-level failures when the run aborted early. Progress
	// committed before the abort stands.
	Errors []string
}

// Aborted reports whether the run stopped before handling every entry.
func (s RunSummary) Aborted() bool {
	return len(s.Errors) > 0
}
