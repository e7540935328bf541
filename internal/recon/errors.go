package recon

import "fmt"

// ValidationError reports malformed or missing required input: a blank entry
// name, an empty candidate set, a duplicate candidate reference. It is fatal
// to the current run; progress committed before it stands.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// AggregationError reports an aggregate target cell whose stored value is not
// numeric. It is recovered locally: the engine treats the cell as zero and
// records a warning on the audit record.
type AggregationError struct {
	Reference string
	Raw       string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregate %s holds non-numeric value %q", e.Reference, e.Raw)
}
