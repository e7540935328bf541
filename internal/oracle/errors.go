package oracle

import "fmt"

// TransportError reports that the underlying oracle call could not complete.
// It is recovered inside the client via the retry policy and never escapes
// FindBestMatch.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("oracle transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SchemaError reports a response that cannot be parsed into the decision
// contract: missing fields, confidence outside [0,1], or a matched decision
// pointing at a reference that is not in the candidate set. Same recovery
// policy as TransportError.
type SchemaError struct {
	Reason string
	Raw    string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("oracle schema: %s", e.Reason)
}
