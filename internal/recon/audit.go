package recon

import "context"

// FanoutSink appends each audit record to every wrapped sink in order. The
// first error stops the fanout and is returned; best-effort mirrors (e.g. the
// Notion sink) are expected to swallow their own failures.
type FanoutSink struct {
	sinks []AuditSink
}

func NewFanoutSink(sinks ...AuditSink) *FanoutSink {
	return &FanoutSink{sinks: sinks}
}

func (f *FanoutSink) Append(ctx context.Context, rec AuditRecord) error {
	for _, s := range f.sinks {
		if err := s.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
