package memory

import (
	"context"
	"sync"

	"github.com/dvloznov/ledger-reconciler/internal/recon"
)

// AuditSink accumulates audit records in memory, in append order. Storage is
// materialized lazily on the first write.
type AuditSink struct {
	mu      sync.Mutex
	records []recon.AuditRecord
}

func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

func (s *AuditSink) Append(ctx context.Context, rec recon.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make([]recon.AuditRecord, 0, 16)
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns a copy of the trail in append order.
func (s *AuditSink) Records() []recon.AuditRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]recon.AuditRecord, len(s.records))
	copy(out, s.records)
	return out
}

var _ recon.AuditSink = (*AuditSink)(nil)
