package memory

import (
	"context"
	"sync"

	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/commit"
)

// AuditLog keeps commit audit records in memory, newest last.
type AuditLog struct {
	mu      sync.Mutex
	records []commit.AuditRecord

	// OnRecord lets tests make the sink fail.
	OnRecord func(rec commit.AuditRecord) error
}

// NewAuditLog creates an empty audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// RecordCommit implements commit.AuditSink.
func (a *AuditLog) RecordCommit(_ context.Context, rec commit.AuditRecord) error {
	if a.OnRecord != nil {
		if err := a.OnRecord(rec); err != nil {
			return err
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
	return nil
}

// Records returns a copy of the stored records.
func (a *AuditLog) Records() []commit.AuditRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]commit.AuditRecord(nil), a.records...)
}

// History implements commit.AuditReader.
func (a *AuditLog) History(ctx context.Context, locationID id.ID, limit int) ([]commit.AuditRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []commit.AuditRecord{}
	for i := len(a.records) - 1; i >= 0; i-- {
		if a.records[i].LocationID != locationID {
			continue
		}
		out = append(out, a.records[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

var (
	_ commit.AuditSink   = (*AuditLog)(nil)
	_ commit.AuditReader = (*AuditLog)(nil)
)
