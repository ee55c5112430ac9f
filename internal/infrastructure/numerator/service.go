// Package numerator provides a PostgreSQL backed batch reference generator.
// It implements core/numerator.Generator for deployments where several
// processes open staging rounds against the same database.
package numerator

import (
	"context"
	"fmt"
	"time"

	corenumerator "pharmastock/internal/core/numerator"
	"pharmastock/internal/infrastructure/storage/postgres"
	pkgnumerator "pharmastock/pkg/numerator"
)

const nextSeqSQL = `
INSERT INTO batch_reference_seq (base, seq)
VALUES ($1, 1)
ON CONFLICT (base) DO UPDATE SET seq = batch_reference_seq.seq + 1, updated_at = now()
RETURNING seq`

// Service issues batch references whose collision suffix is decided by the
// database, so two servers starting a round in the same second still get
// distinct tokens.
type Service struct {
	txManager *postgres.TxManager
	cfg       pkgnumerator.Config
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a database backed generator.
func New(txManager *postgres.TxManager, cfg pkgnumerator.Config) *Service {
	if cfg.Prefix == "" {
		cfg.Prefix = "BR"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{txManager: txManager, cfg: cfg}
}

// Next implements numerator.Generator.
func (s *Service) Next(ctx context.Context, period time.Time) (string, error) {
	if s == nil || s.txManager == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}
	if period.IsZero() {
		period = time.Now()
	}

	base := pkgnumerator.Format(s.cfg.Prefix, period.In(s.cfg.Location))

	var seq int
	if err := s.txManager.GetQuerier(ctx).QueryRow(ctx, nextSeqSQL, base).Scan(&seq); err != nil {
		return "", fmt.Errorf("next batch reference: %w", err)
	}
	return Reference(base, seq), nil
}

// Reference renders the token for the seq-th use of base.
func Reference(base string, seq int) string {
	if seq <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, seq)
}
