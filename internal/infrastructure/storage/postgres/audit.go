package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"pharmastock/internal/core/id"
	"pharmastock/internal/domain/commit"
)

// CompressionAlgo names how a stored report is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the report size above which reports are compressed.
const DefaultCompressThreshold = 8 * 1024

const commitAuditTable = "commit_audit"

// auditRow is the stored form of a commit.AuditRecord.
type auditRow struct {
	ID               id.ID           `db:"id"`
	BatchReference   string          `db:"batch_reference"`
	LocationID       id.ID           `db:"location_id"`
	OperatorID       string          `db:"operator_id"`
	Outcome          commit.Outcome  `db:"outcome"`
	Report           json.RawMessage `db:"report"`
	ReportCompressed []byte          `db:"report_compressed"`
	CompressionAlgo  CompressionAlgo `db:"compression_algo"`
	CreatedAt        time.Time       `db:"created_at"`
}

// auditColumns is the column order shared by inserts and reads.
var auditColumns = ExtractDBColumns[auditRow]()

// AuditLog stores commit round reports in commit_audit.
type AuditLog struct {
	txManager *TxManager
	codec     *ReportCodec
}

// NewAuditLog creates the commit audit sink.
func NewAuditLog(txManager *TxManager) (*AuditLog, error) {
	codec, err := NewReportCodec(DefaultCompressThreshold)
	if err != nil {
		return nil, err
	}
	return &AuditLog{txManager: txManager, codec: codec}, nil
}

var (
	_ commit.AuditSink   = (*AuditLog)(nil)
	_ commit.AuditReader = (*AuditLog)(nil)
)

// RecordCommit implements commit.AuditSink.
func (l *AuditLog) RecordCommit(ctx context.Context, rec commit.AuditRecord) error {
	row := l.codec.Encode(rec)

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Insert(commitAuditTable).
		Columns(auditColumns...).
		Values(RowValues(row, auditColumns)...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}

	if _, err := l.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert commit audit: %w", err)
	}
	return nil
}

// History returns the latest commit records of a location, newest first.
func (l *AuditLog) History(ctx context.Context, locationID id.ID, limit int) ([]commit.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(auditColumns...).
		From(commitAuditTable).
		Where(squirrel.Eq{"location_id": locationID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}

	var rows []auditRow
	err = l.txManager.ReadOnly(ctx, func(ctx context.Context) error {
		if err := pgxscan.Select(ctx, l.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
			return fmt.Errorf("query commit audit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]commit.AuditRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := l.codec.Decode(r)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// ReportCodec compresses large commit reports with zstd.
type ReportCodec struct {
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
	threshold int
}

// NewReportCodec creates a codec compressing reports larger than threshold bytes.
func NewReportCodec(threshold int) (*ReportCodec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ReportCodec{encoder: encoder, decoder: decoder, threshold: threshold}, nil
}

// Encode converts a record to its stored form, filling id and timestamp.
func (c *ReportCodec) Encode(rec commit.AuditRecord) auditRow {
	if id.IsNil(rec.ID) {
		rec.ID = id.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row := auditRow{
		ID:              rec.ID,
		BatchReference:  rec.BatchReference,
		LocationID:      rec.LocationID,
		OperatorID:      rec.OperatorID,
		Outcome:         rec.Outcome,
		Report:          rec.Report,
		CompressionAlgo: CompressionNone,
		CreatedAt:       rec.CreatedAt,
	}
	if len(rec.Report) > c.threshold {
		row.ReportCompressed = c.encoder.EncodeAll(rec.Report, nil)
		row.Report = nil
		row.CompressionAlgo = CompressionZstd
	}
	return row
}

// Decode restores a record from its stored form.
func (c *ReportCodec) Decode(row auditRow) (commit.AuditRecord, error) {
	rec := commit.AuditRecord{
		ID:             row.ID,
		BatchReference: row.BatchReference,
		LocationID:     row.LocationID,
		OperatorID:     row.OperatorID,
		Outcome:        row.Outcome,
		Report:         row.Report,
		CreatedAt:      row.CreatedAt,
	}
	if row.CompressionAlgo == CompressionZstd && len(row.ReportCompressed) > 0 {
		raw, err := c.decoder.DecodeAll(row.ReportCompressed, nil)
		if err != nil {
			return commit.AuditRecord{}, fmt.Errorf("decompress report %s: %w", row.ID, err)
		}
		rec.Report = raw
	}
	return rec, nil
}
