// Package sqlite provides the SQLite-backed POS journal store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	sqlitemigrate "github.com/Smarticus81/bevpro-sync/internal/platform/storage/sqlitemigrate"
	"github.com/Smarticus81/bevpro-sync/internal/pos/storage"
	"github.com/Smarticus81/bevpro-sync/internal/pos/storage/sqlite/migrations"
)

// Store provides SQLite-backed receipt and telemetry persistence.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the journal store and applies migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordReceipt persists one completed-order receipt.
func (s *Store) RecordReceipt(ctx context.Context, receipt storage.ReceiptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	receipt.OrderID = strings.TrimSpace(receipt.OrderID)
	receipt.TransactionID = strings.TrimSpace(receipt.TransactionID)
	if receipt.OrderID == "" {
		return fmt.Errorf("order id is required")
	}
	if receipt.CompletedAt.IsZero() {
		receipt.CompletedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO receipts (
	order_id,
	transaction_id,
	item_count,
	subtotal,
	tax,
	total,
	completed_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		receipt.OrderID,
		receipt.TransactionID,
		receipt.ItemCount,
		receipt.Subtotal,
		receipt.Tax,
		receipt.Total,
		receipt.CompletedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record receipt: %w", err)
	}
	return nil
}

// ListReceipts lists newest-first receipt records.
func (s *Store) ListReceipts(ctx context.Context, limit int) ([]storage.ReceiptRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT
	id,
	order_id,
	transaction_id,
	item_count,
	subtotal,
	tax,
	total,
	completed_at
FROM receipts
ORDER BY completed_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	records := make([]storage.ReceiptRecord, 0, limit)
	for rows.Next() {
		var record storage.ReceiptRecord
		var completedAt int64
		if err := rows.Scan(
			&record.ID,
			&record.OrderID,
			&record.TransactionID,
			&record.ItemCount,
			&record.Subtotal,
			&record.Tax,
			&record.Total,
			&completedAt,
		); err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		record.CompletedAt = time.UnixMilli(completedAt).UTC()
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return records, nil
}

// AppendTelemetryEvent persists one operational telemetry event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, event storage.TelemetryEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("event name is required")
	}
	if event.Severity == "" {
		event.Severity = "INFO"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (
	name,
	severity,
	detail,
	created_at
) VALUES (?, ?, ?, ?)
`,
		event.Name,
		event.Severity,
		event.Detail,
		event.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

var (
	_ storage.ReceiptStore   = (*Store)(nil)
	_ storage.TelemetryStore = (*Store)(nil)
)
