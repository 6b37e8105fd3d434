// Package storage defines the persistence interfaces for the POS client's
// local journal.
package storage

import (
	"context"
	"time"
)

// ReceiptRecord is one durable record of a completed order.
type ReceiptRecord struct {
	ID            int64
	OrderID       string
	TransactionID string
	ItemCount     int
	Subtotal      int64
	Tax           int64
	Total         int64
	CompletedAt   time.Time
}

// ReceiptStore persists completed-order receipts.
type ReceiptStore interface {
	RecordReceipt(ctx context.Context, receipt ReceiptRecord) error
	ListReceipts(ctx context.Context, limit int) ([]ReceiptRecord, error)
}

// TelemetryEvent is one operational event worth keeping locally:
// connectivity transitions, order resolutions, dropped frames.
type TelemetryEvent struct {
	Name      string
	Severity  string
	Detail    string
	Timestamp time.Time
}

// TelemetryStore persists operational telemetry events.
type TelemetryStore interface {
	AppendTelemetryEvent(ctx context.Context, event TelemetryEvent) error
}
