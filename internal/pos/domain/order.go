package domain

import (
	"strings"
	"time"
)

// PendingOrder snapshots the cart while exactly one order is in flight.
// It is created when submission starts and destroyed on resolution.
type PendingOrder struct {
	RefID       string
	Items       []CartItem
	Subtotal    int64
	SubmittedAt time.Time
}

// NewPendingOrder captures the submitted cart lines and submission time.
func NewPendingOrder(refID string, items []CartItem, submittedAt time.Time) PendingOrder {
	snapshot := make([]CartItem, len(items))
	copy(snapshot, items)
	var subtotal int64
	for _, line := range snapshot {
		subtotal += line.UnitPrice * int64(line.Quantity)
	}
	return PendingOrder{
		RefID:       refID,
		Items:       snapshot,
		Subtotal:    subtotal,
		SubmittedAt: submittedAt.UTC(),
	}
}

// FailureReason classifies why an order failed.
type FailureReason int

const (
	// FailureUnknown covers unclassified failures; the full snapshot is
	// rolled back.
	FailureUnknown FailureReason = iota
	// FailureOutOfStock removes only the unavailable items from the cart.
	FailureOutOfStock
	// FailurePaymentDeclined keeps the cart so the operator can retry with
	// another payment method.
	FailurePaymentDeclined
)

// ClassifyFailure maps a server failure message onto a FailureReason.
func ClassifyFailure(message string) FailureReason {
	message = strings.ToLower(message)
	switch {
	case strings.Contains(message, "stock"),
		strings.Contains(message, "inventory"),
		strings.Contains(message, "unavailable"):
		return FailureOutOfStock
	case strings.Contains(message, "payment"),
		strings.Contains(message, "declin"),
		strings.Contains(message, "card"):
		return FailurePaymentDeclined
	default:
		return FailureUnknown
	}
}

// ReceiptLine is one confirmed line item on a completed order.
type ReceiptLine struct {
	DrinkID   string
	Name      string
	UnitPrice int64
	Quantity  int
}

// Receipt is the confirmation payload for a completed order. Totals come
// from the pushed order record, never recomputed locally.
type Receipt struct {
	OrderID       string
	TransactionID string
	Lines         []ReceiptLine
	Subtotal      int64
	Tax           int64
	Total         int64
	CompletedAt   time.Time
}
