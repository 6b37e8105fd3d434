// Package channel owns the event-channel side of the POS client: the
// envelope codec for inbound frames, the reconnecting connection manager,
// and the SSE transport it dials.
package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Smarticus81/bevpro-sync/internal/pos/domain"
)

var (
	// ErrMalformedFrame indicates a frame that could not be parsed into a
	// known envelope. The caller logs and drops it; the channel stays open.
	ErrMalformedFrame = errors.New("malformed event frame")
	// ErrUnknownFrameType indicates a frame type outside the closed set.
	ErrUnknownFrameType = errors.New("unknown event frame type")
)

// Kind enumerates the closed set of event-channel envelope variants.
type Kind int

const (
	KindStatus Kind = iota + 1
	KindInventoryChange
	KindInventoryRefresh
	KindOrderCompleted
	KindOrderFailed
)

// String returns the wire-facing name of the envelope kind.
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindInventoryChange:
		return "inventory_change"
	case KindInventoryRefresh:
		return "drinks_refresh"
	case KindOrderCompleted:
		return "order_completed"
	case KindOrderFailed:
		return "order_failed"
	default:
		return "unknown"
	}
}

// InventoryChange is an authoritative single-drink overwrite. Sales is nil
// when the frame omits the cumulative sales count.
type InventoryChange struct {
	DrinkID   string
	Available int
	Sales     *int
}

// OrderLine is one confirmed line item inside a pushed order record.
type OrderLine struct {
	DrinkID   string `json:"drink_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"price"`
}

// OrderRecord is the server's post-completion order state. Totals are
// authoritative and never recomputed locally.
type OrderRecord struct {
	ID       string      `json:"id"`
	Items    []OrderLine `json:"items"`
	Subtotal int64       `json:"subtotal"`
	Tax      int64       `json:"tax"`
	Total    int64       `json:"total"`
}

// TransactionRecord identifies the payment transaction for a completed
// order.
type TransactionRecord struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
}

// OrderCompleted resolves the in-flight order as a success.
type OrderCompleted struct {
	Order       OrderRecord
	Transaction TransactionRecord
	Timestamp   time.Time
}

// FailedItem flags one drink's availability in a failed-order push.
type FailedItem struct {
	DrinkID   string `json:"drink_id"`
	Available bool   `json:"available"`
}

// OrderFailed resolves the in-flight order as a failure, optionally
// flagging the unavailable items for partial cart repair.
type OrderFailed struct {
	Message string
	Details string
	Items   []FailedItem
}

// Envelope is the parsed, tagged representation of one inbound frame.
// Exactly one payload field matching Kind is populated. Envelopes are
// immutable once decoded and consumed by a single dispatch pass.
type Envelope struct {
	Kind      Kind
	Status    string
	Inventory *InventoryChange
	Refresh   []domain.InventoryRecord
	Completed *OrderCompleted
	Failed    *OrderFailed
}

type wireFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireStatus struct {
	Status string `json:"status"`
}

type wireInventoryUpdate struct {
	Type         string          `json:"type"`
	DrinkID      string          `json:"drinkId"`
	NewInventory *int            `json:"newInventory"`
	Sales        *int            `json:"sales"`
	Items        []wireDrinkItem `json:"items"`
}

type wireDrinkItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Inventory int    `json:"inventory"`
}

type wireOrderCompleted struct {
	Order       OrderRecord       `json:"order"`
	Transaction TransactionRecord `json:"transaction"`
	Timestamp   time.Time         `json:"timestamp"`
}

type wireOrderFailed struct {
	Error   string       `json:"error"`
	Details string       `json:"details"`
	Items   []FailedItem `json:"items"`
}

// DecodeEnvelope parses one raw event-channel frame into an Envelope.
// Anything outside the closed variant set, or missing required fields, is
// rejected with a typed error so the connection manager can log and drop
// the frame without stalling the channel.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var frame wireFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch frame.Type {
	case "status":
		var payload wireStatus
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Envelope{}, fmt.Errorf("%w: status payload: %v", ErrMalformedFrame, err)
		}
		if payload.Status == "" {
			return Envelope{}, fmt.Errorf("%w: status payload missing status", ErrMalformedFrame)
		}
		return Envelope{Kind: KindStatus, Status: payload.Status}, nil

	case "INVENTORY_UPDATE", "inventory_update":
		return decodeInventoryUpdate(frame.Data)

	case "order_completed":
		var payload wireOrderCompleted
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Envelope{}, fmt.Errorf("%w: order_completed payload: %v", ErrMalformedFrame, err)
		}
		if payload.Order.ID == "" {
			return Envelope{}, fmt.Errorf("%w: order_completed missing order id", ErrMalformedFrame)
		}
		return Envelope{Kind: KindOrderCompleted, Completed: &OrderCompleted{
			Order:       payload.Order,
			Transaction: payload.Transaction,
			Timestamp:   payload.Timestamp,
		}}, nil

	case "order_failed":
		var payload wireOrderFailed
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			return Envelope{}, fmt.Errorf("%w: order_failed payload: %v", ErrMalformedFrame, err)
		}
		return Envelope{Kind: KindOrderFailed, Failed: &OrderFailed{
			Message: payload.Error,
			Details: payload.Details,
			Items:   payload.Items,
		}}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownFrameType, frame.Type)
	}
}

func decodeInventoryUpdate(data json.RawMessage) (Envelope, error) {
	var payload wireInventoryUpdate
	if err := json.Unmarshal(data, &payload); err != nil {
		return Envelope{}, fmt.Errorf("%w: inventory payload: %v", ErrMalformedFrame, err)
	}

	switch payload.Type {
	case "inventory_change", "":
		if payload.DrinkID == "" {
			return Envelope{}, fmt.Errorf("%w: inventory_change missing drinkId", ErrMalformedFrame)
		}
		if payload.NewInventory == nil {
			return Envelope{}, fmt.Errorf("%w: inventory_change missing newInventory", ErrMalformedFrame)
		}
		return Envelope{Kind: KindInventoryChange, Inventory: &InventoryChange{
			DrinkID:   payload.DrinkID,
			Available: *payload.NewInventory,
			Sales:     payload.Sales,
		}}, nil

	case "drinks_refresh":
		records := make([]domain.InventoryRecord, 0, len(payload.Items))
		for _, item := range payload.Items {
			if item.ID == "" {
				return Envelope{}, fmt.Errorf("%w: drinks_refresh item missing id", ErrMalformedFrame)
			}
			records = append(records, domain.InventoryRecord{
				DrinkID:   item.ID,
				Name:      item.Name,
				UnitPrice: item.Price,
				Available: item.Inventory,
			})
		}
		return Envelope{Kind: KindInventoryRefresh, Refresh: records}, nil

	default:
		return Envelope{}, fmt.Errorf("%w: inventory update %q", ErrUnknownFrameType, payload.Type)
	}
}
