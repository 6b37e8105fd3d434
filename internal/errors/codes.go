// Package errors provides the point-of-sale error code taxonomy and its
// mapping onto user-facing toast severities.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Cart errors
	CodeCartEmpty             Code = "CART_EMPTY"
	CodeCartLocked            Code = "CART_LOCKED"
	CodeQuantityInvalid       Code = "CART_QUANTITY_INVALID"
	CodeDrinkUnknown          Code = "CART_DRINK_UNKNOWN"
	CodeInsufficientInventory Code = "INVENTORY_INSUFFICIENT"

	// Order errors
	CodeOrderInFlight   Code = "ORDER_IN_FLIGHT"
	CodeOrderRejected   Code = "ORDER_REJECTED"
	CodeOrderTimeout    Code = "ORDER_TIMEOUT"
	CodePaymentDeclined Code = "ORDER_PAYMENT_DECLINED"
	CodeOutOfStock      Code = "ORDER_OUT_OF_STOCK"

	// Channel errors
	CodeChannelDisconnected Code = "CHANNEL_DISCONNECTED"
)

// Severity describes how a surfaced error should be presented.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severity maps error codes to toast severities.
func (c Code) Severity() Severity {
	switch c {
	// Warning - correctable local validation
	case CodeCartEmpty,
		CodeCartLocked,
		CodeQuantityInvalid,
		CodeDrinkUnknown,
		CodeInsufficientInventory,
		CodeOrderInFlight:
		return SeverityWarning

	// Error - a lost order or a lost channel
	case CodeOrderRejected,
		CodeOrderTimeout,
		CodePaymentDeclined,
		CodeOutOfStock,
		CodeChannelDisconnected:
		return SeverityError

	default:
		return SeverityError
	}
}
