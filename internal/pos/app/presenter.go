// Package app wires the POS session together: the single dispatch loop
// that serializes cart, inventory, and order state transitions, the order
// lifecycle coordinator, and the runtime that composes transports and
// storage.
package app

import (
	"log"

	poserrors "github.com/Smarticus81/bevpro-sync/internal/errors"
	"github.com/Smarticus81/bevpro-sync/internal/pos/channel"
	"github.com/Smarticus81/bevpro-sync/internal/pos/domain"
)

// Notice is a toast-style descriptor surfaced to the UI layer.
type Notice struct {
	Code        poserrors.Code
	Title       string
	Description string
	Severity    poserrors.Severity
}

func newNotice(code poserrors.Code, title, description string) Notice {
	return Notice{
		Code:        code,
		Title:       title,
		Description: description,
		Severity:    code.Severity(),
	}
}

// Presenter receives session outputs destined for the UI layer. All methods
// are invoked from the session dispatch loop, one at a time; implementations
// must not call back into the session synchronously.
type Presenter interface {
	ConnectivityChanged(state channel.State)
	CartChanged(items []domain.CartItem, processing bool)
	InventoryChanged(records []domain.InventoryRecord)
	OrderConfirmed(receipt domain.Receipt)
	Notify(notice Notice)
}

// LogPresenter writes session outputs to the process log. It backs headless
// runs and tests.
type LogPresenter struct {
	Logf func(string, ...any)
}

func (p *LogPresenter) logf(format string, args ...any) {
	if p != nil && p.Logf != nil {
		p.Logf(format, args...)
		return
	}
	log.Printf(format, args...)
}

func (p *LogPresenter) ConnectivityChanged(state channel.State) {
	p.logf("connectivity: %s", state.Phase)
}

func (p *LogPresenter) CartChanged(items []domain.CartItem, processing bool) {
	p.logf("cart: %d lines, processing=%t", len(items), processing)
}

func (p *LogPresenter) InventoryChanged(records []domain.InventoryRecord) {
	p.logf("inventory: %d drinks", len(records))
}

func (p *LogPresenter) OrderConfirmed(receipt domain.Receipt) {
	p.logf("order %s confirmed: total %d", receipt.OrderID, receipt.Total)
}

func (p *LogPresenter) Notify(notice Notice) {
	p.logf("%s: %s - %s", notice.Severity, notice.Title, notice.Description)
}

var _ Presenter = (*LogPresenter)(nil)
