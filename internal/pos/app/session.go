package app

import (
	"context"
	"fmt"
	"log"
	"time"

	poserrors "github.com/Smarticus81/bevpro-sync/internal/errors"
	"github.com/Smarticus81/bevpro-sync/internal/platform/id"
	"github.com/Smarticus81/bevpro-sync/internal/platform/timeouts"
	"github.com/Smarticus81/bevpro-sync/internal/pos/api"
	"github.com/Smarticus81/bevpro-sync/internal/pos/channel"
	"github.com/Smarticus81/bevpro-sync/internal/pos/domain"
	"github.com/Smarticus81/bevpro-sync/internal/pos/storage"
	"github.com/Smarticus81/bevpro-sync/internal/telemetry"
)

// OrderSubmitter issues order-submission requests to the backend.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order api.OrderRequest) error
}

// Deps are the session's collaborators. Submitter and Events are required;
// the rest degrade to no-ops or log output when absent.
type Deps struct {
	Submitter OrderSubmitter
	Presenter Presenter
	Events    <-chan channel.Event
	Reconnect func()
	Receipts  storage.ReceiptStore
	Emitter   *telemetry.Emitter
}

// Config tunes session behavior. Zero values select defaults.
type Config struct {
	// ResolveTimeout bounds the wait for an authoritative order outcome.
	ResolveTimeout time.Duration
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
	// NewID overrides order reference id generation, for tests.
	NewID func() (string, error)
	// Logf receives recoverable-condition logs. Defaults to log.Printf.
	Logf func(string, ...any)
}

type orderPhase int

const (
	phaseIdle orderPhase = iota
	phaseSubmitting
	phaseAwaiting
)

// Session is the single logical actor for one POS cart session. Every state
// transition, from cart mutations to order resolution, runs on its dispatch
// loop, so no mutation races another and no locks guard the state.
type Session struct {
	submitter OrderSubmitter
	presenter Presenter
	events    <-chan channel.Event
	reconnect func()
	receipts  storage.ReceiptStore
	emitter   *telemetry.Emitter

	resolveTimeout time.Duration
	clock          func() time.Time
	newID          func() (string, error)
	logf           func(string, ...any)

	actions chan func()
	done    chan struct{}
	runCtx  context.Context

	cart         domain.Cart
	inventory    *domain.InventoryCache
	pending      *domain.PendingOrder
	phase        orderPhase
	resolveTimer *time.Timer
}

// NewSession creates a session. Call Seed before Run to bootstrap the
// inventory cache from the catalog.
func NewSession(deps Deps, cfg Config) (*Session, error) {
	if deps.Submitter == nil {
		return nil, fmt.Errorf("order submitter is required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if deps.Presenter == nil {
		deps.Presenter = &LogPresenter{}
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = timeouts.OrderResolve
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = id.NewID
	}
	if cfg.Logf == nil {
		cfg.Logf = log.Printf
	}
	return &Session{
		submitter:      deps.Submitter,
		presenter:      deps.Presenter,
		events:         deps.Events,
		reconnect:      deps.Reconnect,
		receipts:       deps.Receipts,
		emitter:        deps.Emitter,
		resolveTimeout: cfg.ResolveTimeout,
		clock:          cfg.Clock,
		newID:          cfg.NewID,
		logf:           cfg.Logf,
		actions:        make(chan func(), 64),
		done:           make(chan struct{}),
		inventory:      domain.NewInventoryCache(),
	}, nil
}

// Seed loads a catalog snapshot into the inventory cache. It must be
// called before Run.
func (s *Session) Seed(records []domain.InventoryRecord) {
	s.inventory.ReplaceAll(records)
}

// Run consumes channel events, UI actions, and the order-resolution timer
// until ctx ends. It returns nil on cancellation; closing the session
// abandons reconnect timers and rollback bookkeeping but never attempts to
// undo an order already accepted server-side.
func (s *Session) Run(ctx context.Context) error {
	s.runCtx = ctx
	defer close(s.done)
	defer s.stopResolveTimer()

	for {
		var resolveC <-chan time.Time
		if s.resolveTimer != nil {
			resolveC = s.resolveTimer.C
		}
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.events:
			if !ok {
				return nil
			}
			s.handleChannelEvent(event)
		case action := <-s.actions:
			action()
		case <-resolveC:
			s.resolveTimer = nil
			s.resolveExpired()
		}
	}
}

// AddItem adds quantity of a drink to the cart, applying the optimistic
// inventory decrement. Rejected while an order is processing or when the
// cached availability is insufficient.
func (s *Session) AddItem(drinkID string, quantity int) {
	s.enqueue(func() { s.addItem(drinkID, quantity) })
}

// RemoveItem removes a cart line and restores its optimistic inventory
// decrement. Rejected while an order is processing.
func (s *Session) RemoveItem(drinkID string) {
	s.enqueue(func() { s.removeItem(drinkID) })
}

// ClearCart empties the cart and restores all optimistic decrements.
// Rejected while an order is processing.
func (s *Session) ClearCart() {
	s.enqueue(func() { s.clearCart() })
}

// SubmitOrder starts the order lifecycle for the current cart.
func (s *Session) SubmitOrder() {
	s.enqueue(func() { s.submitOrder() })
}

// Reconnect asks the connection manager for an immediate connection
// attempt, leaving a terminal disconnected state.
func (s *Session) Reconnect() {
	if s.reconnect != nil {
		s.reconnect()
	}
}

// RecentReceipts lists the newest completed-order receipts from the local
// journal.
func (s *Session) RecentReceipts(ctx context.Context, limit int) ([]storage.ReceiptRecord, error) {
	if s.receipts == nil {
		return nil, nil
	}
	return s.receipts.ListReceipts(ctx, limit)
}

func (s *Session) enqueue(action func()) {
	select {
	case s.actions <- action:
	case <-s.done:
	}
}

func (s *Session) addItem(drinkID string, quantity int) {
	if s.cart.Processing() {
		s.notify(newNotice(poserrors.CodeCartLocked, "Order in progress", "The cart is locked until the current order resolves."))
		return
	}
	if quantity < domain.MinQuantity {
		s.notify(newNotice(poserrors.CodeQuantityInvalid, "Invalid quantity", "Quantity must be at least one."))
		return
	}
	record, ok := s.inventory.Get(drinkID)
	if !ok {
		s.notify(newNotice(poserrors.CodeDrinkUnknown, "Unknown drink", "That drink is not in the catalog."))
		return
	}

	next, added := s.cart.AddItem(domain.CartItem{
		DrinkID:   drinkID,
		Name:      record.Name,
		UnitPrice: record.UnitPrice,
		Quantity:  quantity,
	})
	if added == 0 {
		return
	}
	if err := s.inventory.ApplyOptimistic(drinkID, -added); err != nil {
		s.notify(newNotice(poserrors.CodeInsufficientInventory, "Not enough inventory",
			fmt.Sprintf("Only %d of %s left.", record.Available, record.Name)))
		return
	}
	s.cart = next
	s.presentCart()
	s.presentInventory()
}

func (s *Session) removeItem(drinkID string) {
	if s.cart.Processing() {
		s.notify(newNotice(poserrors.CodeCartLocked, "Order in progress", "The cart is locked until the current order resolves."))
		return
	}
	next, _, removed := s.cart.RemoveItem(drinkID)
	if !removed {
		return
	}
	s.cart = next
	s.inventory.Rollback(drinkID)
	s.presentCart()
	s.presentInventory()
}

func (s *Session) clearCart() {
	if s.cart.Processing() {
		s.notify(newNotice(poserrors.CodeCartLocked, "Order in progress", "The cart is locked until the current order resolves."))
		return
	}
	for _, line := range s.cart.Items() {
		s.inventory.Rollback(line.DrinkID)
	}
	s.cart = s.cart.Clear()
	s.presentCart()
	s.presentInventory()
}

func (s *Session) handleChannelEvent(event channel.Event) {
	switch {
	case event.State != nil:
		state := *event.State
		s.presenter.ConnectivityChanged(state)
		if state.Terminal {
			s.notify(newNotice(poserrors.CodeChannelDisconnected, "Connection lost",
				"Live updates stopped after repeated failures. Refresh to reconnect."))
			s.emit("channel_disconnected", telemetry.SeverityError, "")
		}
	case event.Envelope != nil:
		s.handleEnvelope(*event.Envelope)
	}
}

func (s *Session) handleEnvelope(envelope channel.Envelope) {
	switch envelope.Kind {
	case channel.KindStatus:
		// Attempt-counter reset already happened in the connection manager.

	case channel.KindInventoryChange:
		change := envelope.Inventory
		sales := 0
		if change.Sales != nil {
			sales = *change.Sales
		} else if record, ok := s.inventory.Get(change.DrinkID); ok {
			sales = record.Sales
		}
		s.inventory.ApplyAuthoritative(change.DrinkID, change.Available, sales)
		s.presentInventory()

	case channel.KindInventoryRefresh:
		s.inventory.ReplaceAll(envelope.Refresh)
		s.presentInventory()

	case channel.KindOrderCompleted:
		s.completeOrder(envelope.Completed)

	case channel.KindOrderFailed:
		s.orderFailed(envelope.Failed)

	default:
		s.logf("unhandled envelope kind %v", envelope.Kind)
	}
}

func (s *Session) presentCart() {
	s.presenter.CartChanged(s.cart.Items(), s.cart.Processing())
}

func (s *Session) presentInventory() {
	s.presenter.InventoryChanged(s.inventory.Records())
}

func (s *Session) notify(notice Notice) {
	s.presenter.Notify(notice)
}

func (s *Session) emit(name string, severity telemetry.Severity, detail string) {
	ctx := s.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.emitter.Emit(ctx, storage.TelemetryEvent{
		Name:     name,
		Severity: string(severity),
		Detail:   detail,
	}); err != nil {
		s.logf("emit telemetry %s: %v", name, err)
	}
}

func (s *Session) startResolveTimer() {
	s.stopResolveTimer()
	s.resolveTimer = time.NewTimer(s.resolveTimeout)
}

func (s *Session) stopResolveTimer() {
	if s.resolveTimer == nil {
		return
	}
	s.resolveTimer.Stop()
	s.resolveTimer = nil
}
