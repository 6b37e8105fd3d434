package app

import (
	"errors"
	"fmt"

	poserrors "github.com/Smarticus81/bevpro-sync/internal/errors"
	"github.com/Smarticus81/bevpro-sync/internal/pos/api"
	"github.com/Smarticus81/bevpro-sync/internal/pos/channel"
	"github.com/Smarticus81/bevpro-sync/internal/pos/domain"
	"github.com/Smarticus81/bevpro-sync/internal/pos/storage"
	"github.com/Smarticus81/bevpro-sync/internal/telemetry"
)

// The order lifecycle runs Idle -> Submitting -> AwaitingConfirmation ->
// Completed|Failed -> Idle, with at most one order in flight per session.
// The synchronous request response is only authoritative when it is itself
// terminal; otherwise resolution comes from the order_completed or
// order_failed push, and whichever source resolves first wins, never both.

func (s *Session) submitOrder() {
	if s.phase != phaseIdle {
		s.notify(newNotice(poserrors.CodeOrderInFlight, "Order in progress", "Wait for the current order to resolve."))
		return
	}
	if s.cart.Empty() {
		s.notify(newNotice(poserrors.CodeCartEmpty, "Cart is empty", "Add at least one drink before checking out."))
		return
	}

	refID, err := s.newID()
	if err != nil {
		s.logf("generate order reference: %v", err)
		refID = fmt.Sprintf("order-%d", s.clock().UnixNano())
	}

	// A prior failure may have rolled the cart's optimistic deltas back
	// while keeping the lines for retry. Reapply them so a completion can
	// commit every submitted item.
	for _, line := range s.cart.Items() {
		if s.inventory.PendingOptimistic(line.DrinkID) {
			continue
		}
		if err := s.inventory.ApplyOptimistic(line.DrinkID, -line.Quantity); err != nil {
			s.logf("reapply optimistic inventory for %s: %v", line.DrinkID, err)
		}
	}
	s.presentInventory()

	s.cart = s.cart.SetProcessing(true)
	pending := domain.NewPendingOrder(refID, s.cart.Items(), s.clock())
	s.pending = &pending
	s.phase = phaseSubmitting
	s.startResolveTimer()
	s.presentCart()

	request := api.OrderRequest{Reference: refID, Total: pending.Subtotal}
	for _, line := range pending.Items {
		request.Items = append(request.Items, api.OrderItem{
			ID:       line.DrinkID,
			Quantity: line.Quantity,
			Price:    line.UnitPrice,
		})
	}

	ctx := s.runCtx
	go func() {
		err := s.submitter.SubmitOrder(ctx, request)
		s.enqueue(func() { s.submitResult(err) })
	}()
}

// submitResult handles the synchronous leg of the submission. By the time
// it runs the push may already have resolved the order; in that case the
// result is stale and dropped.
func (s *Session) submitResult(err error) {
	if s.phase != phaseSubmitting || s.pending == nil {
		return
	}
	if err == nil {
		s.phase = phaseAwaiting
		return
	}

	var rejection *api.RejectionError
	if errors.As(err, &rejection) {
		s.logf("order %s rejected: %s", s.pending.RefID, rejection.Message)
		reason := domain.ClassifyFailure(rejection.Message)
		s.failOrder(reason, nil, rejectionNotice(reason, rejection.Message))
		return
	}

	s.logf("order %s submit: %v", s.pending.RefID, err)
	s.failOrder(domain.FailureUnknown, nil,
		newNotice(poserrors.CodeOrderRejected, "Order not submitted", "The order could not reach the server. The cart was kept."))
}

func (s *Session) completeOrder(completed *channel.OrderCompleted) {
	if completed == nil {
		return
	}
	if s.pending == nil {
		s.logf("order_completed %s with no pending order", completed.Order.ID)
		return
	}
	s.stopResolveTimer()

	for _, line := range s.pending.Items {
		s.inventory.Commit(line.DrinkID)
	}

	completedAt := completed.Timestamp
	if completedAt.IsZero() {
		completedAt = s.clock()
	}
	lines := make([]domain.ReceiptLine, 0, len(completed.Order.Items))
	for _, line := range completed.Order.Items {
		lines = append(lines, domain.ReceiptLine{
			DrinkID:   line.DrinkID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
		})
	}
	receipt := domain.Receipt{
		OrderID:       completed.Order.ID,
		TransactionID: completed.Transaction.ID,
		Lines:         lines,
		Subtotal:      completed.Order.Subtotal,
		Tax:           completed.Order.Tax,
		Total:         completed.Order.Total,
		CompletedAt:   completedAt.UTC(),
	}

	s.pending = nil
	s.phase = phaseIdle
	s.cart = s.cart.Clear()
	s.presentCart()
	s.presenter.OrderConfirmed(receipt)
	s.journalReceipt(receipt)
	s.emit("order_completed", telemetry.SeverityInfo,
		fmt.Sprintf("order %s total %d", receipt.OrderID, receipt.Total))
}

func (s *Session) orderFailed(failed *channel.OrderFailed) {
	if failed == nil {
		return
	}
	if s.pending == nil {
		s.logf("order_failed with no pending order: %s", failed.Message)
		return
	}
	reason := domain.ClassifyFailure(failed.Message)
	s.failOrder(reason, failed.Items, rejectionNotice(reason, failed.Message))
}

func (s *Session) resolveExpired() {
	if s.pending == nil {
		return
	}
	s.logf("order %s resolution timed out", s.pending.RefID)
	s.failOrder(domain.FailureUnknown, nil,
		newNotice(poserrors.CodeOrderTimeout, "Order timed out", "No confirmation arrived in time. The order was not completed."))
}

// failOrder is the single failure resolution path. Out-of-stock failures
// with a server-provided item list repair the cart partially: only the
// flagged items are removed and only their optimistic deltas rolled back.
// Every other failure rolls back the full snapshot and keeps the cart so
// the operator can retry.
func (s *Session) failOrder(reason domain.FailureReason, flagged []channel.FailedItem, notice Notice) {
	s.stopResolveTimer()
	pending := *s.pending
	s.pending = nil
	s.phase = phaseIdle
	s.cart = s.cart.SetProcessing(false)

	if reason == domain.FailureOutOfStock && len(flagged) > 0 {
		for _, item := range flagged {
			if item.Available {
				continue
			}
			s.inventory.Rollback(item.DrinkID)
			s.cart, _, _ = s.cart.RemoveItem(item.DrinkID)
		}
	} else {
		for _, line := range pending.Items {
			s.inventory.Rollback(line.DrinkID)
		}
	}

	s.presentCart()
	s.presentInventory()
	s.notify(notice)
	s.emit("order_failed", telemetry.SeverityWarn,
		fmt.Sprintf("order %s: %s", pending.RefID, notice.Description))
}

func rejectionNotice(reason domain.FailureReason, message string) Notice {
	switch reason {
	case domain.FailureOutOfStock:
		return newNotice(poserrors.CodeOutOfStock, "Items unavailable",
			"Some drinks are out of stock and were removed from the cart.")
	case domain.FailurePaymentDeclined:
		return newNotice(poserrors.CodePaymentDeclined, "Payment declined",
			"The payment was declined. The cart was kept for retry.")
	default:
		if message == "" {
			message = "The order could not be completed."
		}
		return newNotice(poserrors.CodeOrderRejected, "Order failed", message)
	}
}

func (s *Session) journalReceipt(receipt domain.Receipt) {
	if s.receipts == nil {
		return
	}
	ctx := s.runCtx
	if ctx == nil {
		return
	}
	if err := s.receipts.RecordReceipt(ctx, storage.ReceiptRecord{
		OrderID:       receipt.OrderID,
		TransactionID: receipt.TransactionID,
		ItemCount:     len(receipt.Lines),
		Subtotal:      receipt.Subtotal,
		Tax:           receipt.Tax,
		Total:         receipt.Total,
		CompletedAt:   receipt.CompletedAt,
	}); err != nil {
		s.logf("journal receipt %s: %v", receipt.OrderID, err)
	}
}
