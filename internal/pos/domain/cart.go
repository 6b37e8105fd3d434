// Package domain holds the pure state for one point-of-sale session: the
// cart reducer, the inventory cache, and pending order bookkeeping. Nothing
// in this package performs I/O; all effects live in the app layer.
package domain

// Quantity bounds for a single cart line. Increments past MaxQuantity clamp
// instead of failing.
const (
	MinQuantity = 1
	MaxQuantity = 99
)

// CartItem is one line in the cart. UnitPrice is in cents.
type CartItem struct {
	DrinkID   string
	Name      string
	UnitPrice int64
	Quantity  int
}

// Cart is the reducer state for a session's cart. The zero value is an
// empty, unlocked cart. All transitions return a new value and never mutate
// the receiver, so callers can treat carts as immutable snapshots.
type Cart struct {
	items      []CartItem
	processing bool
}

// AddItem merges an item into the cart, preserving insertion order and
// clamping the line quantity to MaxQuantity. It returns the next state and
// the quantity actually added, which is zero when the cart is locked, the
// item is invalid, or the line is already at the clamp.
func (c Cart) AddItem(item CartItem) (Cart, int) {
	if c.processing {
		return c, 0
	}
	if item.DrinkID == "" || item.Quantity < MinQuantity {
		return c, 0
	}

	next := c.copyItems()
	for i, line := range next.items {
		if line.DrinkID != item.DrinkID {
			continue
		}
		quantity := line.Quantity + item.Quantity
		if quantity > MaxQuantity {
			quantity = MaxQuantity
		}
		added := quantity - line.Quantity
		next.items[i].Quantity = quantity
		return next, added
	}

	if item.Quantity > MaxQuantity {
		item.Quantity = MaxQuantity
	}
	next.items = append(next.items, item)
	return next, item.Quantity
}

// RemoveItem filters a line out of the cart. Removing an absent id is a
// no-op, not an error. It returns the next state, the removed line, and
// whether a line was removed.
func (c Cart) RemoveItem(drinkID string) (Cart, CartItem, bool) {
	if c.processing {
		return c, CartItem{}, false
	}
	for i, line := range c.items {
		if line.DrinkID != drinkID {
			continue
		}
		next := c.copyItems()
		next.items = append(next.items[:i], next.items[i+1:]...)
		return next, line, true
	}
	return c, CartItem{}, false
}

// Clear resets the cart to empty and unlocked regardless of prior state.
// Used on terminal resolution of an order.
func (c Cart) Clear() Cart {
	return Cart{}
}

// SetProcessing gates concurrent mutation while an order is in flight. It
// is the only transition the order coordinator uses to lock the cart.
func (c Cart) SetProcessing(on bool) Cart {
	next := c.copyItems()
	next.processing = on
	return next
}

// Processing reports whether an order is in flight for this cart.
func (c Cart) Processing() bool {
	return c.processing
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.items) == 0
}

// Items returns a defensive copy of the cart lines in insertion order.
func (c Cart) Items() []CartItem {
	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Subtotal sums unit price times quantity across all lines, in cents.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.items {
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

func (c Cart) copyItems() Cart {
	items := make([]CartItem, len(c.items))
	copy(items, c.items)
	return Cart{items: items, processing: c.processing}
}
