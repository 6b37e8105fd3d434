package domain

import "errors"

var (
	// ErrUnknownDrink indicates an optimistic write against a drink the
	// cache has never seen.
	ErrUnknownDrink = errors.New("drink is not in the inventory cache")
	// ErrInsufficientInventory indicates an optimistic write that would
	// drive availability negative.
	ErrInsufficientInventory = errors.New("insufficient inventory")
)

// InventoryRecord is the cached availability snapshot for one drink.
// UnitPrice is in cents. Sales carries the server's cumulative sold count.
type InventoryRecord struct {
	DrinkID   string
	Name      string
	UnitPrice int64
	Available int
	Sales     int
}

// InventoryCache holds the local view of server inventory. Optimistic
// writes are tentative and reversible; authoritative writes from a server
// push always win and clear any pending optimistic bookkeeping for the id.
//
// The cache is not safe for concurrent use. The session dispatch loop is
// its only mutator.
type InventoryCache struct {
	records map[string]InventoryRecord
	prior   map[string]int
}

// NewInventoryCache creates an empty inventory cache.
func NewInventoryCache() *InventoryCache {
	return &InventoryCache{
		records: make(map[string]InventoryRecord),
		prior:   make(map[string]int),
	}
}

// ReplaceAll swaps in a full catalog snapshot, discarding every record and
// any pending optimistic bookkeeping. Used for catalog bootstrap and the
// drinks_refresh push.
func (c *InventoryCache) ReplaceAll(records []InventoryRecord) {
	c.records = make(map[string]InventoryRecord, len(records))
	c.prior = make(map[string]int)
	for _, record := range records {
		if record.DrinkID == "" {
			continue
		}
		c.records[record.DrinkID] = record
	}
}

// Get returns the cached record for a drink.
func (c *InventoryCache) Get(drinkID string) (InventoryRecord, bool) {
	record, ok := c.records[drinkID]
	return record, ok
}

// Records returns a copy of all cached records in unspecified order.
func (c *InventoryCache) Records() []InventoryRecord {
	records := make([]InventoryRecord, 0, len(c.records))
	for _, record := range c.records {
		records = append(records, record)
	}
	return records
}

// ApplyOptimistic adjusts availability by delta ahead of server
// confirmation. The pre-write value is recorded once per drink so Rollback
// can restore the exact prior snapshot even across repeated writes. A delta
// that would drive availability negative is rejected and leaves the cache
// untouched.
func (c *InventoryCache) ApplyOptimistic(drinkID string, delta int) error {
	record, ok := c.records[drinkID]
	if !ok {
		return ErrUnknownDrink
	}
	available := record.Available + delta
	if available < 0 {
		return ErrInsufficientInventory
	}
	if _, pending := c.prior[drinkID]; !pending {
		c.prior[drinkID] = record.Available
	}
	record.Available = available
	c.records[drinkID] = record
	return nil
}

// PendingOptimistic reports whether a drink carries an uncommitted
// optimistic write.
func (c *InventoryCache) PendingOptimistic(drinkID string) bool {
	_, pending := c.prior[drinkID]
	return pending
}

// Commit finalizes the optimistic value for a drink by discarding its
// rollback record. A commit with no pending write is a no-op.
func (c *InventoryCache) Commit(drinkID string) {
	delete(c.prior, drinkID)
}

// Rollback restores the availability recorded before the first optimistic
// write for a drink. A rollback with no pending write is a no-op.
func (c *InventoryCache) Rollback(drinkID string) {
	available, pending := c.prior[drinkID]
	if !pending {
		return
	}
	delete(c.prior, drinkID)
	record, ok := c.records[drinkID]
	if !ok {
		return
	}
	record.Available = available
	c.records[drinkID] = record
}

// ApplyAuthoritative overwrites a drink's availability and sales count from
// a server push. The push carries post-mutation server state, so the write
// is unconditional, supersedes any pending optimistic value, and is
// idempotent. Unknown drinks are inserted.
func (c *InventoryCache) ApplyAuthoritative(drinkID string, available int, sales int) {
	delete(c.prior, drinkID)
	record := c.records[drinkID]
	record.DrinkID = drinkID
	record.Available = available
	record.Sales = sales
	c.records[drinkID] = record
}
