// Package cart holds the client-side selection of menu items pending
// submission.
//
// A Cart is a small state machine over ordered lines keyed by item id.
// Totals are derived from the current lines each time they are read. The
// full snapshot is written to Storage after every mutation and read back by
// Open.
package cart

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/zwiggato/internal/order"
)

// ErrQuantityOverflow is returned when a change would push a line's
// quantity past the largest int. The cart is left unchanged.
var ErrQuantityOverflow = errors.New("quantity overflow")

// Item is a menu item being added to the cart.
type Item struct {
	ID    int64
	Name  string
	Price float64
}

// Cart is the current selection. Safe for concurrent use.
type Cart struct {
	mu      sync.Mutex
	lines   []order.Line
	fee     decimal.Decimal
	storage Storage
	logger  *slog.Logger
}

// Open rehydrates a cart from storage.
//
// A missing snapshot yields an empty cart. A snapshot that cannot be parsed,
// or that contains an invalid line, is discarded: the cart starts empty and a
// warning is logged. Only an I/O failure reading the snapshot is returned.
// A zero fee selects order.DefaultDeliveryFee; a nil storage keeps the cart
// in memory only.
func Open(storage Storage, fee decimal.Decimal, logger *slog.Logger) (*Cart, error) {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	if fee.IsZero() {
		fee = order.DefaultDeliveryFee
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cart{fee: fee, storage: storage, logger: logger}

	lines, err := storage.Load()
	if errors.Is(err, ErrCorrupt) {
		logger.Warn("discarding unreadable cart snapshot", "error", err)
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := checkLines(lines); err != nil {
		logger.Warn("discarding invalid cart snapshot", "error", err)
		return c, nil
	}

	c.lines = lines
	return c, nil
}

// AddItem adds one unit of item. An item already in the cart has its
// quantity incremented; a new item is appended with quantity 1.
func (c *Cart) AddItem(item Item) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("add item %d: name is required", item.ID)
	}
	if !(item.Price > 0) {
		return fmt.Errorf("add item %d: price must be positive", item.ID)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if i := c.find(item.ID); i >= 0 {
		if c.lines[i].Quantity == math.MaxInt {
			return fmt.Errorf("add item %d: %w", item.ID, ErrQuantityOverflow)
		}
		c.lines[i].Quantity++
	} else {
		c.lines = append(c.lines, order.Line{
			ID:       item.ID,
			Name:     item.Name,
			Price:    item.Price,
			Quantity: 1,
		})
	}
	return c.save()
}

// ChangeQuantity adds delta to the quantity of line id. A line whose
// quantity drops to zero or below is removed. Reports false when id is not
// in the cart, in which case nothing changes.
func (c *Cart) ChangeQuantity(id int64, delta int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.find(id)
	if i < 0 {
		return false, nil
	}
	cur := c.lines[i].Quantity
	if delta > 0 && cur > math.MaxInt-delta {
		return true, fmt.Errorf("change quantity of item %d: %w", id, ErrQuantityOverflow)
	}
	if q := cur + delta; q > 0 {
		c.lines[i].Quantity = q
	} else {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
	return true, c.save()
}

// Remove deletes line id regardless of quantity.
func (c *Cart) Remove(id int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.find(id)
	if i < 0 {
		return false, nil
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return true, c.save()
}

// Clear empties the cart.
func (c *Cart) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lines = nil
	return c.save()
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []order.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// Quantity returns the quantity of line id, or 0.
func (c *Cart) Quantity(id int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.find(id); i >= 0 {
		return c.lines[i].Quantity
	}
	return 0
}

// Settle removes the quantities of an accepted submission. Units added
// while the order was in flight stay in the cart; a line settled down to
// zero is removed.
func (c *Cart) Settle(submitted []order.Line) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range submitted {
		i := c.find(s.ID)
		if i < 0 {
			continue
		}
		if q := c.lines[i].Quantity - s.Quantity; q > 0 {
			c.lines[i].Quantity = q
		} else {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
	}
	return c.save()
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// Totals returns subtotal, delivery fee and total. An empty cart totals zero
// and carries no fee.
func (c *Cart) Totals() order.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return order.Quote(c.lines, c.fee)
}

// Submission returns the checkout payload for the current cart.
func (c *Cart) Submission() order.Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return order.Submission{
		Items: c.snapshot(),
		Total: order.Quote(c.lines, c.fee).Total.InexactFloat64(),
	}
}

func (c *Cart) find(id int64) int {
	for i, l := range c.lines {
		if l.ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) snapshot() []order.Line {
	out := make([]order.Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// save must be called with mu held.
func (c *Cart) save() error {
	if err := c.storage.Save(c.snapshot()); err != nil {
		c.logger.Error("cart snapshot not saved", "error", err)
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// checkLines rejects snapshots that could not have been produced by a Cart.
func checkLines(lines []order.Line) error {
	seen := make(map[int64]bool, len(lines))
	for i, l := range lines {
		switch {
		case seen[l.ID]:
			return fmt.Errorf("line %d: duplicate item %d", i, l.ID)
		case strings.TrimSpace(l.Name) == "":
			return fmt.Errorf("line %d: empty name", i)
		case !(l.Price > 0):
			return fmt.Errorf("line %d: non-positive price", i)
		case l.Quantity <= 0:
			return fmt.Errorf("line %d: non-positive quantity", i)
		}
		seen[l.ID] = true
	}
	return nil
}
