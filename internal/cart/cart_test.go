package cart

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zwiggato/internal/order"
)

var (
	spaghetti = Item{ID: 1, Name: "Classic Spaghetti", Price: 12.5}
	tiramisu  = Item{ID: 4, Name: "Tiramisu", Price: 6.75}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCart(t *testing.T) (*Cart, *MemoryStorage) {
	t.Helper()
	mem := NewMemoryStorage()
	c, err := Open(mem, decimal.Zero, quietLogger())
	require.NoError(t, err)
	return c, mem
}

func TestAddItem_MergeLaw(t *testing.T) {
	for _, n := range []int{1, 2, 5, 17} {
		c, _ := newCart(t)
		for i := 0; i < n; i++ {
			require.NoError(t, c.AddItem(spaghetti))
		}
		assert.Equal(t, n, c.Quantity(spaghetti.ID), "after %d adds", n)
		assert.Equal(t, 1, c.Len())
	}
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	c, _ := newCart(t)
	require.NoError(t, c.AddItem(tiramisu))
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(tiramisu))

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, tiramisu.ID, lines[0].ID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, spaghetti.ID, lines[1].ID)
}

func TestAddItem_RejectsInvalidItem(t *testing.T) {
	c, _ := newCart(t)
	assert.Error(t, c.AddItem(Item{ID: 9, Name: "", Price: 3}))
	assert.Error(t, c.AddItem(Item{ID: 9, Name: "Free Lunch", Price: 0}))
	assert.True(t, c.IsEmpty())
}

func TestChangeQuantity(t *testing.T) {
	tests := []struct {
		name    string
		adds    int
		delta   int
		wantQty int
		present bool
	}{
		{"increment", 1, 1, 2, true},
		{"decrement", 3, -1, 2, true},
		{"to zero removes", 2, -2, 0, false},
		{"below zero removes", 1, -5, 0, false},
		{"zero delta", 2, 0, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newCart(t)
			for i := 0; i < tt.adds; i++ {
				require.NoError(t, c.AddItem(spaghetti))
			}

			found, err := c.ChangeQuantity(spaghetti.ID, tt.delta)
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, tt.wantQty, c.Quantity(spaghetti.ID))
			assert.Equal(t, tt.present, c.Len() == 1)
			for _, l := range c.Lines() {
				assert.Positive(t, l.Quantity)
			}
		})
	}
}

func TestChangeQuantity_NegativeOfQuantityRemovesLine(t *testing.T) {
	c, _ := newCart(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.AddItem(spaghetti))
	}
	require.NoError(t, c.AddItem(tiramisu))

	_, err := c.ChangeQuantity(spaghetti.ID, -c.Quantity(spaghetti.ID))
	require.NoError(t, err)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, tiramisu.ID, lines[0].ID)
}

func TestChangeQuantity_OverflowRejected(t *testing.T) {
	c, mem := newCart(t)
	require.NoError(t, c.AddItem(spaghetti))
	before := mem.Raw()

	found, err := c.ChangeQuantity(spaghetti.ID, math.MaxInt)
	assert.True(t, found)
	require.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Equal(t, 1, c.Quantity(spaghetti.ID), "line kept at its old quantity")
	assert.Equal(t, before, mem.Raw(), "snapshot not rewritten")

	_, err = c.ChangeQuantity(spaghetti.ID, math.MaxInt-1)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, c.Quantity(spaghetti.ID))

	err = c.AddItem(spaghetti)
	require.ErrorIs(t, err, ErrQuantityOverflow)
	assert.Equal(t, math.MaxInt, c.Quantity(spaghetti.ID))
}

func TestChangeQuantity_UnknownItem(t *testing.T) {
	c, _ := newCart(t)
	found, err := c.ChangeQuantity(42, 1)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, c.IsEmpty())
}

func TestRemoveAndClear(t *testing.T) {
	c, _ := newCart(t)
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(tiramisu))

	found, err := c.Remove(spaghetti.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, c.Len())

	found, err = c.Remove(spaghetti.ID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Clear())
	assert.True(t, c.IsEmpty())
}

func TestSettle(t *testing.T) {
	c, _ := newCart(t)
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(tiramisu))
	submitted := c.Submission().Items

	require.NoError(t, c.AddItem(spaghetti))
	_, err := c.Remove(tiramisu.ID)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(Item{ID: 7, Name: "Garlic Bread", Price: 4}))

	require.NoError(t, c.Settle(submitted))

	assert.Equal(t, 1, c.Quantity(spaghetti.ID), "unit added in flight remains")
	assert.Equal(t, 0, c.Quantity(tiramisu.ID))
	assert.Equal(t, 1, c.Quantity(7))
	assert.Equal(t, 2, c.Len())
}

func TestSettle_WholeSubmissionEmptiesCart(t *testing.T) {
	c, mem := newCart(t)
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(spaghetti))

	require.NoError(t, c.Settle(c.Submission().Items))
	assert.True(t, c.IsEmpty())

	reopened, err := Open(mem, decimal.Zero, quietLogger())
	require.NoError(t, err)
	assert.True(t, reopened.IsEmpty(), "settled state is persisted")
}

func TestTotals(t *testing.T) {
	c, _ := newCart(t)

	empty := c.Totals()
	assert.True(t, empty.Subtotal.IsZero())
	assert.True(t, empty.DeliveryFee.IsZero())
	assert.True(t, empty.Total.IsZero())

	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(tiramisu))

	got := c.Totals()
	assert.Equal(t, "31.75", got.Subtotal.StringFixed(2))
	assert.Equal(t, "3.50", got.DeliveryFee.StringFixed(2))
	assert.Equal(t, "35.25", got.Total.StringFixed(2))

	_, err := c.ChangeQuantity(spaghetti.ID, -2)
	require.NoError(t, err)
	_, err = c.ChangeQuantity(tiramisu.ID, -1)
	require.NoError(t, err)
	assert.True(t, c.Totals().Total.IsZero())
}

func TestTotals_InvariantAcrossMutations(t *testing.T) {
	c, _ := newCart(t)
	check := func() {
		tot := c.Totals()
		if c.IsEmpty() {
			assert.True(t, tot.Total.IsZero())
			return
		}
		assert.True(t, tot.Total.Equal(tot.Subtotal.Add(order.DefaultDeliveryFee)))
	}

	check()
	require.NoError(t, c.AddItem(spaghetti))
	check()
	require.NoError(t, c.AddItem(tiramisu))
	check()
	_, err := c.ChangeQuantity(spaghetti.ID, 3)
	require.NoError(t, err)
	check()
	_, err = c.Remove(tiramisu.ID)
	require.NoError(t, err)
	check()
	_, err = c.ChangeQuantity(spaghetti.ID, -10)
	require.NoError(t, err)
	check()
}

func TestTotals_ConfiguredFee(t *testing.T) {
	c, err := Open(NewMemoryStorage(), decimal.RequireFromString("2.00"), quietLogger())
	require.NoError(t, err)
	require.NoError(t, c.AddItem(spaghetti))
	assert.Equal(t, "14.50", c.Totals().Total.StringFixed(2))
}

func TestSubmission(t *testing.T) {
	c, _ := newCart(t)
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(spaghetti))

	sub := c.Submission()
	assert.Equal(t, []order.Line{{ID: 1, Name: "Classic Spaghetti", Price: 12.5, Quantity: 2}}, sub.Items)
	assert.Equal(t, 28.5, sub.Total)
	require.NoError(t, sub.Validate())

	// The payload is a copy.
	sub.Items[0].Quantity = 99
	assert.Equal(t, 2, c.Quantity(spaghetti.ID))
}

func TestPersistence_SavedAfterEveryMutation(t *testing.T) {
	c, mem := newCart(t)

	require.NoError(t, c.AddItem(spaghetti))
	lines, err := mem.Load()
	require.NoError(t, err)
	assert.Equal(t, c.Lines(), lines)

	_, err = c.ChangeQuantity(spaghetti.ID, 2)
	require.NoError(t, err)
	lines, err = mem.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, lines[0].Quantity)

	require.NoError(t, c.Clear())
	lines, err = mem.Load()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestOpen_Rehydrates(t *testing.T) {
	c, mem := newCart(t)
	require.NoError(t, c.AddItem(tiramisu))
	require.NoError(t, c.AddItem(spaghetti))
	require.NoError(t, c.AddItem(spaghetti))

	reopened, err := Open(mem, decimal.Zero, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, c.Lines(), reopened.Lines())
	assert.True(t, c.Totals().Total.Equal(reopened.Totals().Total))
}

func TestOpen_CorruptSnapshotResetsToEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"lines": [`},
		{"wrong shape", `["a", "b"]`},
		{"missing lines", `{}`},
		{"unknown field", `{"lines": [], "owner": "bob"}`},
		{"zero quantity", `{"lines": [{"id": 1, "name": "Classic Spaghetti", "price": 12.5, "quantity": 0}]}`},
		{"negative price", `{"lines": [{"id": 1, "name": "Classic Spaghetti", "price": -1, "quantity": 1}]}`},
		{"duplicate id", `{"lines": [{"id": 1, "name": "A", "price": 1, "quantity": 1}, {"id": 1, "name": "B", "price": 1, "quantity": 1}]}`},
		{"string quantity", `{"lines": [{"id": 1, "name": "A", "price": 1, "quantity": "2"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemoryStorage()
			mem.SetRaw([]byte(tt.raw))

			c, err := Open(mem, decimal.Zero, quietLogger())
			require.NoError(t, err)
			assert.True(t, c.IsEmpty())
			assert.True(t, c.Totals().Total.IsZero())

			// The cart is usable after the reset.
			require.NoError(t, c.AddItem(spaghetti))
			assert.Equal(t, 1, c.Len())
		})
	}
}

type brokenStorage struct{ loadErr, saveErr error }

func (b brokenStorage) Load() ([]order.Line, error) { return nil, b.loadErr }
func (b brokenStorage) Save([]order.Line) error     { return b.saveErr }

func TestOpen_ReadFailureIsReturned(t *testing.T) {
	_, err := Open(brokenStorage{loadErr: errors.New("permission denied")}, decimal.Zero, quietLogger())
	require.Error(t, err)
	assert.ErrorContains(t, err, "permission denied")
}

func TestMutation_SaveFailureIsReturned(t *testing.T) {
	c, err := Open(brokenStorage{saveErr: errors.New("disk full")}, decimal.Zero, quietLogger())
	require.NoError(t, err)

	err = c.AddItem(spaghetti)
	require.Error(t, err)
	assert.ErrorContains(t, err, "disk full")
}

func TestOpen_NilStorageIsMemoryOnly(t *testing.T) {
	c, err := Open(nil, decimal.Zero, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(spaghetti))
	assert.Equal(t, 1, c.Len())
}

func TestCart_ConcurrentAdds(t *testing.T) {
	c, _ := newCart(t)

	const goroutines = 8
	const adds = 25

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < adds; j++ {
				assert.NoError(t, c.AddItem(spaghetti))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*adds, c.Quantity(spaghetti.ID))
}
