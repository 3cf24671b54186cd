// Package ledger accepts submitted orders and reads them back.
//
// Ledger is the only writer of the orders table. Each accepted submission
// becomes one immutable row; there is no update or delete path. Reader
// lists rows newest first and expands their stored item snapshots.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/zwiggato/internal/failure"
	"github.com/roach88/zwiggato/internal/order"
)

// TotalPolicy controls how a claimed total is checked.
type TotalPolicy string

const (
	// PolicyVerify recomputes items plus delivery fee and rejects claims
	// that differ by more than the tolerance.
	PolicyVerify TotalPolicy = "verify"

	// PolicyTrust accepts any positive claimed total.
	PolicyTrust TotalPolicy = "trust"
)

// ParseTotalPolicy parses a policy name. The empty string means PolicyVerify.
func ParseTotalPolicy(s string) (TotalPolicy, error) {
	switch TotalPolicy(s) {
	case "", PolicyVerify:
		return PolicyVerify, nil
	case PolicyTrust:
		return PolicyTrust, nil
	default:
		return "", fmt.Errorf("invalid total policy %q: must be %q or %q", s, PolicyVerify, PolicyTrust)
	}
}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// Writer appends order rows. *store.Store implements it.
type Writer interface {
	InsertOrder(ctx context.Context, items []order.Line, total float64, createdAt time.Time) (int64, error)
}

// Options configure a Ledger. Zero values select the defaults.
type Options struct {
	DeliveryFee decimal.Decimal

	// Tolerance is the largest accepted |claimed - expected| under
	// PolicyVerify. Nil selects order.DefaultTolerance; zero demands an
	// exact match.
	Tolerance *decimal.Decimal

	Policy      TotalPolicy
	Clock       Clock
	Logger      *slog.Logger
}

// Ledger validates and persists submitted orders.
type Ledger struct {
	store     Writer
	fee       decimal.Decimal
	tolerance decimal.Decimal
	policy    TotalPolicy
	clock     Clock
	logger    *slog.Logger
}

// New creates a Ledger writing through w.
func New(w Writer, opts Options) *Ledger {
	l := &Ledger{
		store:     w,
		fee:       opts.DeliveryFee,
		tolerance: order.DefaultTolerance,
		policy:    opts.Policy,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if l.fee.IsZero() {
		l.fee = order.DefaultDeliveryFee
	}
	if opts.Tolerance != nil {
		l.tolerance = *opts.Tolerance
	}
	if l.policy == "" {
		l.policy = PolicyVerify
	}
	if l.clock == nil {
		l.clock = SystemClock{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Submit validates sub and appends it to the ledger.
//
// Returns a validation failure (nothing written) when items is empty, a line
// is malformed, total is not positive, or, under PolicyVerify, total does
// not match the recomputed items plus delivery fee. Returns a storage
// failure when the write fails. On success the returned Order carries the
// assigned id and creation time.
func (l *Ledger) Submit(ctx context.Context, sub order.Submission) (order.Order, error) {
	if err := sub.Validate(); err != nil {
		return order.Order{}, err
	}

	if l.policy == PolicyVerify {
		expected := order.Quote(sub.Items, l.fee).Total
		if !order.WithinTolerance(sub.Total, expected, l.tolerance) {
			return order.Order{}, failure.Validation("total",
				fmt.Sprintf("total %.2f does not match items plus delivery fee (%s)", sub.Total, expected.StringFixed(2)))
		}
	}

	items := make([]order.Line, len(sub.Items))
	copy(items, sub.Items)
	total := order.RoundCents(sub.Total)
	// Stored with microsecond precision; truncate so the echo matches a re-read.
	createdAt := l.clock.Now().UTC().Truncate(time.Microsecond)

	id, err := l.store.InsertOrder(ctx, items, total, createdAt)
	if err != nil {
		l.logger.Error("order insert failed", "error", err, "items", len(items), "total", total)
		return order.Order{}, failure.Storage("unable to create order", err)
	}

	l.logger.Info("order created", "order_id", id, "items", len(items), "total", total)
	return order.Order{
		ID:        id,
		Items:     items,
		Total:     total,
		CreatedAt: createdAt,
	}, nil
}
