package ledger

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/zwiggato/internal/failure"
	"github.com/roach88/zwiggato/internal/order"
	"github.com/roach88/zwiggato/internal/store"
)

// Source reads order rows. *store.Store implements it.
type Source interface {
	ReadOrders(ctx context.Context) ([]store.OrderRow, error)
	ReadOrder(ctx context.Context, id int64) (store.OrderRow, error)
}

// ListResult is the outcome of a listing: decoded orders newest first and the
// ids of rows that could not be decoded.
type ListResult struct {
	Orders  []order.Order
	Skipped []int64
}

// Reader lists persisted orders.
type Reader struct {
	source Source
	logger *slog.Logger
}

// NewReader creates a Reader. A nil logger uses slog.Default().
func NewReader(source Source, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reader{source: source, logger: logger}
}

// List returns all orders newest first.
func (r *Reader) List(ctx context.Context) ([]order.Order, error) {
	res, err := r.ListReport(ctx)
	return res.Orders, err
}

// ListReport returns all orders newest first along with skipped row ids.
//
// A storage failure fails the whole read. A single row whose item snapshot
// or timestamp cannot be decoded is logged and left out; the other rows are
// still returned.
func (r *Reader) ListReport(ctx context.Context) (ListResult, error) {
	rows, err := r.source.ReadOrders(ctx)
	if err != nil {
		r.logger.Error("order listing failed", "error", err)
		return ListResult{}, failure.Storage("unable to fetch orders", err)
	}

	res := ListResult{Orders: make([]order.Order, 0, len(rows))}
	for _, row := range rows {
		o, err := row.Decode()
		if err != nil {
			r.logger.Warn("skipping corrupt order record", "order_id", row.ID, "error", err)
			res.Skipped = append(res.Skipped, row.ID)
			continue
		}
		res.Orders = append(res.Orders, o)
	}
	return res, nil
}

// Get returns one order. An unknown id is a not-found failure; an
// undecodable row is a storage failure.
func (r *Reader) Get(ctx context.Context, id int64) (order.Order, error) {
	row, err := r.source.ReadOrder(ctx, id)
	if errors.Is(err, store.ErrOrderNotFound) {
		return order.Order{}, failure.NotFound("order not found")
	}
	if err != nil {
		r.logger.Error("order read failed", "order_id", id, "error", err)
		return order.Order{}, failure.Storage("unable to fetch order", err)
	}

	o, err := row.Decode()
	if err != nil {
		r.logger.Error("corrupt order record", "order_id", id, "error", err)
		return order.Order{}, failure.Storage("unable to fetch order", err)
	}
	return o, nil
}
