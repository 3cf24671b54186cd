package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/zwiggato/internal/order"
)

// ErrOrderNotFound is returned by ReadOrder for an unknown id.
var ErrOrderNotFound = errors.New("order not found")

// OrderRow is a raw orders row. ItemsJSON is the opaque snapshot as stored.
type OrderRow struct {
	ID        int64
	ItemsJSON string
	Total     float64
	CreatedAt string
}

// Decode expands the row into an order.Order.
func (r OrderRow) Decode() (order.Order, error) {
	items, err := unmarshalItems(r.ItemsJSON)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %d: %w", r.ID, err)
	}
	created, err := parseTime(r.CreatedAt)
	if err != nil {
		return order.Order{}, fmt.Errorf("order %d: %w", r.ID, err)
	}
	return order.Order{
		ID:        r.ID,
		Items:     items,
		Total:     r.Total,
		CreatedAt: created,
	}, nil
}

// InsertOrder appends one immutable order row and returns its id.
// This is the only statement that writes the orders table.
func (s *Store) InsertOrder(ctx context.Context, items []order.Line, total float64, createdAt time.Time) (int64, error) {
	itemsJSON, err := marshalItems(items)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO orders (items_json, total, created_at)
		VALUES (?, ?, ?)
	`, itemsJSON, total, formatTime(createdAt))
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert order: last insert id: %w", err)
	}
	return id, nil
}

// ReadOrders returns all order rows newest first. Rows with equal
// created_at are ordered by id descending.
func (s *Store) ReadOrders(ctx context.Context) ([]OrderRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, items_json, total, created_at
		FROM orders
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	out := []OrderRow{}
	for rows.Next() {
		var r OrderRow
		if err := rows.Scan(&r.ID, &r.ItemsJSON, &r.Total, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

// ReadOrder returns a single order row. Returns ErrOrderNotFound if absent.
func (s *Store) ReadOrder(ctx context.Context, id int64) (OrderRow, error) {
	var r OrderRow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, items_json, total, created_at
		FROM orders
		WHERE id = ?
	`, id).Scan(&r.ID, &r.ItemsJSON, &r.Total, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderRow{}, ErrOrderNotFound
	}
	if err != nil {
		return OrderRow{}, fmt.Errorf("read order: %w", err)
	}
	return r, nil
}
