package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/zwiggato/internal/catalog"
)

// CatalogCounts holds row counts of the catalog tables.
type CatalogCounts struct {
	Restaurants int `json:"restaurants"`
	MenuItems   int `json:"menu_items"`
}

// EnsureRestaurant inserts r unless a restaurant with the same name exists.
// Uses ON CONFLICT(name) DO NOTHING so the check and the insert are one
// statement. Reports whether a row was inserted.
func (s *Store) EnsureRestaurant(ctx context.Context, r catalog.Restaurant) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO restaurants (name, cuisine, image)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, r.Name, r.Cuisine, r.Image)
	if err != nil {
		return false, fmt.Errorf("ensure restaurant: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure restaurant: rows affected: %w", err)
	}
	return n > 0, nil
}

// EnsureMenuItem inserts item unless the (restaurant_id, name) pair exists.
// An empty description is stored as NULL.
func (s *Store) EnsureMenuItem(ctx context.Context, item catalog.MenuItem) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO menu_items (restaurant_id, name, description, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(restaurant_id, name) DO NOTHING
	`, item.RestaurantID, item.Name, nullString(item.Description), item.Price)
	if err != nil {
		return false, fmt.Errorf("ensure menu item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure menu item: rows affected: %w", err)
	}
	return n > 0, nil
}

// RestaurantIDs returns the name→id index of all restaurants.
func (s *Store) RestaurantIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM restaurants`)
	if err != nil {
		return nil, fmt.Errorf("query restaurant ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan restaurant id: %w", err)
		}
		ids[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurant ids: %w", err)
	}
	return ids, nil
}

// ListRestaurants returns all restaurants ordered by id.
func (s *Store) ListRestaurants(ctx context.Context) ([]catalog.Restaurant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, cuisine, image
		FROM restaurants
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := []catalog.Restaurant{}
	for rows.Next() {
		var r catalog.Restaurant
		if err := rows.Scan(&r.ID, &r.Name, &r.Cuisine, &r.Image); err != nil {
			return nil, fmt.Errorf("scan restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate restaurants: %w", err)
	}
	return restaurants, nil
}

// ListMenu returns the menu items of one restaurant ordered by id. An
// unknown restaurant id yields an empty slice.
func (s *Store) ListMenu(ctx context.Context, restaurantID int64) ([]catalog.MenuItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, restaurant_id, name, description, price
		FROM menu_items
		WHERE restaurant_id = ?
		ORDER BY id ASC
	`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("query menu: %w", err)
	}
	defer rows.Close()

	items := []catalog.MenuItem{}
	for rows.Next() {
		var (
			item catalog.MenuItem
			desc sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.RestaurantID, &item.Name, &desc, &item.Price); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		item.Description = desc.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate menu: %w", err)
	}
	return items, nil
}

// CountCatalog returns the number of restaurants and menu items.
func (s *Store) CountCatalog(ctx context.Context) (CatalogCounts, error) {
	var c CatalogCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM restaurants), (SELECT COUNT(*) FROM menu_items)
	`).Scan(&c.Restaurants, &c.MenuItems)
	if err != nil {
		return CatalogCounts{}, fmt.Errorf("count catalog: %w", err)
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
