// Package store provides SQLite-backed durable storage for the restaurant
// catalog and the order ledger.
//
// Tables:
//   - restaurants: reference restaurants, unique by name
//   - menu_items: reference menu items, unique by (restaurant_id, name)
//   - orders: append-only ledger of submitted orders
//
// # Idempotent catalog writes
//
// EnsureRestaurant and EnsureMenuItem are single INSERT ... ON CONFLICT DO
// NOTHING statements against the UNIQUE constraints. The existence check
// and the write are one atomic statement, so repeated or concurrent
// reconciliation never duplicates rows. No transaction spans more than one
// statement.
//
// # Ledger
//
// InsertOrder is the only writer of the orders table. Rows are never
// updated or deleted. The items snapshot is stored as JSON TEXT and is
// decoded by OrderRow.Decode; a row that fails to decode is reported to the
// caller rather than failing the whole read.
//
// Read methods return empty slices, not nil, when nothing matches.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
