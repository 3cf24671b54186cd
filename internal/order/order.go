// Package order defines the line-item and order records exchanged between the
// cart, the HTTP surface and the ledger, together with the pricing rules both
// sides apply to them.
package order

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/zwiggato/internal/failure"
)

// Line is one selected menu item with its unit price and quantity, captured
// at the time it was added to a cart or submitted in an order.
type Line struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Submission is the body of POST /orders.
type Submission struct {
	Items []Line  `json:"items"`
	Total float64 `json:"total"`
}

// Order is an immutable ledger record.
type Order struct {
	ID        int64     `json:"id"`
	Items     []Line    `json:"items"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// DecodeSubmission parses a POST /orders body.
//
// Type errors are reported per field so the caller learns which input was
// wrong: a non-array items value fails on "items", a non-numeric or missing
// total fails on "total". Semantic checks (empty items, non-positive total)
// are left to Validate.
func DecodeSubmission(data []byte) (Submission, error) {
	var raw struct {
		Items json.RawMessage `json:"items"`
		Total json.RawMessage `json:"total"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Submission{}, failure.Validation("body", "request body must be a JSON object")
	}

	var sub Submission
	if isNull(raw.Items) {
		return Submission{}, failure.Validation("items", "order items are required")
	}
	if err := json.Unmarshal(raw.Items, &sub.Items); err != nil {
		return Submission{}, failure.Validation("items", "order items must be an array of {id, name, price, quantity}")
	}

	if isNull(raw.Total) {
		return Submission{}, failure.Validation("total", "total must be a positive number")
	}
	dec := json.NewDecoder(bytes.NewReader(raw.Total))
	if err := dec.Decode(&sub.Total); err != nil {
		return Submission{}, failure.Validation("total", "total must be a positive number")
	}

	return sub, nil
}

// Validate checks the structural contract of a submission: at least one
// line, every line well formed, and a positive total.
func (s Submission) Validate() error {
	if len(s.Items) == 0 {
		return failure.Validation("items", "order items are required")
	}
	for i, l := range s.Items {
		if strings.TrimSpace(l.Name) == "" {
			return failure.Validation(fmt.Sprintf("items[%d].name", i), "item name is required")
		}
		if !(l.Price > 0) {
			return failure.Validation(fmt.Sprintf("items[%d].price", i), "item price must be a positive number")
		}
		if l.Quantity <= 0 {
			return failure.Validation(fmt.Sprintf("items[%d].quantity", i), "item quantity must be a positive integer")
		}
	}
	if !(s.Total > 0) {
		return failure.Validation("total", "total must be a positive number")
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
