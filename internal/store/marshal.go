package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/zwiggato/internal/order"
)

// timeLayout is fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// legacyTimeLayout is SQLite's CURRENT_TIMESTAMP format.
const legacyTimeLayout = "2006-01-02 15:04:05"

// marshalItems converts the items snapshot to JSON TEXT for storage.
// HTML escaping is disabled so names like "Smoked Mac & Cheese" are stored
// verbatim.
func marshalItems(items []order.Line) (string, error) {
	if items == nil {
		items = []order.Line{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(items); err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalItems parses JSON TEXT back into the items snapshot.
func unmarshalItems(data string) ([]order.Line, error) {
	var items []order.Line
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("unmarshal items: not an array")
	}
	return items, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(legacyTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
