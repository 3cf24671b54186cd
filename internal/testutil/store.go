package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/zwiggato/internal/catalog"
	"github.com/roach88/zwiggato/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OpenStore opens an empty store in a temp directory. It is closed when the
// test ends.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "zwiggato.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// SeededStore opens a store and reconciles the embedded reference catalog
// into it.
func SeededStore(t testing.TB) *store.Store {
	t.Helper()
	st := OpenStore(t)
	ref, err := catalog.DefaultReference()
	if err != nil {
		t.Fatalf("load reference catalog: %v", err)
	}
	if _, err := catalog.NewReconciler(st, ref, DiscardLogger()).Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile reference catalog: %v", err)
	}
	return st
}
