package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/zwiggato/internal/failure"
)

// memStore is an in-memory Store with optional injected failures.
type memStore struct {
	mu          sync.Mutex
	restaurants []Restaurant
	items       []MenuItem

	failRestaurant string // EnsureRestaurant fails for this name
	failItem       string // EnsureMenuItem fails for this name
	failIndex      bool
}

func (m *memStore) EnsureRestaurant(_ context.Context, r Restaurant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Name == m.failRestaurant {
		return false, errors.New("database is locked")
	}
	for _, existing := range m.restaurants {
		if existing.Name == r.Name {
			return false, nil
		}
	}
	r.ID = int64(len(m.restaurants) + 1)
	m.restaurants = append(m.restaurants, r)
	return true, nil
}

func (m *memStore) RestaurantIDs(_ context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIndex {
		return nil, errors.New("no such table: restaurants")
	}
	ids := make(map[string]int64, len(m.restaurants))
	for _, r := range m.restaurants {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

func (m *memStore) EnsureMenuItem(_ context.Context, item MenuItem) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item.Name == m.failItem {
		return false, errors.New("constraint failed")
	}
	for _, existing := range m.items {
		if existing.RestaurantID == item.RestaurantID && existing.Name == item.Name {
			return false, nil
		}
	}
	item.ID = int64(len(m.items) + 1)
	m.items = append(m.items, item)
	return true, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testReference(t *testing.T) *Reference {
	t.Helper()
	ref, err := LoadReference([]byte(`
restaurants:
  - name: Pasta Palace
    cuisine: Italian
    image: https://example.com/pasta.jpg
  - name: Sushi Central
    cuisine: Japanese
    image: https://example.com/sushi.jpg
menu_items:
  - restaurant: Pasta Palace
    name: Classic Spaghetti
    description: Rich tomato sauce with fresh basil and parmesan.
    price: 12.5
  - restaurant: Pasta Palace
    name: Pesto Penne
    description: ""
    price: 13.25
  - restaurant: Sushi Central
    name: Salmon Nigiri
    description: Fresh salmon over seasoned rice.
    price: 10
`))
	require.NoError(t, err)
	return ref
}

func TestReconcile_FirstRunInsertsEverything(t *testing.T) {
	st := &memStore{}
	rec := NewReconciler(st, testReference(t), quietLogger())

	report, err := rec.Reconcile(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.RestaurantsInserted)
	assert.Equal(t, 0, report.RestaurantsExisting)
	assert.Equal(t, 3, report.ItemsInserted)
	assert.Equal(t, 0, report.SkippedCount())
	assert.Len(t, st.restaurants, 2)
	assert.Len(t, st.items, 3)
}

func TestReconcile_Idempotent(t *testing.T) {
	st := &memStore{}
	rec := NewReconciler(st, testReference(t), quietLogger())

	for n := 1; n <= 5; n++ {
		report, err := rec.Reconcile(context.Background())
		require.NoError(t, err)
		assert.Len(t, st.restaurants, 2, "run %d", n)
		assert.Len(t, st.items, 3, "run %d", n)
		if n > 1 {
			assert.Equal(t, 0, report.RestaurantsInserted)
			assert.Equal(t, 2, report.RestaurantsExisting)
			assert.Equal(t, 0, report.ItemsInserted)
			assert.Equal(t, 3, report.ItemsExisting)
		}
	}
}

func TestReconcile_ResumesAfterPartialRun(t *testing.T) {
	st := &memStore{failRestaurant: "Sushi Central"}
	rec := NewReconciler(st, testReference(t), quietLogger())

	report, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.restaurants, 1)
	assert.Len(t, st.items, 2)
	// the restaurant itself and its one menu item
	require.Equal(t, 2, report.SkippedCount())
	for _, skipped := range report.Skipped {
		assert.True(t, failure.IsPartialSeed(skipped))
	}

	// Failure cleared: the next run fills the gap without duplicating.
	st.failRestaurant = ""
	report, err = rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.RestaurantsInserted)
	assert.Equal(t, 1, report.ItemsInserted)
	assert.Equal(t, 2, report.ItemsExisting)
	assert.Len(t, st.restaurants, 2)
	assert.Len(t, st.items, 3)
}

func TestReconcile_UnresolvedRestaurantSkipsOnlyThatItem(t *testing.T) {
	ref := testReference(t)
	ref.MenuItems = append(ref.MenuItems, ReferenceMenuItem{
		Restaurant: "Nowhere Diner",
		Name:       "Mystery Meat",
		Price:      1,
	})
	st := &memStore{}
	rec := NewReconciler(st, ref, quietLogger())

	report, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.ItemsInserted)
	require.Equal(t, 1, report.SkippedCount())
	assert.Contains(t, report.Skipped[0].Error(), "Nowhere Diner")
}

func TestReconcile_ItemFailureDoesNotAbortBatch(t *testing.T) {
	st := &memStore{failItem: "Pesto Penne"}
	rec := NewReconciler(st, testReference(t), quietLogger())

	report, err := rec.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.ItemsInserted)
	assert.Equal(t, 1, report.SkippedCount())
}

func TestReconcile_IndexFailureIsStorageError(t *testing.T) {
	st := &memStore{failIndex: true}
	rec := NewReconciler(st, testReference(t), quietLogger())

	report, err := rec.Reconcile(context.Background())
	require.Error(t, err)
	assert.True(t, failure.IsStorage(err))
	// restaurants written before the failure stay written
	assert.Equal(t, 2, report.RestaurantsInserted)
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := NewReconciler(&memStore{}, testReference(t), quietLogger())
	_, err := rec.Reconcile(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReconcile_ConcurrentRunsDoNotDuplicate(t *testing.T) {
	st := &memStore{}
	ref := testReference(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := NewReconciler(st, ref, quietLogger()).Reconcile(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, st.restaurants, 2)
	assert.Len(t, st.items, 3)
}
