package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/zwiggato/internal/failure"
)

// Store is the subset of the catalog store the reconciler writes through.
// *store.Store implements it.
type Store interface {
	// EnsureRestaurant inserts r unless a restaurant with the same name
	// exists. The check and the insert are a single statement.
	EnsureRestaurant(ctx context.Context, r Restaurant) (inserted bool, err error)

	// RestaurantIDs returns the current name→id index.
	RestaurantIDs(ctx context.Context) (map[string]int64, error)

	// EnsureMenuItem inserts item unless the (restaurant, name) pair exists.
	EnsureMenuItem(ctx context.Context, item MenuItem) (inserted bool, err error)
}

// Report summarises one reconciliation run.
type Report struct {
	RestaurantsInserted int `json:"restaurants_inserted"`
	RestaurantsExisting int `json:"restaurants_existing"`
	ItemsInserted       int `json:"items_inserted"`
	ItemsExisting       int `json:"items_existing"`

	// Skipped holds one PartialSeed failure per reference row that could
	// not be reconciled.
	Skipped []error `json:"-"`
}

// SkippedCount returns the number of skipped reference rows.
func (r Report) SkippedCount() int {
	return len(r.Skipped)
}

// Reconciler upserts a Reference into a Store.
type Reconciler struct {
	store  Store
	ref    *Reference
	logger *slog.Logger
}

// NewReconciler creates a reconciler. A nil logger uses slog.Default().
func NewReconciler(store Store, ref *Reference, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, ref: ref, logger: logger}
}

// Reconcile makes every reference restaurant and menu item exist exactly
// once in the store. Safe to call any number of times, including
// concurrently from separate processes sharing the database.
//
// Per-row failures never abort the run; they are logged and returned in
// Report.Skipped. The returned error is non-nil only when the run could not
// continue at all (cancelled context, or the name→id index could not be
// read).
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	var report Report

	for _, ref := range r.ref.Restaurants {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconcile restaurants: %w", err)
		}
		inserted, err := r.store.EnsureRestaurant(ctx, Restaurant{
			Name:    ref.Name,
			Cuisine: ref.Cuisine,
			Image:   ref.Image,
		})
		if err != nil {
			r.skip(&report, failure.PartialSeed(fmt.Sprintf("restaurant %q not reconciled", ref.Name), err))
			continue
		}
		if inserted {
			report.RestaurantsInserted++
		} else {
			report.RestaurantsExisting++
		}
	}

	ids, err := r.store.RestaurantIDs(ctx)
	if err != nil {
		return report, failure.Storage("unable to index restaurants for menu reconciliation", err)
	}
	index := make(map[string]int64, len(ids))
	for name, id := range ids {
		index[NormalizeName(name)] = id
	}

	for _, ref := range r.ref.MenuItems {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("reconcile menu items: %w", err)
		}
		restaurantID, ok := index[ref.Restaurant]
		if !ok {
			r.skip(&report, failure.PartialSeed(
				fmt.Sprintf("menu item %q: restaurant %q not found", ref.Name, ref.Restaurant), nil))
			continue
		}
		inserted, err := r.store.EnsureMenuItem(ctx, MenuItem{
			RestaurantID: restaurantID,
			Name:         ref.Name,
			Description:  ref.Description,
			Price:        ref.Price,
		})
		if err != nil {
			r.skip(&report, failure.PartialSeed(fmt.Sprintf("menu item %q not reconciled", ref.Name), err))
			continue
		}
		if inserted {
			report.ItemsInserted++
		} else {
			report.ItemsExisting++
		}
	}

	r.logger.Info("catalog reconciled",
		"restaurants_inserted", report.RestaurantsInserted,
		"restaurants_existing", report.RestaurantsExisting,
		"items_inserted", report.ItemsInserted,
		"items_existing", report.ItemsExisting,
		"skipped", report.SkippedCount(),
	)
	return report, nil
}

func (r *Reconciler) skip(report *Report, err error) {
	r.logger.Warn("reference row skipped", "error", err)
	report.Skipped = append(report.Skipped, err)
}
