// Package catalog owns the restaurant and menu reference dataset and its
// reconciliation into the store.
//
// # Reference data
//
// reference.yaml is embedded into the binary. LoadReference decodes it with
// strict field checking, validates its shape against schema.cue and
// normalises every name to Unicode NFC so that visually identical names
// collide instead of producing near-duplicate rows.
//
// # Reconciliation
//
// Reconciler.Reconcile is run on every process start. It never deletes or
// updates rows; it only inserts reference rows that are missing:
//
//  1. each restaurant is inserted with a single conditional insert keyed on
//     name (the existence check and the write are one statement)
//  2. a name→id index is read back from the store
//  3. each menu item is inserted with a conditional insert keyed on
//     (restaurant id, item name)
//
// A single row that fails (store error, unresolved restaurant name) is
// logged, recorded in the Report and skipped. There is no transaction around
// the batch: every statement is idempotent on its own, so an interrupted run
// is completed by the next one.
package catalog
