// Package harness runs YAML scenarios against the ordering API.
//
// Each scenario gets a fresh in-memory database seeded with the reference
// catalog, a deterministic clock and the real router. Steps are sent in
// process through httptest, so a scenario exercises exactly the code that
// serves production traffic, from session check to ledger write.
//
// # Scenario Format
//
//	name: checkout_verified
//	description: "An order whose total matches is accepted"
//	policy: verify            # or trust; default verify
//	empty_catalog: false      # skip seeding
//	steps:
//	  - name: place order
//	    method: POST
//	    path: /orders
//	    body:
//	      items: [{id: 1, name: Classic Spaghetti, price: 12.5, quantity: 2}]
//	      total: 28.5
//	    expect:
//	      status: 201
//	      body: {id: 1, total: 28.5}
//	  - name: anonymous
//	    method: GET
//	    path: /orders
//	    no_session: true
//	    expect: {status: 401, error: session required}
//	assertions:
//	  - type: row_count
//	    table: orders
//	    count: 1
//	  - type: final_state
//	    table: orders
//	    where: {id: 1}
//	    expect: {total: 28.5}
//	  - type: latest_order
//	    expect: {id: 1}
//
// Expected bodies are subset matches for objects and element-wise matches
// for arrays. Numbers compare by value.
//
// # Assertion Types
//
//   - row_count: number of rows in a table matching where
//   - final_state: the single row matching where has the expected columns
//   - latest_order: the first order GET /orders would return
//
// # Golden Transcripts
//
// The full request/response transcript of a run is deterministic and can be
// compared against testdata/scenarios/golden/<name>.golden (see
// RunWithGolden and MarshalSnapshot).
package harness
