// Package harness runs pipeline scenarios as executable contract tests.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: big_orders
//	description: "Orders over 100, largest first"
//	pipelines: ../pipelines/orders.cue
//	query: topBig
//	tables:
//	  orders:
//	    - { id: 1, total: 250 }
//	    - { id: 2, total: 40 }
//	expect:
//	  value: [{ id: 1, total: 250 }]
//	  sql: SELECT ...
//
// pipelines is resolved relative to the scenario file; source may hold
// the CUE inline instead. An expectation either names a value or an
// error (a runtime error code and/or a message fragment).
//
// # Deterministic Testing
//
// Every scenario runs against its own in-memory store with a fixed pass
// token, so the rendered model, the statement and the result are stable
// across runs and can be compared against golden snapshots.
//
// # Usage
//
//	scenarios, err := harness.LoadDir("testdata/scenarios")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	results, err := harness.RunAll(ctx, scenarios, 4)
package harness
