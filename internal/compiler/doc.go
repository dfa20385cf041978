// Package compiler turns CUE pipeline definitions into node chains.
//
// A pipeline file declares named pipelines under the top-level "pipeline"
// field:
//
//	pipeline: bigOrders: {
//		from: {table: "orders", as: "o"}
//		calls: [
//			{op: "where", fn: "o => o.total > 100"},
//			{op: "orderByDescending", fn: "o => o.total"},
//			{op: "take", count: 3},
//		]
//	}
//
// Files are checked against an embedded CUE schema (schema.cue), then
// validated semantically (Validate): lambdas must parse, thenBy must
// follow an ordering, and pipeline references must resolve and must not
// form cycles. A source or join inner of the form {pipeline: "name"} is
// generated eagerly into a subquery.
//
// Identifiers and lambda text are normalized to Unicode NFC so that
// visually identical names compare equal.
package compiler
