// Package value normalizes query result values and serializes them as
// canonical JSON.
//
// Values arrive from several places: SQLite rows, CEL evaluation, YAML
// seed data. Normalize maps them onto one small set of Go types so that
// results compare and hash the same regardless of origin:
//
//   - nil
//   - bool
//   - int64 (all integer kinds, and floats with an integral value)
//   - float64 (non-integral, finite)
//   - string ([]byte is decoded as UTF-8)
//   - []any
//   - map[string]any
package value
