// Package node builds query models from chains of pipeline call nodes.
//
// A front-end appends one node per pipeline call to a Chain, source first.
// Generate then walks the chain in call order and lets each node contribute
// its clauses to a growing model.QueryModel, threading a single Context
// through the pass so that later nodes can resolve references to the query
// sources earlier nodes produced.
//
// Resolution substitutes the formal parameter of a lambda ("the current
// item of my input") with an expression over query sources. It flattens
// through projections, joins and group joins, so a fully resolved
// expression never contains a formal parameter.
//
// Chains are single use: node caches are filled lazily during generation
// and a chain must not be shared across concurrent generations.
package node
