// Package model defines the query model: the intermediate representation
// produced from a chain of query-operator calls.
//
// A QueryModel is an ordered list of body clauses between exactly one main
// from clause and exactly one select clause, followed by zero or more result
// operators:
//
//	from o in orders
//	where ([o].total > 100)
//	join c in customers on [o].customer_id equals [c].id
//	select new {total = [o].total, name = [c].name}
//	=> Count()
//
// Body clause order mirrors operator application order and is never
// changed. Clauses that introduce items (from, join, group join) are query
// sources; expressions refer to them through expr.QuerySourceRef.
//
// Backends walk a model with Accept and a Visitor, or switch over the
// sealed Clause types directly.
package model
