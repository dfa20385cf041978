// Package engine executes query models against a store.
//
// Execution Flow:
// 1. The model is compiled to one SQL statement (querysql.Compile)
// 2. The statement runs against the store
// 3. Rows are projected to items
// 4. A terminal folded into SQL (count, any, all, first) yields the value
// 5. Residual result operators run in memory, in order, over the items
//
// Residual operators that carry expressions are first localized against
// the model's selector so they can be evaluated per item. An operator whose
// expression cannot be localized fails with an error wrapping
// resultop.ErrNotLocallyEvaluable.
//
// Every execution is appended to the store's query log under the pass
// token of the generated model.
package engine
