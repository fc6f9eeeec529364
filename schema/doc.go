// Package schema models the read-only per-package schema value object and
// its staged/applied update artifacts.
//
// Schema itself is treated as a data model owned by an external producer
// (schema inference and evolution happen upstream of this module); this
// package only implements the typed lookups the planner and executor
// need: resolving a table's write disposition with parent inheritance,
// climbing to a table's top-level ancestor, and enumerating a table's
// descendants (the "table chain").
package schema
