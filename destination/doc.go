// Package destination specifies the external interface a warehouse driver
// must implement to be driven by the Executor.
//
// Destination is a behavior specification, not a class hierarchy: small,
// composable interfaces rather than one fat interface. A concrete
// reference implementation backed by SQLite lives in
// destination/sqlitedest.
package destination
