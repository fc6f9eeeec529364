// Package jobpool implements the bounded-parallelism executor that spools
// job files onto a destination.
//
// Pool parallelizes independent file spools without changing
// package-level semantics: it never reorders or batches across calls,
// never lets one file's panic take down the others, and bounds in-flight
// spools to a configured worker count.
package jobpool
