// Package planner decides when a completed job unblocks a merge
// follow-up job for its table chain.
//
// ChainGate requires a table's entire descendant chain (the table itself
// plus every child and grandchild) to have every one of its jobs in a
// terminal state, and the chain must be non-empty, before a merge job is
// synthesized for it.
package planner
