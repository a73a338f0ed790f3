// Package repair implements the batch jobs that reconcile split data:
// owner-flag correction, duplicate consolidation, pending-split
// cancellation, artist owner-change repair, invitation expiry, and a
// read-only integrity verification pass.
//
// Jobs are built to be re-run: each computes a change-set first, applies it
// one song-transaction at a time, and skips songs carrying locked splits. A
// failure on one song is logged and does not stop the rest of the batch.
// Mutating jobs hold a file lock so overlapping invocations cannot
// interleave writes.
package repair
