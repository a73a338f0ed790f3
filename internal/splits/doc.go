// Package splits is the single source of truth for royalty split semantics.
//
// A split is one account's share of a song's royalties within a numbered
// revision. Splits for a (song, revision) group move through the lifecycle
// pending -> confirmed -> active -> archived as a unit; at most one revision
// per song is active at a time and a confirmed or active revision's rates
// sum to exactly 1. The Store exposes the set-based queries batch jobs use
// as primitives, the Tx type carries per-song transactional mutations, and
// the consolidation planner computes duplicate merges as a change-set so
// dry-run mode can report without writing.
//
// Rates are decimals with four fractional digits; never floats. Splits with
// is_locked set are encumbered by a royalty-advance agreement and are never
// touched by automated jobs.
package splits
