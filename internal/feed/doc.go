// Package feed implements the trade reconciliation layer.
//
// The feed merges live-pushed events with on-demand historical fetches into
// one deduplicated, descending-time-ordered trade list, scoped to a single
// trading pair and bounded to a fixed size. Push-derived trades are applied
// incrementally; only a historical fetch triggers a full merge.
package feed
