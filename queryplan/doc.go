// Package queryplan splits namespace-qualified queries into per-store
// execution plans.
//
// A plan carries store-local identifiers only. Queries without a store
// constraint fan out to every registered store; stream expressions mixing
// stores inside one node are rejected before any store is touched. Paging
// is widened on fan-out so the aggregation layer can apply the final skip
// and limit after merging.
package queryplan
