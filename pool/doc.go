// Package pool leases reusable GPU resources.
//
// A pool hands out resources wrapped in a Lease. A lease is reference
// counted: Retain adds a holder, Release drops one, and the last Release
// returns the resource to its pool instead of destroying it. Before a lease
// is released, whoever submitted GPU work using it records the submission
// index with SetFence, and the pool will not hand the resource out again
// until that submission has completed.
//
// Two strategies are provided:
//
//   - HashPool keeps idle resources in buckets keyed by their exact creation
//     info. Buckets are kept in an LRU and evicted bucket contents are
//     destroyed.
//   - LazyPool keeps a single idle list per resource kind and reuses any
//     resource whose info is compatible with the request: a buffer at least
//     as large, or an image of the same shape, in both cases with a superset
//     of the requested usages.
//
// Pools are explicit objects. Pass them to the code that leases from them;
// there is no process-wide default pool.
package pool
