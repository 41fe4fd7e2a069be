// Package dag holds the pass dependency graph used by the resolver.
//
// Vertices are dense integer indices (the program order of passes), which lets
// the graph double as its own tie-break: among vertices that are ready at the
// same time, the lowest index is always emitted first.
package dag
