// Package pkg provides the core libraries for Lattice, a live
// hierarchical layout orchestrator for infrastructure resource graphs.
//
// # Overview
//
// Lattice consumes snapshots of a resource dependency graph, assigns
// nodes to groups, and keeps a readable two-level layout up to date as
// the graph mutates and as the user collapses, expands, and regroups.
//
// The typical data flow:
//
//	Snapshot source (push/subscribe)
//	         ↓
//	    [graph/transform] (aggregate expansion → working graph)
//	         ↓
//	    [grouping] (group key resolution)
//	         ↓
//	    [hierarchy] (two-level box structure, edge redirection)
//	         ↓
//	    [layout] (per-group sub-layouts + meta-graph, via [solver])
//	         ↓
//	    [view] (fingerprinting, version tickets, committed positions)
//
// # Main Packages
//
// [graph] - Resource graph model: typed nodes with a closed attribute
// union, relation edges, snapshots, and JSON serialization.
//
// [graph/transform] - Pure working-graph derivation: aggregate expansion
// and view-mode filtering.
//
// [grouping] - Group key resolution by namespace attribute or propagated
// application label, with connected-component fallback.
//
// [hierarchy] - Hierarchical graph building: group and node boxes,
// per-kind sizing, collapsed-group edge redirection.
//
// [layout] - Two-phase layout engine around the external solver, with
// memoized solver calls and a column-packing fallback for edge-free
// sub-graphs.
//
// [solver] - The contract with the external constraint-based layout
// engine; [solver/graphviz] implements it with the Graphviz dot engine.
//
// [view] - The per-view orchestrator: collapse/expansion state machine,
// structure fingerprinting, and the version-ticketed layout scheduler.
//
// [source] - Snapshot sources: in-memory for tests and wiring, HTTP
// polling for upstream endpoints.
//
// [archive] - Optional snapshot archival (memory, MongoDB) for replay
// and debugging.
//
// [cache] - Solver-result memoization (memory, Redis, null).
//
// [errors], [observability], [buildinfo] - Ambient concerns shared by
// the CLI and server.
//
// [graph]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/graph
// [graph/transform]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/graph/transform
// [grouping]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/grouping
// [hierarchy]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/hierarchy
// [layout]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/layout
// [solver]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/solver
// [solver/graphviz]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/solver/graphviz
// [view]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/view
// [source]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/source
// [archive]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/archive
// [cache]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/cache
// [errors]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/errors
// [observability]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/mfeltner/lattice/pkg/buildinfo
package pkg
