// Package graph assembles the bounded dependency graph of a scanned project.
//
// # Expansion
//
// [Assemble] expands every declared package, in discovery order, into a
// tree of [Node] values joined by [Link] values. Expansion is depth first
// and iterative: nodes live in an arena and refer to their parent by index,
// so the ancestor chain of any node is a short walk up the arena.
//
// A dependency whose name is already on the current branch's ancestor chain
// is skipped, which makes cyclic input terminate. The same name on a
// different branch is expanded again as a separate node: diamonds are never
// merged, and [Stats.DuplicatedPackages] reports how often each name
// occurs.
//
// # Limits
//
// [Limits] bounds the result. Depth, the global node count, the per-root
// node count and the number of direct dependencies considered per node are
// all hard caps; reaching one stops expansion for its scope silently.
//
// # Identity
//
// The first node for a package name takes the name as its id. Later nodes
// are suffixed with their occurrence count ("react#2", "react#3"), bumped
// further if that id is taken. OriginalName always holds the bare name.
//
// # Serialization
//
// [Result] is the JSON contract consumed by renderers:
//
//	{
//	  "nodes": [{"id": "web", "name": "web", "dependencyLevel": 0, ...}],
//	  "links": [{"source": "web", "target": "react", "type": "runtime"}],
//	  "packages": {...},
//	  "workspaces": [...],
//	  "stats": {"totalNodes": 2, "totalLinks": 1, "maxLevel": 1, ...}
//	}
package graph
