package graph

import (
	"github.com/matzehuels/depscope/pkg/manifest"
	"github.com/matzehuels/depscope/pkg/scan"
	"github.com/matzehuels/depscope/pkg/stats"
)

// =============================================================================
// Limits
// =============================================================================

// Default expansion limits.
const (
	DefaultMaxDepth        = 3
	DefaultMaxNodes        = 2000
	DefaultMaxNodesPerRoot = 400
	DefaultMaxDirectDeps   = 500
)

// Limits bounds graph expansion.
type Limits struct {
	MaxDepth        int `json:"maxDepth"`        // deepest level expanded (default: 3)
	MaxNodes        int `json:"maxNodes"`        // global node ceiling (default: 2000)
	MaxNodesPerRoot int `json:"maxNodesPerRoot"` // nodes per declared root (default: 400)
	MaxDirectDeps   int `json:"maxDirectDeps"`   // dependencies considered per node (default: 500)
}

// DefaultLimits returns the default expansion limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        DefaultMaxDepth,
		MaxNodes:        DefaultMaxNodes,
		MaxNodesPerRoot: DefaultMaxNodesPerRoot,
		MaxDirectDeps:   DefaultMaxDirectDeps,
	}
}

// WithDefaults returns a copy of Limits with zero values replaced by defaults.
func (l Limits) WithDefaults() Limits {
	d := DefaultLimits()
	if l.MaxDepth <= 0 {
		l.MaxDepth = d.MaxDepth
	}
	if l.MaxNodes <= 0 {
		l.MaxNodes = d.MaxNodes
	}
	if l.MaxNodesPerRoot <= 0 {
		l.MaxNodesPerRoot = d.MaxNodesPerRoot
	}
	if l.MaxDirectDeps <= 0 {
		l.MaxDirectDeps = d.MaxDirectDeps
	}
	return l
}

// =============================================================================
// Nodes and Links
// =============================================================================

// Kind is the dependency kind carried by a link.
type Kind string

// Link kinds.
const (
	KindRuntime  Kind = Kind(manifest.KindRuntime)
	KindDev      Kind = Kind(manifest.KindDev)
	KindPeer     Kind = Kind(manifest.KindPeer)
	KindOptional Kind = Kind(manifest.KindOptional)
)

func kindOf(k manifest.Kind) Kind {
	if k == "" {
		return KindRuntime
	}
	return Kind(k)
}

// Node is one occurrence of a package in the expanded graph.
type Node struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	OriginalName    string   `json:"originalName"`
	Version         string   `json:"version,omitempty"`
	IsRoot          bool     `json:"isRoot"`
	IsInstalled     bool     `json:"isInstalled"`
	Size            int64    `json:"size"`
	DependencyLevel int      `json:"dependencyLevel"`
	ParentPath      []string `json:"parentPath"`
	WorkspaceID     string   `json:"workspaceId"`
	DepCount        int      `json:"depCount"`
	InDegree        int      `json:"inDegree"`
}

// Link is a dependency relation between two nodes.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   Kind   `json:"type"`
}

// =============================================================================
// Result
// =============================================================================

// Stats summarizes an assembled graph.
type Stats struct {
	TotalNodes         int            `json:"totalNodes"`
	TotalLinks         int            `json:"totalLinks"`
	MaxLevel           int            `json:"maxLevel"`
	LevelDistribution  map[int]int    `json:"levelDistribution"`
	DuplicatedPackages map[string]int `json:"duplicatedPackages"`
}

// Result is the assembled graph and the data it was built from.
type Result struct {
	Nodes      []Node                        `json:"nodes"`
	Links      []Link                        `json:"links"`
	Packages   map[string]stats.PackageStats `json:"packages"`
	Workspaces []scan.Workspace              `json:"workspaces"`
	Stats      Stats                         `json:"stats"`
}

// Node returns the node with the given id.
func (r *Result) Node(id string) (Node, bool) {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// NodesNamed returns every node for a package name, in creation order.
func (r *Result) NodesNamed(name string) []Node {
	var out []Node
	for _, n := range r.Nodes {
		if n.OriginalName == name {
			out = append(out, n)
		}
	}
	return out
}
