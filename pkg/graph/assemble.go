package graph

import (
	"context"
	"fmt"
	"slices"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/manifest"
	"github.com/matzehuels/depscope/pkg/scan"
	"github.com/matzehuels/depscope/pkg/stats"
)

// Assemble expands every declared package of ds into a bounded graph
// annotated with st. Both inputs must come from completed scan and stats
// phases; a nil input fails with [errors.ErrCodePrecondition]. Neither is
// modified.
func Assemble(ctx context.Context, ds *scan.Dataset, st *stats.Result, limits Limits) (*Result, error) {
	if ds == nil {
		return nil, errors.Precondition("graph assembled before scan")
	}
	if st == nil {
		return nil, errors.Precondition("graph assembled before stats")
	}

	a := &assembler{
		ds:          ds,
		st:          st,
		limits:      limits.WithDefaults(),
		occurrences: make(map[string]int),
		taken:       make(map[string]bool),
	}
	for _, root := range ds.Packages {
		if len(a.nodes) >= a.limits.MaxNodes {
			break
		}
		if err := a.expand(ctx, root); err != nil {
			return nil, err
		}
	}
	return a.result(), nil
}

// pending is a node waiting on the expansion stack.
type pending struct {
	name   string
	kind   Kind
	parent int // arena index, -1 for a root
}

type assembler struct {
	ds     *scan.Dataset
	st     *stats.Result
	limits Limits

	nodes   []Node
	parents []int // arena parent index per node
	links   []Link

	occurrences map[string]int
	taken       map[string]bool
}

// expand adds root and its dependency tree in depth-first pre-order.
func (a *assembler) expand(ctx context.Context, root *manifest.Manifest) error {
	workspace := a.ds.WorkspaceOf(root)
	added := 0

	stack := []pending{{name: root.Name, parent: -1}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(a.nodes) >= a.limits.MaxNodes || added >= a.limits.MaxNodesPerRoot {
			return nil
		}

		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		idx := a.add(p, root, workspace)
		added++

		if a.nodes[idx].DependencyLevel >= a.limits.MaxDepth {
			continue
		}
		var deps []manifest.Dep
		if p.parent < 0 {
			deps = root.All()
		} else {
			deps = a.ds.DependenciesOf(p.name)
		}
		if len(deps) > a.limits.MaxDirectDeps {
			deps = deps[:a.limits.MaxDirectDeps]
		}
		for i := len(deps) - 1; i >= 0; i-- {
			if a.onBranch(idx, deps[i].Name) {
				continue
			}
			stack = append(stack, pending{name: deps[i].Name, kind: kindOf(deps[i].Kind), parent: idx})
		}
	}
	return nil
}

// add appends the node for p to the arena and links it to its parent.
func (a *assembler) add(p pending, root *manifest.Manifest, workspace string) int {
	ps, _ := a.st.Package(p.name)
	n := Node{
		ID:           a.nextID(p.name),
		Name:         p.name,
		OriginalName: p.name,
		Version:      ps.Version,
		IsInstalled:  ps.Installed,
		Size:         ps.Size,
		ParentPath:   []string{},
		WorkspaceID:  workspace,
	}
	if p.parent < 0 {
		n.IsRoot = true
		n.IsInstalled = true
		n.Version = root.Version
	} else {
		parent := a.nodes[p.parent]
		n.DependencyLevel = parent.DependencyLevel + 1
		n.ParentPath = append(slices.Clone(parent.ParentPath), parent.OriginalName)
		a.links = append(a.links, Link{Source: parent.ID, Target: n.ID, Type: p.kind})
	}

	a.nodes = append(a.nodes, n)
	a.parents = append(a.parents, p.parent)
	return len(a.nodes) - 1
}

// onBranch reports whether name is idx or one of its ancestors.
func (a *assembler) onBranch(idx int, name string) bool {
	for i := idx; i >= 0; i = a.parents[i] {
		if a.nodes[i].OriginalName == name {
			return true
		}
	}
	return false
}

// nextID returns the id for the next occurrence of name.
func (a *assembler) nextID(name string) string {
	occ := a.occurrences[name] + 1
	id := name
	if occ > 1 {
		id = fmt.Sprintf("%s#%d", name, occ)
	}
	for a.taken[id] {
		occ++
		id = fmt.Sprintf("%s#%d", name, occ)
	}
	a.occurrences[name] = occ
	a.taken[id] = true
	return id
}

// result computes degrees and graph statistics over the arena.
func (a *assembler) result() *Result {
	index := make(map[string]int, len(a.nodes))
	for i, n := range a.nodes {
		index[n.ID] = i
	}
	for _, l := range a.links {
		a.nodes[index[l.Source]].DepCount++
		a.nodes[index[l.Target]].InDegree++
	}

	s := Stats{
		TotalNodes:         len(a.nodes),
		TotalLinks:         len(a.links),
		LevelDistribution:  make(map[int]int),
		DuplicatedPackages: make(map[string]int),
	}
	counts := make(map[string]int)
	for _, n := range a.nodes {
		s.LevelDistribution[n.DependencyLevel]++
		s.MaxLevel = max(s.MaxLevel, n.DependencyLevel)
		counts[n.OriginalName]++
	}
	for name, c := range counts {
		if c > 1 {
			s.DuplicatedPackages[name] = c
		}
	}

	nodes, links := a.nodes, a.links
	if nodes == nil {
		nodes = []Node{}
	}
	if links == nil {
		links = []Link{}
	}
	workspaces := a.ds.Workspaces
	if workspaces == nil {
		workspaces = []scan.Workspace{}
	}
	return &Result{
		Nodes:      nodes,
		Links:      links,
		Packages:   a.st.Packages,
		Workspaces: workspaces,
		Stats:      s,
	}
}
