package lockfile

import (
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/matzehuels/depscope/pkg/manifest"
)

// TreeNode is one installed node of a resolved install tree.
type TreeNode struct {
	Location string   // path relative to the project root ("" for the root)
	Name     string   // package name
	Version  string   // installed version
	Link     bool     // symlink to a workspace folder
	Edges    []string // names of installed nodes this node depends on directly
}

// Tree is a resolved install tree loaded from package-lock.json or
// npm-shrinkwrap.json.
type Tree struct {
	Nodes []TreeNode // ordered by nesting depth, then location
}

// npmLock covers lockfileVersion 1 (nested "dependencies") and 2/3
// (flat "packages" keyed by install location).
type npmLock struct {
	Name         string                `json:"name"`
	Version      string                `json:"version"`
	Packages     map[string]npmPackage `json:"packages"`
	Dependencies map[string]npmV1Dep   `json:"dependencies"`
}

type npmPackage struct {
	Name                 string        `json:"name"`
	Version              string        `json:"version"`
	Link                 bool          `json:"link"`
	Dependencies         manifest.Deps `json:"dependencies"`
	OptionalDependencies manifest.Deps `json:"optionalDependencies"`
	PeerDependencies     manifest.Deps `json:"peerDependencies"`
}

type npmV1Dep struct {
	Version      string              `json:"version"`
	Requires     manifest.Deps       `json:"requires"`
	Dependencies map[string]npmV1Dep `json:"dependencies"`
}

// LoadTree decodes an npm lock file and resolves every node's declared
// dependencies to installed nodes. A dependency that resolves to nothing is
// dropped rather than reported.
func LoadTree(data []byte) (*Tree, error) {
	var lock npmLock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, err
	}

	packages := lock.Packages
	if len(packages) == 0 && len(lock.Dependencies) > 0 {
		packages = flattenV1(lock)
	}
	if len(packages) == 0 {
		return &Tree{}, nil
	}

	locations := make([]string, 0, len(packages))
	for loc := range packages {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool {
		di, dj := nestingDepth(locations[i]), nestingDepth(locations[j])
		if di != dj {
			return di < dj
		}
		return locations[i] < locations[j]
	})

	nameAt := func(loc string) string {
		p := packages[loc]
		if loc == "" {
			if p.Name != "" {
				return p.Name
			}
			return lock.Name
		}
		// Installed locations are named by directory so aliases resolve the
		// way dependents refer to them.
		if strings.Contains(loc, "node_modules/") || p.Name == "" {
			return nameFromLocation(loc)
		}
		return p.Name
	}

	tree := &Tree{Nodes: make([]TreeNode, 0, len(locations))}
	for _, loc := range locations {
		p := packages[loc]
		node := TreeNode{
			Location: loc,
			Name:     nameAt(loc),
			Version:  p.Version,
			Link:     p.Link,
		}
		if loc == "" && node.Version == "" {
			node.Version = lock.Version
		}
		if !p.Link {
			for _, deps := range []manifest.Deps{p.Dependencies, p.OptionalDependencies, p.PeerDependencies} {
				for _, d := range deps {
					if target, ok := resolve(packages, loc, d.Name); ok {
						node.Edges = appendUnique(node.Edges, nameAt(target))
					}
				}
			}
		}
		tree.Nodes = append(tree.Nodes, node)
	}
	return tree, nil
}

// Entries converts the tree into lock entries, skipping workspace links and
// nameless nodes. Link targets carry the real package data.
func (t *Tree) Entries() []Entry {
	entries := make([]Entry, 0, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.Link || n.Name == "" {
			continue
		}
		entries = append(entries, Entry{Name: n.Name, Version: n.Version, Dependencies: n.Edges})
	}
	return entries
}

// resolve finds the install location a dependency named dep resolves to
// when required from loc, walking up the directory tree the way Node's
// module resolution does.
func resolve(packages map[string]npmPackage, loc, dep string) (string, bool) {
	dir := loc
	for {
		candidate := path.Join(dir, "node_modules", dep)
		if _, ok := packages[candidate]; ok {
			return candidate, true
		}
		if dir == "" {
			return "", false
		}
		dir = path.Dir(dir)
		if dir == "." || dir == "/" {
			dir = ""
		}
	}
}

// nameFromLocation returns the package name installed at loc, e.g.
// "node_modules/a/node_modules/@s/b" → "@s/b".
func nameFromLocation(loc string) string {
	if i := strings.LastIndex(loc, "node_modules/"); i >= 0 {
		return loc[i+len("node_modules/"):]
	}
	return path.Base(loc)
}

func nestingDepth(loc string) int {
	if loc == "" {
		return 0
	}
	return strings.Count(loc, "node_modules/") + 1
}

// flattenV1 converts a lockfileVersion 1 dependency tree to location keys.
// v1 "requires" maps list both runtime and optional edges.
func flattenV1(lock npmLock) map[string]npmPackage {
	out := map[string]npmPackage{"": {Name: lock.Name, Version: lock.Version}}
	type frame struct {
		prefix string
		deps   map[string]npmV1Dep
	}
	stack := []frame{{prefix: "", deps: lock.Dependencies}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for name, d := range f.deps {
			loc := path.Join(f.prefix, "node_modules", name)
			out[loc] = npmPackage{Name: name, Version: d.Version, Dependencies: d.Requires}
			if len(d.Dependencies) > 0 {
				stack = append(stack, frame{prefix: loc, deps: d.Dependencies})
			}
		}
	}
	return out
}
