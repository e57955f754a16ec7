package scan

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/depscope/pkg/manifest"
)

// RootWorkspace names the workspace of a manifest found at the scan root.
const RootWorkspace = "Root"

// Source identifies where an installed record was first observed.
type Source string

const (
	SourceManifest  Source = "manifest"
	SourceLockfile  Source = "lockfile"
	SourceInstalled Source = "installed"
)

// InstalledRecord is what is known about one package name on disk.
type InstalledRecord struct {
	Version string `json:"version"`
	Path    string `json:"path,omitempty"`
	Source  Source `json:"source"`
	Size    *int64 `json:"size,omitempty"` // nil until the stats phase
}

// Workspace groups the manifests that share a first path segment.
type Workspace struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Packages []string `json:"packages"`
}

// Dataset is the reconciled output of a scan. It is not modified after
// [Scanner.Scan] returns.
type Dataset struct {
	Root       string                     `json:"root"`
	Packages   []*manifest.Manifest       `json:"packages"`
	Workspaces []Workspace                `json:"workspaces"`
	Installed  map[string]InstalledRecord `json:"installed"`
	Adjacency  map[string][]string        `json:"adjacency"`
}

func newDataset(root string) *Dataset {
	return &Dataset{
		Root:      root,
		Installed: make(map[string]InstalledRecord),
		Adjacency: make(map[string][]string),
	}
}

// Manifest returns the first declared manifest named name, or nil.
func (d *Dataset) Manifest(name string) *manifest.Manifest {
	for _, m := range d.Packages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

// IsDeclared reports whether name is one of the scanned manifests.
func (d *Dataset) IsDeclared(name string) bool {
	return d.Manifest(name) != nil
}

// DependenciesOf returns the direct dependencies of name. A declared
// manifest wins and carries true edge kinds; otherwise the adjacency map is
// used and every edge is reported as a runtime dependency.
func (d *Dataset) DependenciesOf(name string) []manifest.Dep {
	if m := d.Manifest(name); m != nil {
		return m.All()
	}
	names := d.Adjacency[name]
	if len(names) == 0 {
		return nil
	}
	deps := make([]manifest.Dep, len(names))
	for i, n := range names {
		deps[i] = manifest.Dep{Name: n, Kind: manifest.KindRuntime}
	}
	return deps
}

// Names returns every package name the dataset knows about, declared
// packages first in discovery order, then the remaining installed and
// referenced names sorted.
func (d *Dataset) Names() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range d.Packages {
		if !seen[m.Name] {
			seen[m.Name] = true
			out = append(out, m.Name)
		}
	}

	var rest []string
	add := func(n string) {
		if n != "" && !seen[n] {
			seen[n] = true
			rest = append(rest, n)
		}
	}
	for n := range d.Installed {
		add(n)
	}
	for n, deps := range d.Adjacency {
		add(n)
		for _, dep := range deps {
			add(dep)
		}
	}
	for _, m := range d.Packages {
		for _, dep := range m.All() {
			add(dep.Name)
		}
	}
	slices.Sort(rest)
	return append(out, rest...)
}

// observe records one sighting of a package. The first non-empty version
// wins; an empty path is filled by later sightings.
func (d *Dataset) observe(name, version, path string, src Source) {
	rec, ok := d.Installed[name]
	if !ok {
		d.Installed[name] = InstalledRecord{Version: version, Path: path, Source: src}
		return
	}
	if rec.Version == "" && version != "" {
		rec.Version = version
		rec.Source = src
	}
	if rec.Path == "" {
		rec.Path = path
	}
	d.Installed[name] = rec
}

// link sets the adjacency entry for name unless one exists.
func (d *Dataset) link(name string, deps []string) {
	if _, ok := d.Adjacency[name]; ok {
		return
	}
	var out []string
	for _, dep := range deps {
		if dep != "" && dep != name && !slices.Contains(out, dep) {
			out = append(out, dep)
		}
	}
	d.Adjacency[name] = out
}

// WorkspaceOf returns the name of the workspace m belongs to.
func (d *Dataset) WorkspaceOf(m *manifest.Manifest) string {
	name, _ := workspaceOf(d.Root, m)
	return name
}

func workspaceOf(root string, m *manifest.Manifest) (name, path string) {
	rel, err := filepath.Rel(root, m.Dir)
	if err != nil || rel == "." {
		return RootWorkspace, root
	}
	seg, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return seg, filepath.Join(root, seg)
}

// groupWorkspaces derives workspaces from manifest locations.
func groupWorkspaces(root string, pkgs []*manifest.Manifest) []Workspace {
	var out []Workspace
	index := make(map[string]int)
	for _, m := range pkgs {
		name, path := workspaceOf(root, m)
		i, ok := index[name]
		if !ok {
			i = len(out)
			index[name] = i
			out = append(out, Workspace{Name: name, Path: path})
		}
		out[i].Packages = append(out[i].Packages, m.Name)
	}
	return out
}
