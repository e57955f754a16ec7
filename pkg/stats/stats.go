// Package stats derives per-package and project-wide metrics from a scanned
// [scan.Dataset].
//
// [Compute] sizes every known package with the footprint heuristics, walks
// the dependency relation for direct and transitive dependencies, counts
// dependents over the coarse adjacency map, and aggregates project totals.
// The dataset is never modified: sizes are back-filled into a copy of the
// installed records carried on the [Result].
package stats

import (
	"cmp"
	"context"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/footprint"
	"github.com/matzehuels/depscope/pkg/scan"
)

// DefaultTopN is the length of the ranked lists in [ProjectStats].
const DefaultTopN = 10

// Options configures [Compute].
type Options struct {
	TopN   int         // ranked list length (default: DefaultTopN)
	Logger *log.Logger // size estimation warnings (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// PackageStats holds the derived metrics of one package name.
type PackageStats struct {
	Name            string   `json:"name"`
	Version         string   `json:"version,omitempty"`
	Size            int64    `json:"size"`
	Installed       bool     `json:"installed"`
	Declared        bool     `json:"declared"`
	Dependencies    []string `json:"dependencies"`
	Transitive      []string `json:"transitiveDependencies"`
	DependencyCount int      `json:"dependencyCount"`
	TransitiveCount int      `json:"transitiveCount"`
	DependentCount  int      `json:"dependentCount"`
}

// RankedPackage is one entry of a top-N list.
type RankedPackage struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ProjectStats aggregates a whole project.
type ProjectStats struct {
	TotalPackages     int             `json:"totalPackages"`
	TotalSize         int64           `json:"totalSize"`
	Installed         int             `json:"installed"`
	Missing           int             `json:"missing"`
	RootPackages      int             `json:"rootPackages"`
	Workspaces        int             `json:"workspaces"`
	LevelDistribution map[int]int     `json:"levelDistribution"`
	Largest           []RankedPackage `json:"largest"`
	MostDependencies  []RankedPackage `json:"mostDependencies"`
	MostDependents    []RankedPackage `json:"mostDependents"`
}

// Result is the output of the stats phase. It is read-only once returned.
type Result struct {
	Packages  map[string]PackageStats         `json:"packages"`
	Project   ProjectStats                    `json:"project"`
	Installed map[string]scan.InstalledRecord `json:"installed"`
}

// Package returns the stats of name.
func (r *Result) Package(name string) (PackageStats, bool) {
	ps, ok := r.Packages[name]
	return ps, ok
}

// Compute derives package and project statistics from ds. Size estimation
// failures are logged and yield 0; only a cancelled context aborts.
func Compute(ctx context.Context, ds *scan.Dataset, opts Options) (*Result, error) {
	if ds == nil {
		return nil, errors.Precondition("stats computed before scan")
	}
	opts = opts.WithDefaults()
	start := time.Now()

	names := ds.Names()
	direct := make(map[string][]string, len(names))
	for _, name := range names {
		direct[name] = dependencyNames(ds, name)
	}
	dependents := countDependents(ds.Adjacency)

	res := &Result{
		Packages:  make(map[string]PackageStats, len(names)),
		Installed: make(map[string]scan.InstalledRecord, len(ds.Installed)),
	}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, hasRecord := ds.Installed[name]
		m := ds.Manifest(name)

		size := estimate(ds, name, opts.Logger)
		if hasRecord {
			s := size
			rec.Size = &s
			res.Installed[name] = rec
		}

		version := rec.Version
		if m != nil {
			version = m.Version
		}
		closure := transitive(direct, name)
		res.Packages[name] = PackageStats{
			Name:            name,
			Version:         version,
			Size:            size,
			Installed:       hasRecord && rec.Path != "",
			Declared:        m != nil,
			Dependencies:    direct[name],
			Transitive:      closure,
			DependencyCount: len(direct[name]),
			TransitiveCount: len(closure),
			DependentCount:  dependents[name],
		}
	}

	res.Project = project(ds, res.Packages, direct, opts.TopN)
	opts.Logger.Debug("stats computed",
		"packages", len(res.Packages),
		"totalSize", res.Project.TotalSize,
		"duration", time.Since(start))
	return res, nil
}

func dependencyNames(ds *scan.Dataset, name string) []string {
	deps := ds.DependenciesOf(name)
	out := make([]string, 0, len(deps))
	for _, d := range deps {
		if d.Name != name {
			out = append(out, d.Name)
		}
	}
	return out
}

// estimate sizes one package: declared packages from their sources,
// installed ones from what they ship.
func estimate(ds *scan.Dataset, name string, logger *log.Logger) int64 {
	var (
		size int64
		err  error
		path string
	)
	if m := ds.Manifest(name); m != nil {
		path = m.Dir
		size, err = footprint.SourceSize(path)
	} else if rec, ok := ds.Installed[name]; ok && rec.Path != "" {
		path = rec.Path
		size, err = footprint.InstalledSize(path)
	}
	if err != nil {
		logger.Warn("size estimation failed", "package", name, "path", path, "err", err)
		return 0
	}
	return size
}

// transitive returns the dependency closure of start in discovery order,
// excluding start. The visited set is local to the call.
func transitive(direct map[string][]string, start string) []string {
	visited := map[string]bool{start: true}
	var out []string
	stack := slices.Clone(direct[start])
	slices.Reverse(stack)
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[name] {
			continue
		}
		visited[name] = true
		out = append(out, name)
		deps := direct[name]
		for i := len(deps) - 1; i >= 0; i-- {
			if !visited[deps[i]] {
				stack = append(stack, deps[i])
			}
		}
	}
	return out
}

// countDependents counts, per name, the adjacency entries listing it.
func countDependents(adjacency map[string][]string) map[string]int {
	counts := make(map[string]int)
	for _, deps := range adjacency {
		seen := make(map[string]bool, len(deps))
		for _, d := range deps {
			if !seen[d] {
				seen[d] = true
				counts[d]++
			}
		}
	}
	return counts
}

// levels assigns every name reachable from the declared roots its minimum
// distance, breadth first from all roots at once.
func levels(ds *scan.Dataset, direct map[string][]string) map[string]int {
	dist := make(map[string]int)
	var queue []string
	for _, m := range ds.Packages {
		if _, ok := dist[m.Name]; !ok {
			dist[m.Name] = 0
			queue = append(queue, m.Name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		next := dist[name] + 1
		for _, dep := range direct[name] {
			if d, ok := dist[dep]; !ok || next < d {
				dist[dep] = next
				queue = append(queue, dep)
			}
		}
	}
	return dist
}

func project(ds *scan.Dataset, pkgs map[string]PackageStats, direct map[string][]string, topN int) ProjectStats {
	ps := ProjectStats{
		TotalPackages:     len(pkgs),
		RootPackages:      len(ds.Packages),
		Workspaces:        len(ds.Workspaces),
		LevelDistribution: make(map[int]int),
	}
	for _, p := range pkgs {
		ps.TotalSize += p.Size
		if p.Declared {
			continue
		}
		if p.Installed {
			ps.Installed++
		} else {
			ps.Missing++
		}
	}
	for _, lvl := range levels(ds, direct) {
		ps.LevelDistribution[lvl]++
	}

	ps.Largest = rank(pkgs, topN, func(p PackageStats) int64 { return p.Size })
	ps.MostDependencies = rank(pkgs, topN, func(p PackageStats) int64 { return int64(p.TransitiveCount) })
	ps.MostDependents = rank(pkgs, topN, func(p PackageStats) int64 { return int64(p.DependentCount) })
	return ps
}

// rank returns the n packages with the highest non-zero value, ties broken
// by name.
func rank(pkgs map[string]PackageStats, n int, value func(PackageStats) int64) []RankedPackage {
	out := make([]RankedPackage, 0, n)
	for _, name := range slices.Sorted(maps.Keys(pkgs)) {
		if v := value(pkgs[name]); v > 0 {
			out = append(out, RankedPackage{Name: name, Value: v})
		}
	}
	slices.SortStableFunc(out, func(a, b RankedPackage) int {
		return cmp.Compare(b.Value, a.Value)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
