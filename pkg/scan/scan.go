package scan

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/lockfile"
	"github.com/matzehuels/depscope/pkg/manifest"
)

// DefaultWorkers bounds concurrent install container scans.
const DefaultWorkers = 8

// containerDir is the install container directory name.
const containerDir = "node_modules"

// skippedDirs are never descended into during discovery.
var skippedDirs = map[string]bool{
	containerDir: true,
	"dist":       true,
	"build":      true,
	"out":        true,
	".next":      true,
	".nuxt":      true,
	".output":    true,
	"coverage":   true,
	".git":       true,
}

// Options configures a [Scanner].
type Options struct {
	Ignore  []string    // extra directory names to skip during discovery
	Workers int         // concurrent install container scans (default: DefaultWorkers)
	Logger  *log.Logger // warnings and progress (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Scanner scans one project root. It is discarded after use.
type Scanner struct {
	root   string
	opts   Options
	ignore map[string]bool
}

// New returns a scanner for root. It fails with [errors.ErrCodeInvalidPath]
// when root does not exist or is not a directory.
func New(root string, opts Options) (*Scanner, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve root %s", root)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "root path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrCodeInvalidPath, "root path is not a directory: %s", root)
	}

	opts = opts.WithDefaults()
	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[name] = true
	}
	return &Scanner{root: abs, opts: opts, ignore: ignore}, nil
}

// Root returns the absolute scan root.
func (s *Scanner) Root() string { return s.root }

// discovered holds the file locations found by the discovery walk.
type discovered struct {
	manifests  []string
	lockfiles  []string
	containers []string
}

// Scan discovers and reconciles every source under the root.
func (s *Scanner) Scan(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	logger := s.opts.Logger

	found, err := s.discover(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("discovered sources",
		"manifests", len(found.manifests),
		"lockfiles", len(found.lockfiles),
		"containers", len(found.containers))

	ds := newDataset(s.root)
	for _, path := range found.manifests {
		m, err := manifest.Read(path)
		if err != nil {
			logger.Warn("skipping manifest", "path", path, "err", err)
			continue
		}
		ds.Packages = append(ds.Packages, m)
		ds.observe(m.Name, m.Version, m.Dir, SourceManifest)
	}
	ds.Workspaces = groupWorkspaces(s.root, ds.Packages)

	for _, path := range found.lockfiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lf, err := lockfile.Read(path)
		if err != nil {
			logger.Warn("skipping lock file", "path", path, "err", err)
			continue
		}
		for _, e := range lf.Entries {
			if e.Name == "" {
				continue
			}
			ds.observe(e.Name, e.Version, "", SourceLockfile)
			ds.link(e.Name, e.Dependencies)
		}
		logger.Debug("read lock file", "path", path, "format", lf.Format, "entries", len(lf.Entries))
	}

	sets, err := s.scanContainers(ctx, found.containers)
	if err != nil {
		return nil, err
	}
	for _, set := range sets {
		for _, o := range set {
			ds.observe(o.name, o.version, o.dir, SourceInstalled)
			ds.link(o.name, o.deps)
		}
	}

	logger.Debug("scan complete",
		"packages", len(ds.Packages),
		"workspaces", len(ds.Workspaces),
		"installed", len(ds.Installed),
		"duration", time.Since(start))
	return ds, nil
}

// discover walks the root in lexical order. Install containers found at any
// level are recorded but not descended into.
func (s *Scanner) discover(ctx context.Context) (discovered, error) {
	var found discovered
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return err
			}
			s.opts.Logger.Warn("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if path == s.root {
				return nil
			}
			name := d.Name()
			if name == containerDir {
				found.containers = append(found.containers, path)
				return filepath.SkipDir
			}
			if skippedDirs[name] || s.ignore[name] || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}

		switch name := d.Name(); {
		case name == manifest.FileName:
			found.manifests = append(found.manifests, path)
		case lockfile.Supports(name):
			found.lockfiles = append(found.lockfiles, path)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return discovered{}, ctx.Err()
		}
		return discovered{}, errors.Wrap(errors.ErrCodeInvalidPath, err, "walk %s", s.root)
	}

	slices.SortStableFunc(found.containers, func(a, b string) int {
		if da, db := depth(s.root, a), depth(s.root, b); da != db {
			return da - db
		}
		return strings.Compare(a, b)
	})
	return found, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/")
}
