package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/manifest"
)

// pnpmStore is the virtual store pnpm keeps inside the root container.
const pnpmStore = ".pnpm"

// observation is one installed package read from a container.
type observation struct {
	name    string
	version string
	dir     string
	deps    []string
}

// scanContainers reads every container concurrently and returns the
// observations of each, indexed like containers.
func (s *Scanner) scanContainers(ctx context.Context, containers []string) ([][]observation, error) {
	sets := make([][]observation, len(containers))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, dir := range containers {
		g.Go(func() error {
			obs, err := s.scanContainer(ctx, dir)
			if err != nil {
				return err
			}
			sets[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

// scanContainer walks one node_modules tree breadth first: the packages of
// a container, then its nested containers in the order they were found.
func (s *Scanner) scanContainer(ctx context.Context, root string) ([]observation, error) {
	var out []observation
	queue := []string{root}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.opts.Logger.Warn("skipping install directory", "path", dir, "err", err)
			continue
		}
		for _, e := range entries {
			name := e.Name()
			switch {
			case name == pnpmStore && e.IsDir():
				queue = append(queue, storeContainers(filepath.Join(dir, name))...)
			case strings.HasPrefix(name, "."):
			case strings.HasPrefix(name, "@"):
				scoped, err := os.ReadDir(filepath.Join(dir, name))
				if err != nil {
					s.opts.Logger.Warn("skipping scope directory", "path", filepath.Join(dir, name), "err", err)
					continue
				}
				for _, se := range scoped {
					o, nested, ok := s.readPackage(dir, name+"/"+se.Name(), se)
					if ok {
						out = append(out, o)
					}
					if nested != "" {
						queue = append(queue, nested)
					}
				}
			default:
				o, nested, ok := s.readPackage(dir, name, e)
				if ok {
					out = append(out, o)
				}
				if nested != "" {
					queue = append(queue, nested)
				}
			}
		}
	}
	return out, nil
}

// readPackage reads the package installed as name inside container. It
// returns the nested container to visit, if any. Symlinked packages are
// resolved but never descended into.
func (s *Scanner) readPackage(container, name string, e os.DirEntry) (observation, string, bool) {
	if errors.ValidateNpmPackageName(name) != nil {
		return observation{}, "", false
	}
	dir := filepath.Join(container, filepath.FromSlash(name))
	linked := e.Type()&os.ModeSymlink != 0
	if linked {
		target, err := filepath.EvalSymlinks(dir)
		if err != nil {
			s.opts.Logger.Debug("skipping dangling link", "path", dir, "err", err)
			return observation{}, "", false
		}
		dir = target
	} else if !e.IsDir() {
		return observation{}, "", false
	}

	m, err := manifest.Read(filepath.Join(dir, manifest.FileName))
	if err != nil {
		if !os.IsNotExist(err) {
			s.opts.Logger.Warn("skipping installed manifest", "path", dir, "err", err)
		}
		return observation{}, "", false
	}

	var nested string
	if !linked {
		if info, err := os.Stat(filepath.Join(dir, containerDir)); err == nil && info.IsDir() {
			nested = filepath.Join(dir, containerDir)
		}
	}
	return observation{name: name, version: m.Version, dir: dir, deps: m.Runtime()}, nested, true
}

// storeContainers lists the per-package containers of a pnpm virtual store:
// .pnpm/<name>@<version>/node_modules.
func storeContainers(store string) []string {
	entries, err := os.ReadDir(store)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(store, e.Name(), containerDir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			out = append(out, dir)
		}
	}
	return out
}
