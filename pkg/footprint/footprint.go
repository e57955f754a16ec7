// Package footprint estimates the on-disk size of JavaScript packages.
//
// Sizes are heuristic. Declared (workspace) packages are sized from their
// source tree with [SourceSize]; installed dependencies are sized from what
// they ship with [InstalledSize], which tries a fixed precedence of rules
// and stops at the first that yields bytes. Symlinks are never followed.
package footprint

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/manifest"
)

// MinSourceSize is the floor reported for a declared package.
const MinSourceSize int64 = 1024

var (
	sourceDirs = []string{"src", "lib", "app", "pages", "components", "utils", "hooks", "styles", "public", "assets"}
	buildDirs  = []string{"dist", "build", "lib", "es", "esm", "cjs", "umd", "bundle"}
	entryFiles = []string{"index.js", "index.mjs", "index.cjs", "index.d.ts"}

	sourceExts = map[string]bool{
		".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".mjs": true, ".cjs": true,
		".vue": true, ".svelte": true, ".css": true, ".scss": true, ".less": true,
		".html": true, ".json": true,
	}

	deniedDirs = map[string]bool{
		"test": true, "tests": true, "__tests__": true, "spec": true, "__mocks__": true,
		"docs": true, "doc": true, "example": true, "examples": true, "demo": true, "demos": true,
		"benchmark": true, "benchmarks": true, "fixtures": true, "coverage": true,
		".github": true, ".circleci": true, ".nyc_output": true, ".cache": true,
		"locale": true, "locales": true, "node_modules": true,
	}

	deniedExts = map[string]bool{".md": true, ".markdown": true, ".txt": true, ".map": true}

	localeScript = regexp.MustCompile(`^[a-z]{2}([-_][a-z]{2,4})?\.js$`)
)

// SourceSize sums the recognized source files of a declared package: files
// with a source extension at the package root and inside the recognized
// source directories. The result is never below [MinSourceSize].
func SourceSize(dir string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, e := range entries {
		if e.Type().IsRegular() && sourceExts[strings.ToLower(filepath.Ext(e.Name()))] {
			total += fileSize(filepath.Join(dir, e.Name()))
		}
	}
	for _, name := range sourceDirs {
		total += walkSum(filepath.Join(dir, name), func(d fs.DirEntry) bool {
			if d.IsDir() {
				return d.Name() != "node_modules" && !strings.HasPrefix(d.Name(), ".")
			}
			return sourceExts[strings.ToLower(filepath.Ext(d.Name()))]
		})
	}
	return max(total, MinSourceSize), nil
}

// InstalledSize estimates what an installed package ships. The first rule
// that yields bytes wins:
//
//  1. the "files" whitelist (files directly, directories recursively,
//     glob patterns expanded)
//  2. the first existing build directory
//  3. the declared entry points
//  4. the src directory, else the conventional single-file entry points
func InstalledSize(dir string) (int64, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 0, errors.New(errors.ErrCodeInvalidPath, "not a package directory: %s", dir)
	}

	m, err := manifest.Read(filepath.Join(dir, manifest.FileName))
	if err != nil {
		m = &manifest.Manifest{}
	}

	if n := sumPaths(dir, m.Files); n > 0 {
		return n, nil
	}
	for _, name := range buildDirs {
		p := filepath.Join(dir, name)
		if isDir(p) {
			if n := dirSize(p); n > 0 {
				return n, nil
			}
			break
		}
	}
	if n := sumPaths(dir, m.EntryPoints()); n > 0 {
		return n, nil
	}
	if src := filepath.Join(dir, "src"); isDir(src) {
		if n := dirSize(src); n > 0 {
			return n, nil
		}
	}

	var total int64
	names := append(slices.Clone(entryFiles), filepath.Base(dir)+".js")
	for _, name := range names {
		total += fileSize(filepath.Join(dir, name))
	}
	return total, nil
}

// sumPaths sums package-relative paths or patterns. Paths escaping the
// package are ignored, as are negated patterns.
func sumPaths(dir string, paths []string) int64 {
	seen := make(map[string]bool)
	var total int64
	add := func(p string) {
		if seen[p] {
			return
		}
		seen[p] = true
		info, err := os.Lstat(p)
		switch {
		case err != nil:
		case info.IsDir():
			total += dirSize(p)
		case info.Mode().IsRegular():
			total += info.Size()
		}
	}

	for _, raw := range paths {
		rel := strings.TrimSuffix(strings.TrimPrefix(path.Clean(filepath.ToSlash(raw)), "./"), "/")
		if strings.HasPrefix(raw, "!") || errors.ValidateRelPath(rel) != nil || rel == "." {
			continue
		}
		if !strings.ContainsAny(rel, "*?[") {
			add(filepath.Join(dir, filepath.FromSlash(rel)))
			continue
		}
		for _, match := range glob(dir, rel) {
			add(match)
		}
	}
	return total
}

// glob expands a slash-separated pattern relative to dir. "**" matches any
// number of path segments.
func glob(dir, pattern string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == dir {
			return nil
		}
		if d.IsDir() && d.Name() == "node_modules" {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return nil
		}
		if matchSegments(strings.Split(pattern, "/"), strings.Split(filepath.ToSlash(rel), "/")) {
			out = append(out, p)
			if d.IsDir() {
				return filepath.SkipDir
			}
		}
		return nil
	})
	return out
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			for i := 0; i <= len(name); i++ {
				if matchSegments(pattern[1:], name[i:]) {
					return true
				}
			}
			return false
		}
		if len(name) == 0 {
			return false
		}
		if ok, err := path.Match(pattern[0], name[0]); err != nil || !ok {
			return false
		}
		pattern, name = pattern[1:], name[1:]
	}
	return len(name) == 0
}

// dirSize sums a shipped directory, skipping deny-listed directories and
// files.
func dirSize(dir string) int64 {
	return walkSum(dir, func(d fs.DirEntry) bool {
		if d.IsDir() {
			return !deniedDirs[d.Name()]
		}
		return !deniedFile(d.Name())
	})
}

// walkSum walks dir without following symlinks. keep decides whether a
// directory is descended into and whether a file is counted.
func walkSum(dir string, keep func(d fs.DirEntry) bool) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if p == dir {
			return nil
		}
		if d.IsDir() {
			if !keep(d) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !keep(d) {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// deniedFile reports whether a file name is never counted as shipped
// content.
func deniedFile(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasPrefix(lower, "."):
		return true
	case deniedExts[filepath.Ext(lower)]:
		return true
	case strings.Contains(lower, ".test.") || strings.Contains(lower, ".spec."):
		return true
	case strings.Contains(lower, ".config.") || strings.Contains(lower, ".conf."):
		return true
	case strings.HasPrefix(lower, "tsconfig") && strings.HasSuffix(lower, ".json"):
		return true
	case localeScript.MatchString(lower):
		return true
	}
	return false
}

func fileSize(p string) int64 {
	info, err := os.Lstat(p)
	if err != nil || !info.Mode().IsRegular() {
		return 0
	}
	return info.Size()
}

func isDir(p string) bool {
	info, err := os.Lstat(p)
	return err == nil && info.IsDir()
}
