package lockfile

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/depscope/pkg/errors"
)

// Family groups lock formats by how they encode the dependency graph.
type Family string

const (
	// FamilyFlat covers formats whose entries are keyed by "name@range".
	FamilyFlat Family = "flat"
	// FamilyTree covers formats that snapshot the installed node tree.
	FamilyTree Family = "tree"
)

// Format identifies a concrete lock file format.
type Format string

const (
	FormatYarnClassic Format = "yarn-v1"
	FormatYarnBerry   Format = "yarn-berry"
	FormatPnpm        Format = "pnpm"
	FormatNpm         Format = "npm"
)

// Family returns the family a format belongs to.
func (f Format) Family() Family {
	if f == FormatNpm {
		return FamilyTree
	}
	return FamilyFlat
}

// fileFormats maps lock file base names to the parser family that reads them.
// yarn.lock is refined to classic or berry after reading.
var fileFormats = map[string]Format{
	"yarn.lock":           FormatYarnClassic,
	"pnpm-lock.yaml":      FormatPnpm,
	"package-lock.json":   FormatNpm,
	"npm-shrinkwrap.json": FormatNpm,
}

// Supports reports whether name is a lock file base name this package reads.
func Supports(name string) bool {
	_, ok := fileFormats[name]
	return ok
}

// Entry is one resolved package observation.
type Entry struct {
	Name         string   // bare package name
	Version      string   // resolved version
	Dependencies []string // dependency names, optional folded in, first-seen order
}

// Lockfile is the normalized content of one lock file.
type Lockfile struct {
	Path    string
	Format  Format
	Entries []Entry
}

// Read parses the lock file at path, choosing the parser from its base name.
func Read(path string) (*Lockfile, error) {
	format, ok := fileFormats[filepath.Base(path)]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported lock file: %s", filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	switch format {
	case FormatYarnClassic:
		if isBerry(data) {
			format = FormatYarnBerry
			entries, err = parseYarnBerry(data)
		} else {
			entries, err = parseYarnClassic(data)
		}
	case FormatPnpm:
		entries, err = parsePnpm(data)
	case FormatNpm:
		var tree *Tree
		if tree, err = LoadTree(data); err == nil {
			entries = tree.Entries()
		}
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidLockfile, err, "parse %s", path)
	}
	return &Lockfile{Path: path, Format: format, Entries: entries}, nil
}

// NameFromKey recovers the bare package name from a composite lock key such
// as `lodash@^4.17.0`, `"@babel/core@^7.0.0"`, `react@npm:^18.2.0` or the
// first alternative of `a@^1.0.0, a@^1.1.0`.
func NameFromKey(key string) string {
	key = strings.TrimSpace(key)
	if i := strings.Index(key, ","); i >= 0 {
		key = key[:i]
	}
	key = strings.Trim(strings.TrimSpace(key), `"'`)
	if strings.HasPrefix(key, "@") {
		if i := strings.Index(key[1:], "@"); i >= 0 {
			return key[:i+1]
		}
		return key
	}
	if i := strings.Index(key, "@"); i > 0 {
		return key[:i]
	}
	return key
}

// appendUnique appends names to list, skipping any already present.
func appendUnique(list []string, names ...string) []string {
	for _, n := range names {
		if n != "" && !slices.Contains(list, n) {
			list = append(list, n)
		}
	}
	return list
}
