package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// containerMarkers are the metadata files package managers rewrite inside an
// install container on every install.
var containerMarkers = []string{".package-lock.json", ".modules.yaml", ".yarn-state.yml", ".yarn-integrity"}

// Fingerprint returns a digest of the sources a scan would read: path, size
// and modification time of every manifest and lock file, plus the
// modification time and top-level entries of every install container and
// its marker files. It runs the discovery walk only, so it is much cheaper
// than [Scanner.Scan].
// Any change to a discovered source changes the digest.
func (s *Scanner) Fingerprint(ctx context.Context) (string, error) {
	found, err := s.discover(ctx)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	stamp := func(kind, path string) {
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}
		info, err := os.Lstat(path)
		if err != nil {
			fmt.Fprintf(h, "%s %s missing\n", kind, filepath.ToSlash(rel))
			return
		}
		fmt.Fprintf(h, "%s %s %d %d\n", kind, filepath.ToSlash(rel), info.Size(), info.ModTime().UnixNano())
	}

	for _, p := range found.manifests {
		stamp("manifest", p)
	}
	for _, p := range found.lockfiles {
		stamp("lockfile", p)
	}
	for _, dir := range found.containers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		stampDir(h, s.root, dir)
		for _, name := range containerMarkers {
			if _, err := os.Lstat(filepath.Join(dir, name)); err == nil {
				stamp("marker", filepath.Join(dir, name))
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// stampDir writes the modification time and entry names of dir. Size is
// omitted because directory sizes are filesystem specific.
func stampDir(w io.Writer, root, dir string) {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = dir
	}
	info, err := os.Lstat(dir)
	if err != nil {
		fmt.Fprintf(w, "container %s missing\n", filepath.ToSlash(rel))
		return
	}
	fmt.Fprintf(w, "container %s %d\n", filepath.ToSlash(rel), info.ModTime().UnixNano())
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		fmt.Fprintf(w, "  %s\n", e.Name())
	}
}
