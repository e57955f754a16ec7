package scan

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/manifest"
)

// writeTree creates files under root from a path→content map.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func monorepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":                 `{"name":"mono","version":"1.0.0","devDependencies":{"typescript":"^5.0.0"}}`,
		"apps/admin/package.json":      `{"name":"admin","dependencies":{"web":"*","lodash":"^1.2.0"}}`,
		"packages/web/package.json":    `{"name":"web","version":"0.3.0","dependencies":{"react":"^18.0.0"},"peerDependencies":{"react-dom":"^18.0.0"}}`,
		"packages/api/package.json":    `{"name":"api","version":"0.1.0","dependencies":{"@babel/core":"^7.0.0"}}`,
		"packages/broken/package.json": `{"name": `,
		"dist/package.json":            `{"name":"should-not-appear"}`,
		".cache/package.json":          `{"name":"hidden"}`,
		"yarn.lock":                    "# yarn lockfile v1\n\nlodash@^1.2.0:\n  version \"1.2.0\"\n",

		"node_modules/lodash/package.json":                         `{"name":"lodash","version":"1.2.1"}`,
		"node_modules/react/package.json":                          `{"name":"react","version":"18.2.0","dependencies":{"loose-envify":"^1.1.0"}}`,
		"node_modules/react/node_modules/loose-envify/package.json": `{"name":"loose-envify","version":"2.0.0"}`,
		"node_modules/loose-envify/package.json":                   `{"name":"loose-envify","version":"1.4.0","dependencies":{"js-tokens":"^4.0.0"}}`,
		"node_modules/@babel/core/package.json":                    `{"name":"@babel/core","version":"7.23.0","optionalDependencies":{"fsevents":"*"}}`,
		"node_modules/.bin/tsc":                                    "#!/bin/sh",
		"node_modules/no-manifest/index.js":                        "module.exports = 1",

		"node_modules/.pnpm/js-tokens@4.0.0/node_modules/js-tokens/package.json": `{"name":"js-tokens","version":"4.0.0"}`,
	})
	return root
}

func TestNew_InvalidRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, Options{})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))
}

func TestScan_Monorepo(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{})
	require.NoError(t, err)

	ds, err := s.Scan(context.Background())
	require.NoError(t, err)

	names := make([]string, len(ds.Packages))
	for i, m := range ds.Packages {
		names[i] = m.Name
	}
	assert.Equal(t, []string{"admin", "mono", "api", "web"}, names, "lexical discovery, broken and skipped manifests dropped")

	assert.Equal(t, []Workspace{
		{Name: "apps", Path: filepath.Join(s.Root(), "apps"), Packages: []string{"admin"}},
		{Name: RootWorkspace, Path: s.Root(), Packages: []string{"mono"}},
		{Name: "packages", Path: filepath.Join(s.Root(), "packages"), Packages: []string{"api", "web"}},
	}, ds.Workspaces)

	admin := ds.Installed["admin"]
	assert.Equal(t, manifest.DefaultVersion, admin.Version)
	assert.Equal(t, SourceManifest, admin.Source)
}

func TestScan_FirstWriterWins(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{})
	require.NoError(t, err)
	ds, err := s.Scan(context.Background())
	require.NoError(t, err)

	lodash := ds.Installed["lodash"]
	assert.Equal(t, "1.2.0", lodash.Version, "lock file observed first")
	assert.Equal(t, SourceLockfile, lodash.Source)
	assert.Equal(t, filepath.Join(s.Root(), "node_modules", "lodash"), lodash.Path, "path filled by the install scan")
	assert.Nil(t, lodash.Size)

	envify := ds.Installed["loose-envify"]
	assert.Equal(t, "1.4.0", envify.Version, "hoisted copy is read before the nested one")
	assert.Equal(t, []string{"js-tokens"}, ds.Adjacency["loose-envify"])
}

func TestScan_InstallLayouts(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{Workers: 1})
	require.NoError(t, err)
	ds, err := s.Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "7.23.0", ds.Installed["@babel/core"].Version)
	assert.Equal(t, []string{"fsevents"}, ds.Adjacency["@babel/core"], "optional deps are folded in")
	assert.Equal(t, []string{"loose-envify"}, ds.Adjacency["react"])
	assert.Equal(t, "4.0.0", ds.Installed["js-tokens"].Version, "pnpm store is scanned")
	assert.NotContains(t, ds.Installed, "no-manifest")
	assert.NotContains(t, ds.Installed, ".bin")
	_, ok := ds.Adjacency["lodash"]
	assert.True(t, ok, "lock entry without deps still owns the adjacency slot")
}

func TestScan_Deterministic(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{Workers: 4})
	require.NoError(t, err)

	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	for range 5 {
		again, err := s.Scan(context.Background())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScan_Cancelled(t *testing.T) {
	s, err := New(monorepo(t), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_ExtraIgnore(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{Ignore: []string{"apps"}})
	require.NoError(t, err)
	ds, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, ds.Manifest("admin"))
}

func TestDataset_DependenciesOf(t *testing.T) {
	s, err := New(monorepo(t), Options{})
	require.NoError(t, err)
	ds, err := s.Scan(context.Background())
	require.NoError(t, err)

	web := ds.DependenciesOf("web")
	assert.Equal(t, []manifest.Dep{
		{Name: "react", Range: "^18.0.0", Kind: manifest.KindRuntime},
		{Name: "react-dom", Range: "^18.0.0", Kind: manifest.KindPeer},
	}, web)

	assert.Equal(t, []manifest.Dep{{Name: "loose-envify", Kind: manifest.KindRuntime}}, ds.DependenciesOf("react"))
	assert.Nil(t, ds.DependenciesOf("unknown"))
}

func TestDataset_Names(t *testing.T) {
	ds := newDataset("/r")
	ds.Packages = []*manifest.Manifest{{Name: "b"}, {Name: "a", Dependencies: manifest.Deps{{Name: "z"}}}}
	ds.observe("x", "1.0.0", "", SourceLockfile)
	ds.link("x", []string{"y", "x", "y"})

	assert.Equal(t, []string{"b", "a", "x", "y", "z"}, ds.Names())
	assert.Equal(t, []string{"y"}, ds.Adjacency["x"], "self edges and duplicates are dropped")
}

func TestFingerprint(t *testing.T) {
	root := monorepo(t)
	s, err := New(root, Options{})
	require.NoError(t, err)
	ctx := context.Background()

	base, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	again, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, base, again, "unchanged tree")

	changes := []struct {
		name string
		edit func(t *testing.T)
	}{
		{"manifest", func(t *testing.T) {
			writeTree(t, root, map[string]string{"packages/api/package.json": `{"name":"api","version":"0.2.0"}`})
		}},
		{"new manifest", func(t *testing.T) {
			writeTree(t, root, map[string]string{"packages/cli/package.json": `{"name":"cli"}`})
		}},
		{"lock file", func(t *testing.T) {
			writeTree(t, root, map[string]string{"yarn.lock": "# yarn lockfile v1\n\nlodash@^1.2.0:\n  version \"1.2.10\"\n"})
		}},
		{"installed package", func(t *testing.T) {
			writeTree(t, root, map[string]string{"node_modules/left-pad/package.json": `{"name":"left-pad"}`})
		}},
		{"removed package", func(t *testing.T) {
			require.NoError(t, os.RemoveAll(filepath.Join(root, "node_modules", "lodash")))
		}},
	}
	prev := base
	for _, c := range changes {
		t.Run(c.name, func(t *testing.T) {
			c.edit(t)
			got, err := s.Fingerprint(ctx)
			require.NoError(t, err)
			assert.NotEqual(t, prev, got)
			prev = got
		})
	}

	writeTree(t, root, map[string]string{"dist/package.json": `{"name":"rebuilt"}`})
	got, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, prev, got, "skipped directories do not contribute")
}

func TestFingerprint_Cancelled(t *testing.T) {
	s, err := New(monorepo(t), Options{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fingerprint(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
