package footprint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pkgDir creates a package directory named "pkg" holding manifestJSON (if
// any) and files of the given sizes.
func pkgDir(t *testing.T, manifestJSON string, files map[string]int) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "pkg")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if manifestJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifestJSON), 0o644))
	}
	for rel, size := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("x", size)), 0o644))
	}
	return dir
}

func TestInstalledSize_FilesWhitelistWins(t *testing.T) {
	dir := pkgDir(t, `{"name":"pkg","files":["dist"]}`, map[string]int{
		"dist/index.js":   300,
		"dist/util.js":    200,
		"src/index.ts":    50_000,
		"src/big/huge.ts": 90_000,
	})

	n, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(500), n)
}

func TestInstalledSize_FilesPatterns(t *testing.T) {
	dir := pkgDir(t, `{"name":"pkg","files":["lib/**/*.js","README.md","../escape","!lib/skip.js"]}`, map[string]int{
		"lib/a.js":       10,
		"lib/deep/b.js":  20,
		"lib/deep/b.cjs": 40,
		"README.md":      5,
		"dist/index.js":  1000,
	})

	n, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(35), n, "listed files count directly, even when deny-patterned")
}

func TestInstalledSize_BuildDirectory(t *testing.T) {
	dir := pkgDir(t, `{"name":"pkg","main":"index.js"}`, map[string]int{
		"index.js":             7000,
		"esm/index.js":         100,
		"cjs/index.js":         900,
		"esm/index.js.map":     400,
		"esm/README.md":        50,
		"esm/index.test.js":    60,
		"esm/.eslintrc":        10,
		"esm/locale/de.js":     80,
		"esm/en.js":            30,
		"esm/rollup.config.js": 20,
	})

	n, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(100), n, "first existing build dir only, deny-listed content excluded")
}

func TestInstalledSize_EntryPoints(t *testing.T) {
	dir := pkgDir(t, `{"name":"pkg","main":"./main.js","types":"types/index.d.ts","bin":{"tool":"bin/cli.js"}}`, map[string]int{
		"main.js":          120,
		"types/index.d.ts": 30,
		"bin/cli.js":       10,
		"other.js":         999,
	})

	n, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(160), n)
}

func TestInstalledSize_Fallbacks(t *testing.T) {
	t.Run("src", func(t *testing.T) {
		dir := pkgDir(t, `{"name":"pkg"}`, map[string]int{
			"src/a.js":           40,
			"src/__tests__/a.js": 400,
			"index.js":           999,
		})
		n, err := InstalledSize(dir)
		require.NoError(t, err)
		assert.Equal(t, int64(40), n)
	})

	t.Run("single files", func(t *testing.T) {
		dir := pkgDir(t, "", map[string]int{
			"index.js":   10,
			"index.d.ts": 5,
			"pkg.js":     3,
			"other.js":   999,
		})
		n, err := InstalledSize(dir)
		require.NoError(t, err)
		assert.Equal(t, int64(18), n)
	})

	t.Run("missing directory", func(t *testing.T) {
		_, err := InstalledSize(filepath.Join(t.TempDir(), "gone"))
		assert.Error(t, err)
	})
}

func TestInstalledSize_SymlinksNotFollowed(t *testing.T) {
	dir := pkgDir(t, `{"name":"pkg"}`, map[string]int{"dist/index.js": 10})
	outside := filepath.Join(t.TempDir(), "big.js")
	require.NoError(t, os.WriteFile(outside, []byte(strings.Repeat("x", 5000)), 0o644))
	if err := os.Symlink(outside, filepath.Join(dir, "dist", "linked.js")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	n, err := InstalledSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestSourceSize(t *testing.T) {
	t.Run("floor", func(t *testing.T) {
		dir := pkgDir(t, "", map[string]int{"README.md": 50_000})
		n, err := SourceSize(dir)
		require.NoError(t, err)
		assert.Equal(t, MinSourceSize, n)
	})

	t.Run("recognized sources", func(t *testing.T) {
		dir := pkgDir(t, "", map[string]int{
			"index.ts":                1000,
			"notes.txt":               9999,
			"src/app.tsx":             2000,
			"src/styles.scss":         500,
			"src/image.png":           9999,
			"src/node_modules/x/x.js": 9999,
			"components/Button.vue":   300,
			"scripts/build.js":        9999,
		})
		n, err := SourceSize(dir)
		require.NoError(t, err)
		assert.Equal(t, int64(3800), n)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := SourceSize(filepath.Join(t.TempDir(), "gone"))
		assert.Error(t, err)
	})
}

func TestDeniedFile(t *testing.T) {
	for _, name := range []string{".npmignore", "CHANGELOG.md", "a.map", "x.spec.ts", "jest.config.js", "tsconfig.build.json", "zh-cn.js", "LICENSE.txt"} {
		assert.True(t, deniedFile(name), name)
	}
	for _, name := range []string{"index.js", "util.mjs", "package.json", "parser.js"} {
		assert.False(t, deniedFile(name), name)
	}
}
