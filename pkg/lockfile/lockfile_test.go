package lockfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/depscope/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNameFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"lodash@^4.17.21", "lodash"},
		{`"@babel/core@^7.0.0"`, "@babel/core"},
		{`"@babel/code-frame@^7.0.0", "@babel/code-frame@^7.10.4"`, "@babel/code-frame"},
		{"react@npm:^18.2.0", "react"},
		{"@types/node@npm:*, @types/node@npm:^18", "@types/node"},
		{"web@workspace:packages/web", "web"},
		{"left-pad", "left-pad"},
		{"@scope/only", "@scope/only"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, NameFromKey(tt.key))
		})
	}
}

const yarnClassic = `# THIS IS AN AUTOGENERATED FILE. DO NOT EDIT THIS FILE DIRECTLY.
# yarn lockfile v1


"@babel/code-frame@^7.0.0", "@babel/code-frame@^7.10.4":
  version "7.12.13"
  resolved "https://registry.yarnpkg.com/@babel/code-frame/-/code-frame-7.12.13.tgz"
  integrity sha512-abc
  dependencies:
    "@babel/highlight" "^7.12.13"

"@babel/highlight@^7.12.13":
  version "7.13.10"
  dependencies:
    chalk "^2.0.0"
    js-tokens "^4.0.0"
  optionalDependencies:
    fsevents "~2.3.1"

chalk@^2.0.0:
  version "2.4.2"

chalk@^4.0.0:
  version "4.1.2"
`

func TestRead_YarnClassic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "yarn.lock", yarnClassic)

	lf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYarnClassic, lf.Format)
	assert.Equal(t, FamilyFlat, lf.Format.Family())
	require.Len(t, lf.Entries, 4)

	assert.Equal(t, Entry{Name: "@babel/code-frame", Version: "7.12.13", Dependencies: []string{"@babel/highlight"}}, lf.Entries[0])
	assert.Equal(t, []string{"chalk", "js-tokens", "fsevents"}, lf.Entries[1].Dependencies)
	assert.Equal(t, "chalk", lf.Entries[2].Name)
	assert.Equal(t, "2.4.2", lf.Entries[2].Version)
	assert.Empty(t, lf.Entries[2].Dependencies)
	assert.Equal(t, "4.1.2", lf.Entries[3].Version)
}

func TestRead_YarnClassicMalformed(t *testing.T) {
	path := writeFile(t, t.TempDir(), "yarn.lock", "  version \"1.0.0\"\n")

	_, err := Read(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidLockfile))
}

const yarnBerry = `# This file is generated by running "yarn install" inside your project.

__metadata:
  version: 6
  cacheKey: 8

"@types/node@npm:*, @types/node@npm:^18.0.0":
  version: 18.11.9
  resolution: "@types/node@npm:18.11.9"
  languageName: node
  linkType: hard

"debug@npm:^4.3.4":
  version: 4.3.4
  dependencies:
    ms: 2.1.2
  peerDependenciesMeta:
    supports-color:
      optional: true

"ms@npm:2.1.2":
  version: 2.1.2
`

func TestRead_YarnBerry(t *testing.T) {
	path := writeFile(t, t.TempDir(), "yarn.lock", yarnBerry)

	lf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, FormatYarnBerry, lf.Format)
	require.Len(t, lf.Entries, 3)

	assert.Equal(t, "@types/node", lf.Entries[0].Name)
	assert.Equal(t, "18.11.9", lf.Entries[0].Version)
	assert.Equal(t, Entry{Name: "debug", Version: "4.3.4", Dependencies: []string{"ms"}}, lf.Entries[1])
	assert.Equal(t, "ms", lf.Entries[2].Name)
}

const pnpmV9 = `lockfileVersion: '9.0'

importers:
  .:
    dependencies:
      react-dom:
        specifier: ^18.2.0
        version: 18.2.0(react@18.2.0)

packages:

  loose-envify@1.4.0:
    resolution: {integrity: sha512-x}
    hasBin: true

  react-dom@18.2.0:
    resolution: {integrity: sha512-y}
    peerDependencies:
      react: ^18.2.0

  react@18.2.0:
    resolution: {integrity: sha512-z}

snapshots:

  loose-envify@1.4.0: {}

  react-dom@18.2.0(react@18.2.0):
    dependencies:
      loose-envify: 1.4.0
      react: 18.2.0
      scheduler: 0.23.0

  react@18.2.0:
    dependencies:
      loose-envify: 1.4.0
`

func TestRead_PnpmV9(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pnpm-lock.yaml", pnpmV9)

	lf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, FormatPnpm, lf.Format)
	require.Len(t, lf.Entries, 3)

	assert.Equal(t, Entry{Name: "loose-envify", Version: "1.4.0"}, lf.Entries[0])
	assert.Equal(t, Entry{
		Name:         "react-dom",
		Version:      "18.2.0",
		Dependencies: []string{"loose-envify", "react", "scheduler"},
	}, lf.Entries[1])
	assert.Equal(t, []string{"loose-envify"}, lf.Entries[2].Dependencies)
}

const pnpmV5 = `lockfileVersion: 5.4

packages:

  /@emotion/react/11.0.0_react@17.0.2:
    resolution: {integrity: sha512-a}
    dependencies:
      '@emotion/cache': 11.0.0
      react: 17.0.2

  /react-dom/17.0.2_react@17.0.2:
    resolution: {integrity: sha512-b}
    dependencies:
      loose-envify: 1.4.0
      scheduler: 0.20.2

  /react/17.0.2:
    resolution: {integrity: sha512-c}
`

func TestRead_PnpmV5PeerSuffix(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pnpm-lock.yaml", pnpmV5)

	lf, err := Read(path)
	require.NoError(t, err)
	require.Len(t, lf.Entries, 3)
	assert.Equal(t, Entry{
		Name:         "@emotion/react",
		Version:      "11.0.0",
		Dependencies: []string{"@emotion/cache", "react"},
	}, lf.Entries[0])
	assert.Equal(t, Entry{
		Name:         "react-dom",
		Version:      "17.0.2",
		Dependencies: []string{"loose-envify", "scheduler"},
	}, lf.Entries[1])
	assert.Equal(t, Entry{Name: "react", Version: "17.0.2"}, lf.Entries[2])
}

func TestPnpmKey(t *testing.T) {
	tests := []struct {
		key, name, version string
	}{
		{"/lodash/4.17.21", "lodash", "4.17.21"},
		{"/@babel/core/7.20.0", "@babel/core", "7.20.0"},
		{"/@types/react@18.2.0(react@18.2.0)", "@types/react", "18.2.0"},
		{"react@18.2.0", "react", "18.2.0"},
		{"/styled-components/5.3.0_react-dom@17.0.2+react@17.0.2", "styled-components", "5.3.0"},
		{"/@emotion/react/11.0.0_react@17.0.2", "@emotion/react", "11.0.0"},
		{"/react-dom/17.0.2_react@17.0.2", "react-dom", "17.0.2"},
		{"/@types/node/18.11.9", "@types/node", "18.11.9"},
		{"lodash", "lodash", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			name, version := pnpmKey(tt.key)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.version, version)
		})
	}
}

const npmV3 = `{
  "name": "app",
  "version": "1.0.0",
  "lockfileVersion": 3,
  "packages": {
    "": {
      "name": "app",
      "version": "1.0.0",
      "workspaces": ["packages/*"],
      "dependencies": {"express": "^4.18.0", "shared": "*"},
      "devDependencies": {"jest": "^29.0.0"}
    },
    "node_modules/express": {
      "version": "4.18.2",
      "dependencies": {"debug": "2.6.9", "accepts": "~1.3.8", "not-installed": "1.0.0"}
    },
    "node_modules/debug": {
      "version": "4.3.4",
      "dependencies": {"ms": "2.1.2"}
    },
    "node_modules/express/node_modules/debug": {
      "version": "2.6.9",
      "dependencies": {"ms": "2.0.0"}
    },
    "node_modules/express/node_modules/ms": {"version": "2.0.0"},
    "node_modules/ms": {"version": "2.1.2"},
    "node_modules/accepts": {"version": "1.3.8", "optionalDependencies": {"ms": "*"}},
    "node_modules/shared": {"resolved": "packages/shared", "link": true},
    "packages/shared": {"name": "shared", "version": "0.1.0", "dependencies": {"ms": "^2.1.0"}}
  }
}`

func TestLoadTree_V3(t *testing.T) {
	tree, err := LoadTree([]byte(npmV3))
	require.NoError(t, err)

	byLoc := make(map[string]TreeNode)
	for _, n := range tree.Nodes {
		byLoc[n.Location] = n
	}

	assert.Equal(t, "", tree.Nodes[0].Location, "root is ordered first")
	assert.Equal(t, []string{"express", "shared"}, byLoc[""].Edges)
	assert.Equal(t, []string{"debug", "accepts"}, byLoc["node_modules/express"].Edges,
		"unresolvable dependencies are dropped")
	assert.Equal(t, "2.6.9", byLoc["node_modules/express/node_modules/debug"].Version)
	assert.Equal(t, []string{"ms"}, byLoc["node_modules/accepts"].Edges, "optional deps are folded in")
	assert.Equal(t, []string{"ms"}, byLoc["packages/shared"].Edges)
	assert.True(t, byLoc["node_modules/shared"].Link)

	var debugVersions []string
	for _, e := range tree.Entries() {
		assert.NotEqual(t, "node_modules/shared", e.Name)
		if e.Name == "debug" {
			debugVersions = append(debugVersions, e.Version)
		}
	}
	assert.Equal(t, []string{"4.3.4", "2.6.9"}, debugVersions, "hoisted copy is ordered before the nested one")
	assert.Len(t, tree.Entries(), len(tree.Nodes)-1, "workspace links are skipped")
}

func TestLoadTree_V1(t *testing.T) {
	data := `{
  "name": "legacy",
  "version": "0.1.0",
  "lockfileVersion": 1,
  "dependencies": {
    "a": {
      "version": "1.0.0",
      "requires": {"b": "^2.0.0"},
      "dependencies": {
        "b": {"version": "2.0.0"}
      }
    },
    "b": {"version": "1.0.0"}
  }
}`
	tree, err := LoadTree([]byte(data))
	require.NoError(t, err)

	locs := make([]string, len(tree.Nodes))
	for i, n := range tree.Nodes {
		locs[i] = n.Location
	}
	assert.Equal(t, []string{"", "node_modules/a", "node_modules/b", "node_modules/a/node_modules/b"}, locs)
	assert.Equal(t, "legacy", tree.Nodes[0].Name)
	assert.Equal(t, []string{"b"}, tree.Nodes[1].Edges)
}

func TestRead_NpmPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", npmV3)

	lf, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, FormatNpm, lf.Format)
	assert.Equal(t, FamilyTree, lf.Format.Family())
	assert.NotEmpty(t, lf.Entries)

	bad := writeFile(t, dir, "npm-shrinkwrap.json", "{not json")
	_, err = Read(bad)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidLockfile))
}

func TestRead_Unsupported(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Cargo.lock", "")
	_, err := Read(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeUnsupported))
	assert.False(t, Supports("Cargo.lock"))
	assert.True(t, Supports("pnpm-lock.yaml"))
}
