package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/matzehuels/depscope/pkg/errors"
)

// FileName is the manifest file name looked for during discovery.
const FileName = "package.json"

// DefaultVersion is recorded for manifests that declare no version.
const DefaultVersion = "0.0.0"

// Kind is the dependency kind a manifest declares an edge with.
type Kind string

// Dependency kinds in precedence order.
const (
	KindRuntime  Kind = "runtime"
	KindDev      Kind = "dev"
	KindPeer     Kind = "peer"
	KindOptional Kind = "optional"
)

// Kinds lists all dependency kinds in the order [Manifest.All] visits them.
var Kinds = []Kind{KindRuntime, KindDev, KindPeer, KindOptional}

// Dep is a single declared dependency.
type Dep struct {
	Name  string `json:"name"`
	Range string `json:"range,omitempty"`
	Kind  Kind   `json:"kind,omitempty"`
}

// Deps is an ordered dependency list decoded from a name→range JSON object.
// Declaration order is preserved and the first occurrence of a duplicated
// key wins. Non-string values are dropped; a non-object value decodes to an
// empty list.
type Deps []Dep

// UnmarshalJSON implements json.Unmarshaler.
func (d *Deps) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		*d = nil
		return nil
	}

	var out Deps
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var rng string
		if json.Unmarshal(raw, &rng) != nil {
			continue
		}
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, Dep{Name: name, Range: rng})
	}
	*d = out
	return nil
}

// Names returns the dependency names in declaration order.
func (d Deps) Names() []string {
	names := make([]string, len(d))
	for i, dep := range d {
		names[i] = dep.Name
	}
	return names
}

// withKind returns a copy of d with every entry tagged as k.
func (d Deps) withKind(k Kind) Deps {
	out := make(Deps, len(d))
	for i, dep := range d {
		dep.Kind = k
		out[i] = dep
	}
	return out
}

// Manifest is a validated package.json.
type Manifest struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
	Path    string `json:"path"` // path of the package.json file
	Dir     string `json:"-"`    // directory containing Path
	Private bool   `json:"private,omitempty"`

	Dependencies         Deps `json:"dependencies,omitempty"`
	DevDependencies      Deps `json:"devDependencies,omitempty"`
	PeerDependencies     Deps `json:"peerDependencies,omitempty"`
	OptionalDependencies Deps `json:"optionalDependencies,omitempty"`

	// Shipping information used by footprint estimation.
	Files   []string `json:"-"`
	Main    string   `json:"-"`
	Module  string   `json:"-"`
	Browser string   `json:"-"`
	Types   string   `json:"-"`
	Bin     []string `json:"-"`
	Exports []string `json:"-"`
}

// rawManifest mirrors package.json with flexible field types.
type rawManifest struct {
	Name                 string          `json:"name"`
	Version              string          `json:"version"`
	Private              json.RawMessage `json:"private"`
	Dependencies         Deps            `json:"dependencies"`
	DevDependencies      Deps            `json:"devDependencies"`
	PeerDependencies     Deps            `json:"peerDependencies"`
	OptionalDependencies Deps            `json:"optionalDependencies"`
	Files                json.RawMessage `json:"files"`
	Main                 json.RawMessage `json:"main"`
	Module               json.RawMessage `json:"module"`
	Browser              json.RawMessage `json:"browser"`
	Types                json.RawMessage `json:"types"`
	Typings              json.RawMessage `json:"typings"`
	Bin                  json.RawMessage `json:"bin"`
	Exports              json.RawMessage `json:"exports"`
}

// Read reads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes package.json content. path is recorded on the result and its
// directory name is used as the package name when the manifest has none.
// A missing version becomes [DefaultVersion].
func Parse(data []byte, path string) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "parse %s", path)
	}

	dir := filepath.Dir(path)
	m := &Manifest{
		Name:                 raw.Name,
		Version:              raw.Version,
		Path:                 path,
		Dir:                  dir,
		Private:              asBool(raw.Private),
		Dependencies:         raw.Dependencies.withKind(KindRuntime),
		DevDependencies:      raw.DevDependencies.withKind(KindDev),
		PeerDependencies:     raw.PeerDependencies.withKind(KindPeer),
		OptionalDependencies: raw.OptionalDependencies.withKind(KindOptional),
		Files:                asStrings(raw.Files),
		Main:                 asString(raw.Main),
		Module:               asString(raw.Module),
		Browser:              asString(raw.Browser),
		Types:                asString(raw.Types),
		Bin:                  binPaths(raw.Bin),
		Exports:              exportPaths(raw.Exports),
	}
	if m.Types == "" {
		m.Types = asString(raw.Typings)
	}
	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if m.Version == "" {
		m.Version = DefaultVersion
	}
	return m, nil
}

// All returns every declared dependency tagged with its kind, visiting
// runtime, dev, peer and optional dependencies in that order. A name declared
// under several kinds is reported once, with the first kind.
func (m *Manifest) All() []Dep {
	var out []Dep
	seen := make(map[string]bool)
	for _, deps := range []Deps{m.Dependencies, m.DevDependencies, m.PeerDependencies, m.OptionalDependencies} {
		for _, d := range deps {
			if seen[d.Name] {
				continue
			}
			seen[d.Name] = true
			out = append(out, d)
		}
	}
	return out
}

// Runtime returns runtime and optional dependency names, the set an installed
// package contributes to the coarse adjacency map.
func (m *Manifest) Runtime() []string {
	names := m.Dependencies.Names()
	for _, n := range m.OptionalDependencies.Names() {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	return names
}

// EntryPoints returns the declared entry point paths (main, module, browser,
// types, bin, exports) without duplicates, in declaration order.
func (m *Manifest) EntryPoints() []string {
	var out []string
	add := func(p string) {
		if p != "" && !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	add(m.Main)
	add(m.Module)
	add(m.Browser)
	add(m.Types)
	for _, p := range m.Bin {
		add(p)
	}
	for _, p := range m.Exports {
		add(p)
	}
	return out
}

func asString(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func asBool(raw json.RawMessage) bool {
	var b bool
	if len(raw) == 0 || json.Unmarshal(raw, &b) != nil {
		return false
	}
	return b
}

func asStrings(raw json.RawMessage) []string {
	var list []any
	if len(raw) == 0 || json.Unmarshal(raw, &list) != nil {
		return nil
	}
	var out []string
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// binPaths accepts "bin": "cli.js" and "bin": {"tool": "cli.js"}.
func binPaths(raw json.RawMessage) []string {
	if s := asString(raw); s != "" {
		return []string{s}
	}
	var m map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return nil
	}
	var out []string
	for _, k := range sortedKeys(m) {
		if s, ok := m[k].(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// exportPaths flattens an "exports" condition tree into its relative file
// targets. Subpath patterns containing "*" are kept; callers expand them.
func exportPaths(raw json.RawMessage) []string {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return nil
	}
	var out []string
	var walk func(any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			if t != "" && !slices.Contains(out, t) {
				out = append(out, t)
			}
		case []any:
			for _, e := range t {
				walk(e)
			}
		case map[string]any:
			for _, k := range sortedKeys(t) {
				walk(t[k])
			}
		}
	}
	walk(v)
	return out
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
