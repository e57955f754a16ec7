package lockfile

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parsePnpm reads pnpm-lock.yaml. Package keys come in three generations:
//
//	/lodash/4.17.21                 (v5)
//	/react-dom/17.0.2_react@17.0.2  (v5, peer suffix)
//	/@types/react@18.2.0(react@18)  (v6)
//	@types/react@18.2.0             (v9, dependencies live under snapshots)
//
// Importers describe workspace members and are left to manifest scanning.
func parsePnpm(data []byte) ([]Entry, error) {
	root, err := yamlMapping(data)
	if err != nil {
		return nil, err
	}
	packages := mappingValue(root, "packages")
	if packages == nil || packages.Kind != yaml.MappingNode {
		return nil, nil
	}

	snapshots := make(map[string]*yaml.Node)
	if s := mappingValue(root, "snapshots"); s != nil && s.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(s.Content); i += 2 {
			base := pnpmBaseKey(s.Content[i].Value)
			if _, ok := snapshots[base]; !ok {
				snapshots[base] = s.Content[i+1]
			}
		}
	}

	var entries []Entry
	for i := 0; i+1 < len(packages.Content); i += 2 {
		key := packages.Content[i].Value
		name, version := pnpmKey(key)
		if name == "" {
			continue
		}

		var v flatValue
		if err := packages.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("package %q: %w", key, err)
		}
		if v.Version.Value != "" {
			version = v.Version.Value
		}
		deps := v.dependencyNames()
		if snap, ok := snapshots[pnpmBaseKey(key)]; ok {
			var sv flatValue
			if err := snap.Decode(&sv); err != nil {
				return nil, fmt.Errorf("snapshot %q: %w", key, err)
			}
			deps = appendUnique(deps, sv.dependencyNames()...)
		}
		entries = append(entries, Entry{Name: name, Version: version, Dependencies: deps})
	}
	return entries, nil
}

// pnpmBaseKey strips the leading slash and any peer suffix from a key.
func pnpmBaseKey(key string) string {
	k := strings.TrimPrefix(key, "/")
	if i := strings.Index(k, "("); i >= 0 {
		k = k[:i]
	}
	return k
}

// pnpmKey splits a packages key into name and version. The name ends at the
// first "@" or "/" after the (optionally scoped) package name. In the v5
// slash form a peer suffix follows the version after an underscore, as in
// /styled-components/5.3.0_react@17.0.2, and is dropped.
func pnpmKey(key string) (name, version string) {
	k := pnpmBaseKey(key)
	start := 0
	if strings.HasPrefix(k, "@") {
		i := strings.Index(k, "/")
		if i < 0 {
			return k, ""
		}
		start = i + 1
	}
	j := strings.IndexAny(k[start:], "/@")
	if j < 0 {
		return k, ""
	}
	name, rest := k[:start+j], k[start+j:]
	version = rest[1:]
	if rest[0] == '/' {
		if i := strings.Index(version, "_"); i >= 0 {
			version = version[:i]
		}
	}
	return name, version
}

// mappingValue returns the value node stored under key in a mapping node.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}
