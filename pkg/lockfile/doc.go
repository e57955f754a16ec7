// Package lockfile parses JavaScript lock files into resolved name/version
// observations with coarse dependency adjacency.
//
// # Families
//
// Two lock file families are supported:
//
//   - Flat key-list: yarn.lock (classic v1 text and berry YAML) and
//     pnpm-lock.yaml. Entries are keyed by composite "name@range" keys;
//     [NameFromKey] recovers the bare package name.
//   - Resolved install-tree: package-lock.json and npm-shrinkwrap.json.
//     [LoadTree] rebuilds the installed node tree and resolves every declared
//     dependency through node_modules ancestry, keeping only direct edges
//     that land on an installed node.
//
// Both families reduce to a [Lockfile] holding [Entry] values in a
// deterministic order. Edge kinds are not preserved; optional dependencies
// are folded into the same dependency list.
//
//	lf, err := lockfile.Read("yarn.lock")
//	if err != nil {
//	    return err
//	}
//	for _, e := range lf.Entries {
//	    fmt.Println(e.Name, e.Version, e.Dependencies)
//	}
package lockfile
