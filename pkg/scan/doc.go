// Package scan discovers a JavaScript project's dependency sources and
// reconciles them into a single [Dataset].
//
// # Sources
//
// A scan reads three kinds of input under a root directory, in this order:
//
//  1. Manifests (package.json): the declared packages and their workspaces
//  2. Lock files: yarn.lock, pnpm-lock.yaml, package-lock.json and
//     npm-shrinkwrap.json, parsed by [lockfile.Read]
//  3. Install containers: node_modules trees, including scoped packages,
//     nested node_modules and pnpm's .pnpm store
//
// # Reconciliation
//
// Every observation of a package name goes through the same merge rule:
// the first source to record a version is authoritative, and later sources
// may only fill fields that are still empty. The coarse adjacency map
// follows the same rule per name.
//
// Install containers are read concurrently, but each worker only collects
// its observations; they are merged in container order once all workers
// return, so the outcome never depends on scheduling.
//
// # Failures
//
// Per-item failures (a malformed manifest, an unreadable lock file, a
// directory that vanished mid-walk) are logged as warnings and the item is
// treated as absent. Only an invalid root or a cancelled context aborts a
// scan.
//
//	s, err := scan.New("./my-app", scan.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	ds, err := s.Scan(ctx)
package scan
