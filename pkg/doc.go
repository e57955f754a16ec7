// Package pkg provides the core libraries for depscope, a dependency
// footprint analyzer for JavaScript projects and monorepos.
//
// # Overview
//
// depscope scans a project directory for package.json manifests, joins
// them with the installed tree and lock files, attributes on-disk size to
// every installed package, and assembles a bounded dependency graph that
// can be served as JSON or rendered as DOT and SVG.
//
// # Architecture
//
// The data flow through depscope:
//
//	project directory
//	         ↓
//	    [manifest], [lockfile] (parse package.json, npm/yarn/pnpm locks)
//	         ↓
//	    [scan] (discover manifests and the installed tree)
//	         ↓
//	    [footprint], [stats] (sizes, dependents, rankings)
//	         ↓
//	    [graph] (bounded expansion into nodes and links)
//	         ↓
//	    [export] (DOT and SVG) or [api] (JSON over HTTP)
//
// [engine] runs the phases in order and caches complete analyses through
// [cache]. [config] loads depscope.toml. [errors] carries the error codes
// shared by every package, and [observability] exposes the hooks the
// metrics backend attaches to.
//
// # Quick Start
//
//	cfg := config.Default()
//	e, err := engine.New("./my-app", cfg, logger)
//	if err != nil {
//	    return err
//	}
//	a, err := e.Run(ctx)
//	if err != nil {
//	    return err
//	}
//	dot := export.ToDOT(a.Graph, export.Options{Clusters: true})
//
// [api]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/api
// [cache]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/config
// [engine]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/engine
// [errors]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/errors
// [export]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/export
// [footprint]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/footprint
// [graph]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/graph
// [lockfile]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/lockfile
// [manifest]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/manifest
// [observability]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/observability
// [scan]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/scan
// [stats]: https://pkg.go.dev/github.com/matzehuels/depscope/pkg/stats
package pkg
