// Package api serves analyses of one project over HTTP.
//
// Routes:
//
//	GET /healthz           build info
//	GET /api/graph         graph JSON ({nodes, links, packages, workspaces, stats})
//	GET /api/stats         package and project statistics
//	GET /api/export.dot    Graphviz DOT
//	GET /api/export.svg    rendered SVG
//	GET /metrics           Prometheus metrics, when a handler is configured
//
// Every analysis route accepts ?refresh=1 to bypass the cache. Responses
// carry X-Depscope-Run (the analysis run id) and X-Depscope-Cache (hit or
// miss). Errors are JSON:
//
//	{"error": {"code": "INVALID_PATH", "message": "root path does not exist: /x"}}
//
// The package holds no engine logic; every request goes through an
// [engine.Runner].
package api
