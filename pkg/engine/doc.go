// Package engine sequences one analysis of a project.
//
// An analysis has three phases that must run in order:
//
//  1. Scan: discover manifests, lock files and installed packages ([scan])
//  2. Stats: estimate sizes and derive package metrics ([stats])
//  3. Assemble: expand the bounded graph ([graph])
//
// [Engine] exposes each phase so callers can stop early (the stats command
// never assembles a graph). Calling a phase before its predecessor fails
// with [errors.ErrCodePrecondition]. [Engine.Run] performs all three.
//
// [Runner] wraps Run with a [cache.Cache] and collapses concurrent requests
// for the same analysis into one run. The CLI and the HTTP server both go
// through a Runner:
//
//	runner := engine.NewRunner(c, nil, logger)
//	an, err := runner.Analyze(ctx, engine.Request{Root: ".", Config: cfg})
//	if err != nil {
//	    return err
//	}
//	graph.Write(an.Graph, os.Stdout, true)
package engine
