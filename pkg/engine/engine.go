package engine

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/graph"
	"github.com/matzehuels/depscope/pkg/observability"
	"github.com/matzehuels/depscope/pkg/scan"
	"github.com/matzehuels/depscope/pkg/stats"
)

// Analysis is the outcome of a complete run.
type Analysis struct {
	RunID     string        `json:"runId"`
	Root      string        `json:"root"`
	CreatedAt time.Time     `json:"createdAt"`
	Graph     *graph.Result `json:"graph"`
	Stats     *stats.Result `json:"stats"`

	// Cached is set when the analysis was served from a cache.
	Cached bool `json:"-"`
}

// Engine runs the phases of one analysis. An Engine is not safe for
// concurrent use; create one per analysis.
type Engine struct {
	cfg     config.Config
	logger  *log.Logger
	runID   string
	scanner *scan.Scanner

	dataset *scan.Dataset
	stats   *stats.Result
	graph   *graph.Result
}

// New creates an engine for root. The root must be an existing directory.
// A nil logger discards output.
func New(root string, cfg config.Config, logger *log.Logger) (*Engine, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	cfg = cfg.WithDefaults()
	runID := uuid.NewString()
	logger = logger.With("run", runID[:8])

	scanner, err := scan.New(root, scan.Options{
		Ignore:  cfg.Scan.Ignore,
		Workers: cfg.Scan.Workers,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger, runID: runID, scanner: scanner}, nil
}

// Root returns the absolute project root.
func (e *Engine) Root() string { return e.scanner.Root() }

// RunID returns the id logged with every message of this analysis.
func (e *Engine) RunID() string { return e.runID }

// Scan runs the source scanner. A repeated Scan discards the results of
// later phases.
func (e *Engine) Scan(ctx context.Context) (*scan.Dataset, error) {
	done := e.phase(ctx, observability.PhaseScan)
	ds, err := e.scanner.Scan(ctx)
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(ds.Names()), nil)

	e.dataset, e.stats, e.graph = ds, nil, nil
	e.logger.Info("scanned project",
		"manifests", len(ds.Packages),
		"workspaces", len(ds.Workspaces),
		"installed", len(ds.Installed))
	return ds, nil
}

// ComputeStats runs the stats phase over the scanned dataset.
func (e *Engine) ComputeStats(ctx context.Context) (*stats.Result, error) {
	if e.dataset == nil {
		return nil, errors.Precondition("stats requested before scan")
	}
	done := e.phase(ctx, observability.PhaseStats)
	st, err := stats.Compute(ctx, e.dataset, stats.Options{TopN: e.cfg.Scan.TopN, Logger: e.logger})
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(st.Packages), nil)

	e.stats, e.graph = st, nil
	e.logger.Info("computed stats",
		"packages", st.Project.TotalPackages,
		"size", st.Project.TotalSize,
		"missing", st.Project.Missing)
	return st, nil
}

// Assemble builds the graph from the scanned dataset and computed stats.
func (e *Engine) Assemble(ctx context.Context) (*graph.Result, error) {
	if e.dataset == nil {
		return nil, errors.Precondition("graph requested before scan")
	}
	if e.stats == nil {
		return nil, errors.Precondition("graph requested before stats")
	}
	done := e.phase(ctx, observability.PhaseAssemble)
	g, err := graph.Assemble(ctx, e.dataset, e.stats, e.cfg.GraphLimits())
	if err != nil {
		done(0, err)
		return nil, err
	}
	done(len(g.Nodes), nil)

	e.graph = g
	e.logger.Info("assembled graph",
		"nodes", g.Stats.TotalNodes,
		"links", g.Stats.TotalLinks,
		"max_level", g.Stats.MaxLevel)
	return g, nil
}

// Run performs all phases.
func (e *Engine) Run(ctx context.Context) (*Analysis, error) {
	if _, err := e.Scan(ctx); err != nil {
		return nil, err
	}
	st, err := e.ComputeStats(ctx)
	if err != nil {
		return nil, err
	}
	g, err := e.Assemble(ctx)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		RunID:     e.runID,
		Root:      e.Root(),
		CreatedAt: time.Now().UTC(),
		Graph:     g,
		Stats:     st,
	}, nil
}

// phase fires the start hook and returns the completion callback.
func (e *Engine) phase(ctx context.Context, p observability.Phase) func(items int, err error) {
	start := time.Now()
	observability.Analysis().OnPhaseStart(ctx, p)
	e.logger.Debug("phase started", "phase", p)
	return func(items int, err error) {
		d := time.Since(start)
		observability.Analysis().OnPhaseComplete(ctx, p, items, d, err)
		if err != nil {
			e.logger.Debug("phase failed", "phase", p, "duration", d, "err", err)
			return
		}
		e.logger.Debug("phase finished", "phase", p, "items", items, "duration", d)
	}
}
