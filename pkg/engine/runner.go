package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/observability"
	"github.com/matzehuels/depscope/pkg/scan"
)

// Request describes one analysis.
type Request struct {
	Root    string
	Config  config.Config
	Refresh bool // skip the cache lookup; the fresh result is still stored
}

// Runner executes analyses with caching. It holds no per-analysis state, so
// one Runner can serve many goroutines.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	group singleflight.Group
}

// NewRunner creates a runner. A nil cache disables caching, a nil keyer
// uses the DefaultKeyer and a nil logger discards output.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Cache: c, Keyer: keyer, Logger: logger}
}

// Analyze returns the analysis for req, from the cache when possible.
// Concurrent calls with the same key share a single run; its context is
// the one of the first caller.
func (r *Runner) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	abs, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", req.Root)
	}
	cfg := req.Config.WithDefaults()
	key, err := r.key(ctx, abs, cfg)
	if err != nil {
		return nil, err
	}

	flight := key
	if req.Refresh {
		flight += "|refresh"
	}
	v, err, shared := r.group.Do(flight, func() (any, error) {
		return r.analyze(ctx, abs, cfg, key, req.Refresh)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.Logger.Debug("joined in-flight analysis", "root", abs)
	}
	return v.(*Analysis), nil
}

func (r *Runner) analyze(ctx context.Context, root string, cfg config.Config, key string, refresh bool) (*Analysis, error) {
	backend := cache.Backend(r.Cache)

	if !refresh {
		if an, ok := r.lookup(ctx, key, cfg, backend); ok {
			r.Logger.Info("using cached analysis", "root", root, "run", an.RunID, "created", an.CreatedAt.Format(time.RFC3339))
			return an, nil
		}
		observability.Cache().OnCacheMiss(ctx, backend)
	}

	e, err := New(root, cfg, r.Logger)
	if err != nil {
		return nil, err
	}
	an, err := e.Run(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(an)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := r.Cache.Set(ctx, key, data, cfg.Cache.TTL); err != nil {
		r.Logger.Warn("cache write failed", "backend", backend, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, backend, len(data))
	}
	return an, nil
}

// lookup returns a cached analysis that still satisfies the configured
// limits. Unreadable entries are dropped.
func (r *Runner) lookup(ctx context.Context, key string, cfg config.Config, backend string) (*Analysis, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "backend", backend, "err", err)
		return nil, false
	}
	if !hit {
		return nil, false
	}

	var an Analysis
	if err := json.Unmarshal(data, &an); err != nil || an.Graph == nil || an.Stats == nil {
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	if err := an.Graph.Validate(cfg.GraphLimits()); err != nil {
		_ = r.Cache.Delete(ctx, key)
		return nil, false
	}
	an.Cached = true
	observability.Cache().OnCacheHit(ctx, backend)
	return &an, true
}

// Close releases the cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// key derives the cache key for root from cfg and a fingerprint of the
// sources currently on disk.
func (r *Runner) key(ctx context.Context, root string, cfg config.Config) (string, error) {
	s, err := scan.New(root, scan.Options{Ignore: cfg.Scan.Ignore})
	if err != nil {
		return "", err
	}
	sources, err := s.Fingerprint(ctx)
	if err != nil {
		return "", err
	}
	return r.Keyer.AnalysisKey(root, keyOpts(cfg, sources)), nil
}

func keyOpts(cfg config.Config, sources string) cache.AnalysisKeyOpts {
	l := cfg.GraphLimits()
	return cache.AnalysisKeyOpts{
		MaxDepth:        l.MaxDepth,
		MaxNodes:        l.MaxNodes,
		MaxNodesPerRoot: l.MaxNodesPerRoot,
		MaxDirectDeps:   l.MaxDirectDeps,
		Ignore:          cfg.Scan.Ignore,
		Sources:         sources,
	}
}
