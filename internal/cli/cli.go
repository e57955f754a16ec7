// Package cli implements the depscope command-line interface.
//
// Commands:
//   - analyze: scan a project and write the graph JSON
//   - stats: print package and project statistics
//   - export: write the graph as Graphviz DOT or SVG
//   - serve: run the HTTP API for a project
//   - cache: inspect or clear the local result cache
//
// Every analysis command reads depscope.toml from the project root (or
// --config) and lets flags override it. The logger is created by main and
// travels through the command context; --verbose switches it to debug.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/buildinfo"
	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/config"
	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is used for the cache directory and display.
	appName = "depscope"

	// cacheSchema versions cache keys; bump it when the analysis JSON changes.
	cacheSchema = "v1:"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
}

// New creates a CLI whose logger writes to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "depscope maps the dependencies of JavaScript projects",
		Long:         `depscope scans a JavaScript project or monorepo (package.json manifests, lock files and installed node_modules) and builds a bounded, size-annotated dependency graph.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "configuration file (default: <path>/depscope.toml)")

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.exportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig reads the configuration for root and applies flag overrides.
func (c *CLI) loadConfig(root string, limits *limitFlags, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(c.configPath, root)
	if err != nil {
		return config.Config{}, err
	}
	if limits != nil {
		limits.apply(cmd, &cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if cfg.Path != "" {
		loggerFromContext(cmd.Context()).Debug("loaded config", "path", cfg.Path)
	}
	return cfg, nil
}

// projectRoot returns the first positional argument or ".".
func projectRoot(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a caching runner with the configured backend.
func newRunner(ctx context.Context, cfg config.Config, noCache bool, logger *log.Logger) (*engine.Runner, error) {
	c, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	logger.Debug("cache ready", "backend", cache.Backend(c))
	return engine.NewRunner(c, cache.NewScopedKeyer(nil, cacheSchema), logger), nil
}

func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{URL: cfg.Cache.RedisURL})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "connect to redis cache")
		}
		return rc, nil
	default:
		dir, err := resolveCacheDir(cfg)
		if err != nil {
			return cache.NewNullCache(), nil
		}
		return cache.NewFileCache(dir)
	}
}

// =============================================================================
// Paths
// =============================================================================

// resolveCacheDir returns the configured cache directory or the default.
func resolveCacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the XDG cache directory (~/.cache/depscope/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
