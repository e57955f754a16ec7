package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/internal/metrics"
	"github.com/matzehuels/depscope/pkg/api"
)

type serveOpts struct {
	addr    string
	noCache bool
	limits  limitFlags
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve [path]",
		Short: "Serve the analysis of a project over HTTP",
		Long: `Serve the analysis of a project over HTTP.

Endpoints:
  GET /healthz            build info
  GET /api/graph          graph JSON (?refresh=1 to recompute)
  GET /api/stats          statistics JSON
  GET /api/export.dot     Graphviz DOT
  GET /api/export.svg     rendered SVG
  GET /metrics            Prometheus metrics

The server stops gracefully on SIGINT or SIGTERM.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, projectRoot(args), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :7878)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	opts.limits.register(cmd)

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, root string, opts serveOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(root, &opts.limits, cmd)
	if err != nil {
		return err
	}
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	runner, err := newRunner(ctx, cfg, opts.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	reg := metrics.New()
	reg.Install()

	srv := api.New(api.Options{
		Root:    root,
		Config:  cfg,
		Runner:  runner,
		Metrics: reg.Handler(),
		Logger:  logger,
	})
	printInfo("Serving %s on %s", StyleHighlight.Render(root), StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
	return srv.Serve(ctx)
}

// displayAddr turns ":7878" into "localhost:7878".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
