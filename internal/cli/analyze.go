package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/graph"
)

type analyzeOpts struct {
	output  string
	pretty  bool
	refresh bool
	noCache bool
	limits  limitFlags
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Scan a project and write its dependency graph as JSON",
		Long: `Scan a project and write its dependency graph as JSON.

The project at path (default: the current directory) is scanned for
package.json manifests, yarn/pnpm/npm lock files and installed node_modules.
Every declared package is expanded into a bounded tree of dependencies.

The result has the shape {nodes, links, packages, workspaces, stats} and is
cached between runs; use --refresh to recompute or --no-cache to bypass the
cache entirely.`,
		Example: `  depscope analyze
  depscope analyze ./monorepo -o graph.json --pretty
  depscope analyze --max-depth 5 --max-nodes 5000`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd, projectRoot(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	opts.limits.register(cmd)

	return cmd
}

func (c *CLI) runAnalyze(cmd *cobra.Command, root string, opts analyzeOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(root, &opts.limits, cmd)
	if err != nil {
		return err
	}
	runner, err := newRunner(ctx, cfg, opts.noCache, logger)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	st := newStatus(root)
	detach := st.attach()
	st.Start(ctx)
	an, err := runner.Analyze(ctx, engine.Request{Root: root, Config: cfg, Refresh: opts.refresh})
	st.Stop()
	detach()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Analyzed %s", an.Root))

	if opts.output == "" {
		return graph.Write(an.Graph, cmd.OutOrStdout(), opts.pretty)
	}

	var buf bytes.Buffer
	if err := graph.Write(an.Graph, &buf, opts.pretty); err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}

	printSuccess("Graph written")
	printFile(opts.output)
	printSummary(an.Graph.Stats, an.Cached, st.Phases())
	return nil
}
