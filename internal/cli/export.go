package cli

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/export"
)

type exportOpts struct {
	format   string
	output   string
	detailed bool
	clusters bool
	refresh  bool
	noCache  bool
	limits   limitFlags
}

// exportCommand creates the export command.
func (c *CLI) exportCommand() *cobra.Command {
	var opts exportOpts

	cmd := &cobra.Command{
		Use:   "export [path]",
		Short: "Write the dependency graph as Graphviz DOT or SVG",
		Example: `  depscope export --format dot -o deps.dot
  depscope export ./monorepo --format svg --clusters -o deps.svg`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExport(cmd, projectRoot(args), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", export.FormatDOT, "output format: "+strings.Join(export.Formats, ", "))
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "include version and size in node labels")
	cmd.Flags().BoolVar(&opts.clusters, "clusters", false, "group nodes by workspace")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	opts.limits.register(cmd)

	return cmd
}

func (c *CLI) runExport(cmd *cobra.Command, root string, opts exportOpts) error {
	if !slices.Contains(export.Formats, opts.format) {
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q (want one of %s)", opts.format, strings.Join(export.Formats, ", "))
	}
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

	st := newStatus(root)
	detach := st.attach()
	st.Start(ctx)
	an, err := runner.Analyze(ctx, engine.Request{Root: root, Config: cfg, Refresh: opts.refresh})
	st.Stop()
	detach()
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	data, err := export.Render(ctx, an.Graph, opts.format, export.Options{Detailed: opts.detailed, Clusters: opts.clusters})
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Rendered %s", opts.format))

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Exported %s", strings.ToUpper(opts.format))
	printFile(opts.output)
	printSummary(an.Graph.Stats, an.Cached, st.Phases())
	return nil
}
