package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/engine"
	"github.com/matzehuels/depscope/pkg/stats"
)

type statsOpts struct {
	json   bool
	limits limitFlags
}

// statsCommand creates the stats command.
func (c *CLI) statsCommand() *cobra.Command {
	var opts statsOpts

	cmd := &cobra.Command{
		Use:   "stats [path]",
		Short: "Print package and project statistics",
		Long: `Print package and project statistics.

Runs the scan and stats phases only: no graph is assembled, so graph limits
do not apply. Sizes are estimates of the footprint each package ships, not
exact disk usage.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStats(cmd, projectRoot(args), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the raw statistics as JSON")
	cmd.Flags().StringSliceVar(&opts.limits.ignore, "ignore", nil, "extra directory names to skip while scanning")

	return cmd
}

func (c *CLI) runStats(cmd *cobra.Command, root string, opts statsOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg, err := c.loadConfig(root, &opts.limits, cmd)
	if err != nil {
		return err
	}
	e, err := engine.New(root, cfg, logger)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	if _, err := e.Scan(ctx); err != nil {
		return err
	}
	st, err := e.ComputeStats(ctx)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Computed stats for %s", e.Root()))

	if opts.json {
		return writeJSON(cmd.OutOrStdout(), st)
	}
	fmt.Fprint(cmd.OutOrStdout(), renderStats(e.Root(), st))
	return nil
}

var (
	styleSection = lipgloss.NewStyle().Bold(true).Foreground(colorCyan).MarginTop(1)
	styleKey     = lipgloss.NewStyle().Foreground(colorGray).Width(16)
	styleRank    = lipgloss.NewStyle().Foreground(colorDim).Width(4).Align(lipgloss.Right)
	styleName    = lipgloss.NewStyle().Foreground(colorWhite).Width(36)
)

// renderStats formats project statistics for the terminal.
func renderStats(root string, st *stats.Result) string {
	p := st.Project
	var b strings.Builder

	b.WriteString(StyleTitle.Render(root) + "\n")
	kv := func(k, v string) {
		b.WriteString(styleKey.Render(k) + " " + StyleValue.Render(v) + "\n")
	}
	kv("packages", humanize.Comma(int64(p.TotalPackages)))
	kv("declared", humanize.Comma(int64(p.RootPackages)))
	kv("workspaces", humanize.Comma(int64(p.Workspaces)))
	kv("installed", humanize.Comma(int64(p.Installed)))
	kv("missing", humanize.Comma(int64(p.Missing)))
	kv("total size", humanize.Bytes(uint64(p.TotalSize)))

	if len(p.LevelDistribution) > 0 {
		b.WriteString(styleSection.Render("Levels") + "\n")
		levels := make([]int, 0, len(p.LevelDistribution))
		for l := range p.LevelDistribution {
			levels = append(levels, l)
		}
		slices.Sort(levels)
		for _, l := range levels {
			kv(fmt.Sprintf("level %d", l), humanize.Comma(int64(p.LevelDistribution[l])))
		}
	}

	ranked := func(title string, list []stats.RankedPackage, format func(int64) string) {
		if len(list) == 0 {
			return
		}
		b.WriteString(styleSection.Render(title) + "\n")
		for i, r := range list {
			b.WriteString(styleRank.Render(fmt.Sprintf("%d.", i+1)) + " " + styleName.Render(r.Name) + " " + StyleNumber.Render(format(r.Value)) + "\n")
		}
	}
	count := func(v int64) string { return humanize.Comma(v) }
	ranked("Largest", p.Largest, func(v int64) string { return humanize.Bytes(uint64(v)) })
	ranked("Most dependencies", p.MostDependencies, count)
	ranked("Most dependents", p.MostDependents, count)

	return b.String()
}
