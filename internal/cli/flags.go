package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/depscope/pkg/config"
)

// limitFlags are the graph limit overrides shared by analysis commands.
type limitFlags struct {
	maxDepth        int
	maxNodes        int
	maxNodesPerRoot int
	maxDirectDeps   int
	ignore          []string
}

func (f *limitFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.IntVar(&f.maxDepth, "max-depth", 0, "deepest dependency level expanded (default 3)")
	fs.IntVar(&f.maxNodes, "max-nodes", 0, "global node ceiling (default 2000)")
	fs.IntVar(&f.maxNodesPerRoot, "max-nodes-per-root", 0, "node ceiling per declared package (default 400)")
	fs.IntVar(&f.maxDirectDeps, "max-direct-deps", 0, "dependencies considered per node (default 500)")
	fs.StringSliceVar(&f.ignore, "ignore", nil, "extra directory names to skip while scanning")
}

// apply copies flags the user set onto cfg.
func (f *limitFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("max-depth") {
		cfg.Limits.MaxDepth = f.maxDepth
	}
	if fs.Changed("max-nodes") {
		cfg.Limits.MaxNodes = f.maxNodes
	}
	if fs.Changed("max-nodes-per-root") {
		cfg.Limits.MaxNodesPerRoot = f.maxNodesPerRoot
	}
	if fs.Changed("max-direct-deps") {
		cfg.Limits.MaxDirectDeps = f.maxDirectDeps
	}
	if fs.Changed("ignore") {
		cfg.Scan.Ignore = append(cfg.Scan.Ignore, f.ignore...)
	}
}
