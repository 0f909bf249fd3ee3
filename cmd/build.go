// Package cmd provides the command line interface for sysdmap
/*
Copyright © 2025 Travis Lyons travis.lyons@gmail.com

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trly/sysdmap/internal/config"
	"github.com/trly/sysdmap/internal/core"
	"github.com/trly/sysdmap/internal/enrich"
	"github.com/trly/sysdmap/internal/history"
	"github.com/trly/sysdmap/internal/log"
)

// BuildOptions holds build command options.
type BuildOptions struct {
	Action       string
	RootPath     string
	MSPath       string
	TargetUnit   string
	DepthLimit   int
	Force        bool
	OutputPrefix string
	HistoryDB    string
	NoHistory    bool
}

// BuildCommand represents the build command for sysdmap CLI.
type BuildCommand struct{}

// GetCobraCommand returns the cobra command for building snapshots.
func (c *BuildCommand) GetCobraCommand() *cobra.Command {
	var opts BuildOptions

	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a master structure and/or dependency map for a unit tree",
		Long: `Build assembles the master structure of every unit reachable under a
filesystem root (build_master), resolves the transitive dependency closure
of a target unit from an existing master structure (build_deps), or does
both in one pass (build_both, the default).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Run(cmd, opts)
		},
	}

	buildCmd.Flags().StringVar(&opts.Action, "action", string(config.ActionBuildBoth), "build_master, build_deps, or build_both")
	buildCmd.Flags().StringVar(&opts.RootPath, "root", "", "Filesystem root to scan (required for build_master/build_both)")
	buildCmd.Flags().StringVar(&opts.MSPath, "ms", "", "Path to an existing master-structure JSON file (required for build_deps)")
	buildCmd.Flags().StringVar(&opts.TargetUnit, "target", config.DefaultTargetUnit, "Root unit for dependency resolution")
	buildCmd.Flags().IntVar(&opts.DepthLimit, "depth-limit", config.DefaultDepthLimit, "Maximum BFS depth from the target unit (0 = unbounded)")
	buildCmd.Flags().BoolVar(&opts.Force, "force", config.DefaultForceOverwrite, "Overwrite existing output artifacts")
	buildCmd.Flags().StringVar(&opts.OutputPrefix, "output-prefix", config.DefaultOutputPrefix, "Prefix for the _ms.json/_dm.json output files")
	buildCmd.Flags().StringVar(&opts.HistoryDB, "history-db", config.DefaultHistoryDBPath, "Path to the run-history sqlite database")
	buildCmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "Skip recording this run in the history database")

	return buildCmd
}

// Run executes the build command with the given options.
func (c *BuildCommand) Run(cmd *cobra.Command, opts BuildOptions) error {
	settings := &config.Settings{
		Action:         config.Action(opts.Action),
		RootPath:       opts.RootPath,
		MSPath:         opts.MSPath,
		TargetUnit:     opts.TargetUnit,
		DepthLimit:     opts.DepthLimit,
		ForceOverwrite: opts.Force,
		OutputPrefix:   opts.OutputPrefix,
		Verbose:        verbose,
		HistoryDBPath:  opts.HistoryDB,
	}

	var hist *history.Store
	if !opts.NoHistory {
		store, err := history.Open(settings.HistoryDBPath)
		if err != nil {
			log.GetLogger().Warn("continuing without run history", "error", err)
		} else {
			hist = store
			defer hist.Close()
		}
	}

	res, err := core.Run(cmd.Context(), settings, enrich.NewRegistry(), hist, nil)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if res.MS != nil {
		fmt.Printf("master structure: %d units, %d warnings\n", len(res.MS.Units), len(res.Warnings))
	}
	if res.DM != nil {
		fmt.Printf("dependency map: root %s, %d nodes\n", res.DM.Root, len(res.DM.Nodes))
	}
	return nil
}
