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
	"sort"

	"github.com/fatih/color"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"github.com/trly/sysdmap/internal/artifact"
	"github.com/trly/sysdmap/internal/model"
)

// StatsOptions holds stats command options.
type StatsOptions struct {
	MSPath string
	DMPath string
}

// StatsCommand represents the stats command for sysdmap CLI.
type StatsCommand struct{}

// GetCobraCommand returns the cobra command for summarizing a built snapshot.
func (c *StatsCommand) GetCobraCommand() *cobra.Command {
	var opts StatsOptions

	statsCmd := &cobra.Command{
		Use:          "stats",
		Short:        "Print a summary table of a previously built master structure and/or dependency map",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.Run(opts)
		},
	}

	statsCmd.Flags().StringVar(&opts.MSPath, "ms", "", "Path to a master-structure JSON file")
	statsCmd.Flags().StringVar(&opts.DMPath, "dm", "", "Path to a dependency-map JSON file")

	return statsCmd
}

// Run executes the stats command with the given options.
func (c *StatsCommand) Run(opts StatsOptions) error {
	if opts.MSPath == "" && opts.DMPath == "" {
		return fmt.Errorf("at least one of --ms or --dm is required")
	}

	if opts.MSPath != "" {
		ms, err := artifact.ReadMS(opts.MSPath)
		if err != nil {
			return fmt.Errorf("reading master structure: %w", err)
		}
		printMSStats(ms)
	}

	if opts.DMPath != "" {
		dm, err := artifact.ReadDM(opts.DMPath)
		if err != nil {
			return fmt.Errorf("reading dependency map: %w", err)
		}
		printDMStats(dm)
	}

	return nil
}

func printMSStats(ms *model.MS) {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	byType := make(map[string]int)
	masked, notFound, warnings := 0, 0, 0
	for _, u := range ms.Units {
		byType[u.Type]++
		if u.Masked {
			masked++
		}
		if u.NotFound {
			notFound++
		}
		warnings += len(u.Warnings)
	}

	fmt.Println("master structure:", ms.Meta.RootPath)
	tbl := table.New("Unit Type", "Count")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	for _, typ := range sortedTypeKeys(byType) {
		tbl.AddRow(typ, byType[typ])
	}
	tbl.Print()

	fmt.Printf("masked: %d, not found: %d, warnings: %d\n\n", masked, notFound, warnings)
}

func printDMStats(dm *model.DM) {
	headerFmt := color.New(color.FgGreen, color.Underline).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()

	cycles := countBackEdgeCycles(dm)

	fmt.Println("dependency map: root", dm.Root)
	tbl := table.New("Metric", "Value")
	tbl.WithHeaderFormatter(headerFmt).WithFirstColumnFormatter(columnFmt)
	tbl.AddRow("nodes", len(dm.Nodes))
	tbl.AddRow("depth limit", dm.DepthLimit)
	tbl.AddRow("cycles", cycles)
	tbl.Print()
}

// countBackEdgeCycles counts forward edges whose target was reached at the
// same or a smaller BFS depth than their source. Every cycle among reached
// nodes contains at least one such edge, but such an edge does not by
// itself close a cycle, so the result is an indicator, not an exact cycle
// count.
func countBackEdgeCycles(dm *model.DM) int {
	depthOf := make(map[string]int, len(dm.ReachedVia)+1)
	depthOf[dm.Root] = 0
	for _, rv := range dm.ReachedVia {
		depthOf[rv.Target] = rv.Depth
	}

	count := 0
	for name, node := range dm.Nodes {
		d, ok := depthOf[name]
		if !ok {
			continue
		}
		for _, e := range node.Forward {
			if td, ok := depthOf[e.Target]; ok && td <= d {
				count++
			}
		}
	}
	return count
}

func sortedTypeKeys(byType map[string]int) []string {
	keys := make([]string, 0, len(byType))
	for k := range byType {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
