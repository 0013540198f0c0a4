// Command graphview shows a workspace's knowledge graph as an interactive
// force-directed layout in the terminal, exports layouts as PNG and manages
// the persisted simulation parameters.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "graphview",
		Short: "Explore and edit a knowledge graph as a force-directed layout",
		Long: `graphview fetches decisions, progress items, patterns and custom data
from a workspace backend (or a snapshot file) and lays them out with a
force simulation. Links between items can be created, edited and deleted
in place; node positions and layout parameters persist per workspace.`,
		SilenceUsage: true,
	}

	configPath string
	workspace  string
	snapFile   string
	demoNodes  int
	demoSeed   uint64
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace id (overrides config and GRAPHVIEW_WORKSPACE)")
	rootCmd.PersistentFlags().StringVarP(&snapFile, "file", "f", "", "Read the graph from a snapshot JSON file instead of the backend")
	rootCmd.PersistentFlags().IntVar(&demoNodes, "demo", 0, "Use a generated graph with this many nodes")
	rootCmd.PersistentFlags().Uint64Var(&demoSeed, "seed", 1, "Seed for --demo graphs and initial placement")

	rootCmd.AddCommand(viewCmd, snapshotCmd, paramsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
