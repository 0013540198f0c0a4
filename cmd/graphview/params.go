package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/engine"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/metrics"
)

var (
	paramsCmd = &cobra.Command{
		Use:   "params",
		Short: "Show or change the persisted simulation parameters",
	}
	paramsShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective simulation parameters for the workspace",
		Args:  cobra.NoArgs,
		RunE:  runParamsShow,
	}
	paramsSetCmd = &cobra.Command{
		Use:   "set <name> <value>",
		Short: "Persist one simulation parameter",
		Long:  "Names: linkDistance, chargeStrength, collisionRadius, clusterTightness.",
		Args:  cobra.ExactArgs(2),
		RunE:  runParamsSet,
	}
	paramsResetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Drop stored overrides and return to the configured defaults",
		Args:  cobra.NoArgs,
		RunE:  runParamsReset,
	}
)

func init() {
	paramsCmd.AddCommand(paramsShowCmd, paramsSetCmd, paramsResetCmd)
}

// withParamsEngine opens an engine over the preference store only; parameter
// commands never fetch a graph.
func withParamsEngine(cmd *cobra.Command, fn func(*engine.Engine) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closer, err := newLogger(cfg, "", cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	empty := backend.NewMemory(graph.Snapshot{})
	e, err := engine.New(empty, empty, store, engineOptions(cfg, logger, metrics.NewRegistry())...)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.LoadPreferences(ctx); err != nil {
		return fmt.Errorf("load preferences: %w", err)
	}
	return fn(e)
}

func runParamsShow(cmd *cobra.Command, _ []string) error {
	return withParamsEngine(cmd, func(e *engine.Engine) error {
		return printParams(cmd.OutOrStdout(), e.Parameters())
	})
}

func runParamsSet(cmd *cobra.Command, args []string) error {
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[1], err)
	}
	return withParamsEngine(cmd, func(e *engine.Engine) error {
		if err := e.SetParameter(args[0], value); err != nil {
			return err
		}
		e.FlushPreferences()
		return printParams(cmd.OutOrStdout(), e.Parameters())
	})
}

func runParamsReset(cmd *cobra.Command, _ []string) error {
	return withParamsEngine(cmd, func(e *engine.Engine) error {
		e.ResetParameters()
		e.FlushPreferences()
		return printParams(cmd.OutOrStdout(), e.Parameters())
	})
}

func printParams(w io.Writer, p graph.SimulationParameters) error {
	defaults := graph.DefaultSimulationParameters()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tVALUE\tDEFAULT")
	for _, name := range graph.ParameterNames() {
		v, _ := p.Get(name)
		d, _ := defaults.Get(name)
		fmt.Fprintf(tw, "%s\t%g\t%g\n", name, v, d)
	}
	return tw.Flush()
}
