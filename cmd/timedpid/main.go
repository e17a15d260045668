package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/experiment"
	"github.com/san-kum/timedpid/internal/viz"
)

var (
	dataDir  string
	logLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "timedpid",
		Short:        "pid controller with timed, stepped and per-call commands",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".timedpid", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "simulate a closed loop and save the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addLoopFlags(runCmd)
	runCmd.Flags().BoolVar(&showPlot, "plot", false, "print the response after the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run response in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [run_id]",
		Short: "render run response to an image (png or svg by extension)",
		Args:  cobra.ExactArgs(1),
		RunE:  exportImage,
	}
	exportPNGCmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default <run_id>.png)")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			plants := experiment.ListPlants()
			if len(args) > 0 {
				plants = args
			}
			for _, plant := range plants {
				presets := config.ListPresets(plant)
				if len(presets) == 0 {
					fmt.Fprintf(out, "no presets for plant: %s\n", plant)
					continue
				}
				fmt.Fprintln(out, viz.TitleStyle.Render(plant))
				for _, p := range presets {
					fmt.Fprintf(out, "  %s\n", p)
				}
			}
			return nil
		},
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search pid gains",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneGains,
	}
	addLoopFlags(tuneCmd)
	addTuneFlags(tuneCmd)

	liveCmd := &cobra.Command{
		Use:   "live [plant]",
		Short: "run the loop live and tune it from the keyboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, args)
			if err != nil {
				return err
			}
			return viz.RunLive(cfg)
		},
	}
	addLoopFlags(liveCmd)

	computeCmd := &cobra.Command{
		Use:   "compute",
		Short: "read \"setpoint pv [dt]\" lines from stdin and print commands",
		Long:  "Reads one \"setpoint pv [dt]\" line per control period from stdin and prints one command per line.\nThe dt field is only accepted in step mode, where it overrides --dt for that line.",
		Args:  cobra.NoArgs,
		RunE:  computeCommands,
	}
	addComputeFlags(computeCmd)

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run and save every step of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [plant]",
		Short: "rerun the loop across values of a plant parameter",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSweep,
	}
	addLoopFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "", "plant parameter to vary")
	sweepCmd.Flags().StringVar(&sweepValues, "values", "", "values: list a,b,c or range start:stop:step")
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	_ = sweepCmd.MarkFlagRequired("param")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportPNGCmd, presetsCmd, tuneCmd, liveCmd, computeCmd, scenarioCmd, sweepCmd)
	return rootCmd
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("bad --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}
