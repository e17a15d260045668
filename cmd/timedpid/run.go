package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/experiment"
	"github.com/san-kum/timedpid/internal/export"
	"github.com/san-kum/timedpid/internal/storage"
	"github.com/san-kum/timedpid/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "running %s (%s mode)...\n", cfg.Plant, cfg.Mode)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		slog.Error("run failed", "plant", cfg.Plant, "err", err)
		return err
	}
	elapsed := time.Since(start)
	slog.Info("run finished", "plant", cfg.Plant, "steps", len(result.Controls), "elapsed", elapsed)

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "completed in %v\n", elapsed)
	fmt.Fprintf(out, "run id: %s\n", runID)
	fmt.Fprintf(out, "steps: %d\n", len(result.Controls))
	fmt.Fprintf(out, "final pv: %.6f\n", result.Final())
	printMetrics(out, result.Metrics)

	if showPlot {
		fmt.Fprintln(out)
		printResponse(out, export.FromResult(runID, result))
	}
	return nil
}

func printMetrics(w io.Writer, metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "\nmetrics:")
	for _, name := range names {
		fmt.Fprintln(w, "  "+viz.Metric(name, fmt.Sprintf("%.6f", metrics[name])))
	}
}

func printResponse(w io.Writer, tr export.Trace) {
	fmt.Fprintln(w, viz.ResponseChart(tr.Setpoints, tr.Outputs, viz.ChartWidth, viz.ChartHeight, "setpoint (red) / pv (green) vs time"))
	fmt.Fprintln(w)
	if chart := viz.CommandChart(tr.Commands, viz.ChartWidth, 6, "command vs time"); chart != "" {
		fmt.Fprintln(w, chart)
	}
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tMODE\tTIME\tDURATION\tDT\tGAINS\tIAE")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%g/%g/%g\t%.4f\n",
			run.ID,
			run.Plant,
			run.Mode,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Gains.Kp, run.Gains.Ki, run.Gains.Kd,
			run.Metrics["iae"],
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *storage.Series, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return nil, nil, err
	}
	if series.Len() == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, series, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run: %s\n", meta.ID)
	fmt.Fprintf(out, "plant: %s (%s mode)\n", meta.Plant, meta.Mode)
	fmt.Fprintf(out, "samples: %d\n\n", series.Len())

	printResponse(out, export.FromSeries(meta.ID, series))
	return nil
}

// output opens outPath, or returns stdout when it is empty.
func output(cmd *cobra.Command) (io.Writer, func() error, error) {
	if outPath == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := output(cmd)
	if err != nil {
		return err
	}
	if err := storage.ExportJSON(w, *meta, series.Result(meta.Metrics)); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}

	w, closeFn, err := output(cmd)
	if err != nil {
		return err
	}
	if err := storage.WriteCSV(w, series.Result(meta.Metrics)); err != nil {
		closeFn()
		return err
	}
	return closeFn()
}

func exportImage(cmd *cobra.Command, args []string) error {
	meta, series, err := loadRun(args[0])
	if err != nil {
		return err
	}

	path := outPath
	if path == "" {
		path = meta.ID + ".png"
	}
	title := fmt.Sprintf("%s  kp=%g ki=%g kd=%g", meta.Plant, meta.Gains.Kp, meta.Gains.Ki, meta.Gains.Kd)
	if err := export.SaveImage(path, export.FromSeries(title, series)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
	return nil
}

// runContext is cancelled on interrupt.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}
