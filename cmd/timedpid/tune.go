package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/tune"
	"github.com/san-kum/timedpid/internal/viz"
)

var (
	kpGrid    string
	kiGrid    string
	kdGrid    string
	metric    string
	workers   int
	top       int
	writeBest string
)

func addTuneFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&kpGrid, "kp-grid", "", "kp values: list a,b,c or range start:stop:step")
	f.StringVar(&kiGrid, "ki-grid", "", "ki values: list a,b,c or range start:stop:step")
	f.StringVar(&kdGrid, "kd-grid", "", "kd values: list a,b,c or range start:stop:step")
	f.StringVar(&metric, "metric", tune.DefaultMetric, "metric to minimise")
	f.IntVar(&workers, "workers", 0, "parallel runs (default GOMAXPROCS)")
	f.IntVar(&top, "top", 10, "candidates to print")
	f.StringVar(&writeBest, "write", "", "write the best config to this yaml file")
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	if cfg.OpenLoop() {
		return fmt.Errorf("tune needs a pid controller")
	}

	var grid tune.Grid
	for _, axis := range []struct {
		spec string
		dst  *[]float64
	}{
		{kpGrid, &grid.Kp},
		{kiGrid, &grid.Ki},
		{kdGrid, &grid.Kd},
	} {
		vals, err := tune.ParseAxis(axis.spec)
		if err != nil {
			return err
		}
		*axis.dst = vals
	}

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "tuning %s over %d candidates by %s...\n", cfg.Plant, grid.Size(), metric)
	start := time.Now()

	report, err := tune.NewGridSearch(grid, metric, workers).Search(ctx, cfg)
	if err != nil {
		return err
	}
	slog.Info("tuning finished", "candidates", len(report.Candidates), "elapsed", time.Since(start))

	ranked := report.Ranked()
	if failed := len(report.Candidates) - len(ranked); failed > 0 {
		fmt.Fprintf(out, "%d candidates failed or never settled\n", failed)
		for _, c := range report.Candidates {
			if !c.Viable() {
				slog.Debug("candidate rejected", "gains", c.Gains, "err", c.Err)
			}
		}
	}

	scores := make([]float64, len(ranked))
	for i, c := range ranked {
		scores[i] = c.Score
	}
	fmt.Fprintln(out, viz.Subtle.Render("score spread ")+viz.Sparkline(scores, 40, false))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "RANK\tKP\tKI\tKD\t%s\n", report.Metric)
	for i, c := range ranked {
		if i >= top {
			break
		}
		fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%.6f\n", i+1, c.Gains.Kp, c.Gains.Ki, c.Gains.Kd, c.Score)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	best := report.Best.Gains
	fmt.Fprintf(out, "\nbest: kp=%g ki=%g kd=%g\n", best.Kp, best.Ki, best.Kd)

	if writeBest != "" {
		tuned := cfg.Clone()
		tuned.Gains = best
		if err := config.Save(writeBest, tuned); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %s\n", writeBest)
	}
	return nil
}
