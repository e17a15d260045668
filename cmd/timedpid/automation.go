package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/automation"
	"github.com/san-kum/timedpid/internal/storage"
	"github.com/san-kum/timedpid/internal/tune"
)

var (
	sweepParam  string
	sweepValues string
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := runContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "scenario %s: %d steps\n", sc.Name, len(sc.Steps))

	outcomes, runErr := automation.RunScenario(ctx, sc)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tRUN ID\tPLANT\tMODE\tFINAL PV\tIAE")
	for _, o := range outcomes {
		runID, err := st.Save(o.Config, o.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.4f\t%.4f\n", o.Name, runID, o.Config.Plant, o.Config.Mode, o.Result.Final(), o.Result.Metrics["iae"])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return err
	}
	values, err := tune.ParseAxis(sweepValues)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("--values is required")
	}

	ctx, stop := runContext(cmd)
	defer stop()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:    cfg,
		Param:   sweepParam,
		Values:  values,
		Workers: workers,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tFINAL PV\tIAE\tOVERSHOOT %%\tSETTLING\n", sweepParam)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(w, "%g\tfailed: %v\t\t\t\n", r.ParamValue, r.Err)
			continue
		}
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.2f\t%.2f\n",
			r.ParamValue, r.FinalPV, r.Metrics["iae"], r.Metrics["overshoot_pct"], r.Metrics["settling_time"])
	}
	return w.Flush()
}
