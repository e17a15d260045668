package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/pid"
)

var (
	computeMode   string
	computeStrict bool
	computeDt     float64
	computeKp     float64
	computeKi     float64
	computeKd     float64
	computeMin    float64
	computeMax    float64
)

func addComputeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&computeMode, "mode", string(control.ModeUnit), "command variant (unit, step, auto)")
	f.BoolVar(&computeStrict, "strict", false, "reject zero or negative time steps")
	f.Float64Var(&computeDt, "dt", 1, "time step when a line has none (step mode)")
	f.Float64Var(&computeKp, "kp", 1, "proportional gain")
	f.Float64Var(&computeKi, "ki", 0, "integral gain")
	f.Float64Var(&computeKd, "kd", 0, "derivative gain")
	f.Float64Var(&computeMin, "cmd-min", 0, "lower command bound")
	f.Float64Var(&computeMax, "cmd-max", 0, "upper command bound")
}

func computeCommands(cmd *cobra.Command, args []string) error {
	m, err := control.ParseMode(computeMode)
	if err != nil {
		return err
	}

	c := pid.New(computeKp, computeKi, computeKd)
	if cmd.Flags().Changed("cmd-min") || cmd.Flags().Changed("cmd-max") {
		c.SetCmdRange(computeMin, computeMax)
	}
	return computeStream(cmd.InOrStdin(), cmd.OutOrStdout(), c, m, computeDt, computeStrict)
}

// computeStream reads "setpoint pv [dt]" per line and writes one command per
// line. Blank lines and lines starting with # are skipped. A dt field is only
// accepted in step mode; in auto mode the controller's own clock measures the
// time between lines.
func computeStream(r io.Reader, w io.Writer, c *pid.Controller, m control.Mode, defaultDt float64, strict bool) error {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 || len(fields) > 3 {
			return fmt.Errorf("line %d: want \"setpoint pv [dt]\", got %q", line, text)
		}
		if len(fields) == 3 && m != control.ModeStep {
			return fmt.Errorf("line %d: dt is only read in step mode, got %q", line, text)
		}
		vals := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return fmt.Errorf("line %d: %w", line, err)
			}
			vals[i] = v
		}
		sp, pv := vals[0], vals[1]
		dt := defaultDt
		if len(vals) == 3 {
			dt = vals[2]
		}

		var (
			u   float64
			err error
		)
		switch {
		case m == control.ModeUnit:
			u = c.Cmd(sp, pv)
		case m == control.ModeStep && strict:
			u, err = c.CmdStepChecked(sp, pv, dt)
		case m == control.ModeStep:
			u = c.CmdStep(sp, pv, dt)
		case strict:
			u, err = c.CmdAutoStepChecked(sp, pv)
		default:
			u = c.CmdAutoStep(sp, pv)
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		if _, err := fmt.Fprintln(bw, strconv.FormatFloat(u, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return sc.Err()
}
