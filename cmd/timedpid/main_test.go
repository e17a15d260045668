package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/pid"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestComputeStream(t *testing.T) {
	tests := []struct {
		name  string
		mode  control.Mode
		gains pid.Gains
		input string
		want  string
	}{
		{"unit proportional", control.ModeUnit, pid.Gains{Kp: 2}, "10 4\n1 1\n", "12\n0\n"},
		{"unit integral accumulates", control.ModeUnit, pid.Gains{Ki: 1}, "1 0\n1 0\n", "1\n2\n"},
		{"step uses per-line dt", control.ModeStep, pid.Gains{Ki: 1}, "1 0 0.5\n1 0 0.25\n", "0.25\n0.5\n"},
		{"comments and blanks skipped", control.ModeUnit, pid.Gains{Kp: 1}, "# sp pv\n\n3 1\n", "2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pid.New(tt.gains.Kp, tt.gains.Ki, tt.gains.Kd)
			var out bytes.Buffer
			if err := computeStream(strings.NewReader(tt.input), &out, c, tt.mode, 1, false); err != nil {
				t.Fatal(err)
			}
			if out.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, out.String())
			}
		})
	}
}

func TestComputeStreamErrors(t *testing.T) {
	c := pid.New(1, 0, 1)
	err := computeStream(strings.NewReader("1 0 0\n"), &bytes.Buffer{}, c, control.ModeStep, 1, true)
	if !errors.Is(err, pid.ErrZeroTimeStep) {
		t.Errorf("expected ErrZeroTimeStep, got %v", err)
	}

	for _, bad := range []string{"1\n", "1 2 3 4\n", "a b\n", "1 0 0.5\n"} {
		if err := computeStream(strings.NewReader(bad), &bytes.Buffer{}, c, control.ModeUnit, 1, false); err == nil {
			t.Errorf("%q: expected error", bad)
		}
	}
	if err := computeStream(strings.NewReader("1 0 0.5\n"), &bytes.Buffer{}, c, control.ModeAuto, 1, false); err == nil {
		t.Error("expected auto mode to reject a dt field")
	}
}

func TestComputeStream_StrictRejectsNaNStep(t *testing.T) {
	c := pid.New(1, 1, 0)
	err := computeStream(strings.NewReader("1 0 0.5\n1 0 nan\n"), &bytes.Buffer{}, c, control.ModeStep, 1, true)
	if !errors.Is(err, pid.ErrNonFinite) {
		t.Fatalf("expected ErrNonFinite, got %v", err)
	}
	if c.ErrorIntegral() != 0.25 {
		t.Errorf("expected integral 0.25 after the rejected line, got %f", c.ErrorIntegral())
	}
}

func TestComputeCommandRange(t *testing.T) {
	out, err := execute(t, "100 0\n-100 0\n", "compute", "--kp", "1", "--cmd-min", "-5", "--cmd-max", "5")
	if err != nil {
		t.Fatal(err)
	}
	if out != "5\n-5\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestResolveConfigFlagsOverridePreset(t *testing.T) {
	root := newRootCmd()
	runCmd, _, err := root.Find([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if err := runCmd.ParseFlags([]string{"--preset", "reheat", "--kd", "0.3", "--mode", "unit", "--cmd-max", "8"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := resolveConfig(runCmd, []string{"heater"})
	if err != nil {
		t.Fatal(err)
	}
	want := config.GetPreset("heater", "reheat")
	if cfg.Gains.Kp != want.Gains.Kp || cfg.Gains.Kd != 0.3 {
		t.Errorf("unexpected gains %+v", cfg.Gains)
	}
	if cfg.Mode != "unit" {
		t.Errorf("expected unit mode, got %s", cfg.Mode)
	}
	if cfg.CmdRange.Min != want.CmdRange.Min || cfg.CmdRange.Max != 8 {
		t.Errorf("unexpected range %+v", cfg.CmdRange)
	}
	if cfg.Setpoint != want.Setpoint {
		t.Errorf("preset setpoint lost: %+v", cfg.Setpoint)
	}
}

func TestResolveConfigUnknownPreset(t *testing.T) {
	_, err := execute(t, "", "run", "heater", "--preset", "nope", "--data", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "unknown preset") {
		t.Errorf("expected unknown preset error, got %v", err)
	}
}

func TestRunListExport(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "", "run", "heater", "--time", "20", "--dt", "0.5", "--data", dir)
	if err != nil {
		t.Fatalf("run failed: %v\n%s", err, out)
	}
	m := regexp.MustCompile(`run id: (\S+)`).FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no run id in output:\n%s", out)
	}
	runID := m[1]

	out, err = execute(t, "", "list", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, runID) {
		t.Errorf("list does not show %s:\n%s", runID, out)
	}

	csvPath := filepath.Join(dir, "out.csv")
	if _, err := execute(t, "", "export-csv", runID, "--data", dir, "-o", csvPath); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 42 {
		t.Errorf("expected header plus 41 rows, got %d lines", lines)
	}

	out, err = execute(t, "", "export-json", runID, "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"plant": "heater"`) {
		t.Errorf("json export lacks plant:\n%.200s", out)
	}

	pngPath := filepath.Join(dir, "out.png")
	if _, err := execute(t, "", "export-png", runID, "--data", dir, "-o", pngPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(pngPath); err != nil {
		t.Errorf("png not written: %v", err)
	}
}

func TestPresetsCommand(t *testing.T) {
	out, err := execute(t, "", "presets", "motor")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "speed-limited") {
		t.Errorf("missing preset in output:\n%s", out)
	}
}

func TestTuneWritesBest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "best.yaml")
	out, err := execute(t, "", "tune", "heater", "--time", "60", "--dt", "0.5", "--kp-grid", "0,0.5", "--write", path)
	if err != nil {
		t.Fatalf("tune failed: %v\n%s", err, out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Gains.Kp != 0.5 {
		t.Errorf("expected best kp 0.5, got %f", cfg.Gains.Kp)
	}
}

func TestSweepCommand(t *testing.T) {
	out, err := execute(t, "", "sweep", "heater", "--time", "30", "--dt", "0.5", "--param", "loss", "--values", "0.01,0.04")
	if err != nil {
		t.Fatalf("sweep failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0.04") || !strings.Contains(out, "IAE") {
		t.Errorf("unexpected sweep output:\n%s", out)
	}
}

func TestScenarioCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scenario.yaml")
	yaml := "name: quick\nsteps:\n  - name: a\n    config: {duration: 2, mode: auto}\n  - name: b\n    config: {duration: 2, mode: unit}\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "", "scenario", path, "--data", dir)
	if err != nil {
		t.Fatalf("scenario failed: %v\n%s", err, out)
	}

	out, err = execute(t, "", "list", "--data", dir)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "heater_") != 2 {
		t.Errorf("expected two saved runs:\n%s", out)
	}
}
