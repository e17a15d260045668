// Package tune searches pid gains for the lowest value of a run metric.
package tune

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/experiment"
	"github.com/san-kum/timedpid/internal/sim"
	"github.com/san-kum/timedpid/pid"
)

const DefaultMetric = "iae"

// MaxAxisPoints bounds how many values a start:stop:step axis may expand to.
const MaxAxisPoints = 10_000

var (
	ErrEmptyGrid   = errors.New("tune: empty grid")
	ErrNoViable    = errors.New("tune: no candidate finished with a finite score")
	ErrBadGridSpec = errors.New("tune: bad grid spec")
)

// Grid lists the values tried for each gain. An empty axis keeps the base
// config's gain.
type Grid struct {
	Kp []float64
	Ki []float64
	Kd []float64
}

func (g Grid) Size() int {
	n := 1
	for _, axis := range [][]float64{g.Kp, g.Ki, g.Kd} {
		if len(axis) > 0 {
			n *= len(axis)
		}
	}
	return n
}

// Candidates expands the grid around base.
func (g Grid) Candidates(base pid.Gains) []pid.Gains {
	axis := func(vals []float64, fallback float64) []float64 {
		if len(vals) == 0 {
			return []float64{fallback}
		}
		return vals
	}

	out := make([]pid.Gains, 0, g.Size())
	for _, kp := range axis(g.Kp, base.Kp) {
		for _, ki := range axis(g.Ki, base.Ki) {
			for _, kd := range axis(g.Kd, base.Kd) {
				out = append(out, pid.Gains{Kp: kp, Ki: ki, Kd: kd})
			}
		}
	}
	return out
}

type Candidate struct {
	Gains pid.Gains
	Score float64
	Err   error
}

func (c Candidate) Viable() bool {
	return c.Err == nil && !math.IsNaN(c.Score) && !math.IsInf(c.Score, 0)
}

type Report struct {
	Metric     string
	Best       Candidate
	Candidates []Candidate
}

// Ranked returns the viable candidates, best first.
func (r *Report) Ranked() []Candidate {
	ranked := make([]Candidate, 0, len(r.Candidates))
	for _, c := range r.Candidates {
		if c.Viable() {
			ranked = append(ranked, c)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})
	return ranked
}

type GridSearch struct {
	grid    Grid
	metric  string
	workers int
}

func NewGridSearch(grid Grid, metric string, workers int) *GridSearch {
	if metric == "" {
		metric = DefaultMetric
	}
	return &GridSearch{grid: grid, metric: metric, workers: workers}
}

// Search runs one simulation per candidate, concurrently, and keeps the one
// with the lowest metric. Failed runs and non-finite scores are recorded but
// never chosen. A negative settling time marks a run that never settled.
func (g *GridSearch) Search(ctx context.Context, base *config.Config) (*Report, error) {
	gains := g.grid.Candidates(base.Gains)
	if len(gains) == 0 {
		return nil, ErrEmptyGrid
	}

	jobs := make([]sim.Job, len(gains))
	for i, k := range gains {
		cfg := base.Clone()
		cfg.Gains = k
		jobs[i] = experiment.Job(cfg)
	}

	results, errs := sim.NewBatch(g.workers).Run(ctx, jobs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{Metric: g.metric, Candidates: make([]Candidate, len(gains))}
	for i, k := range gains {
		c := Candidate{Gains: k, Score: math.Inf(1), Err: errs[i]}
		if c.Err == nil {
			score, ok := results[i].Metrics[g.metric]
			switch {
			case !ok:
				c.Err = fmt.Errorf("tune: run has no metric %q", g.metric)
			case g.metric == "settling_time" && score < 0:
				c.Err = errors.New("tune: never settled")
			default:
				c.Score = score
			}
		}
		report.Candidates[i] = c
	}

	ranked := report.Ranked()
	if len(ranked) == 0 {
		return report, ErrNoViable
	}
	report.Best = ranked[0]
	return report, nil
}

// ParseAxis reads either a comma list ("0.1,0.5,1") or an inclusive
// range with a step ("0:2:0.5").
func ParseAxis(spec string) ([]float64, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, nil
	}

	if strings.Contains(spec, ":") {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: %q wants start:stop:step", ErrBadGridSpec, spec)
		}
		var nums [3]float64
		for i, p := range parts {
			v, err := parseValue(p)
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrBadGridSpec, spec, err)
			}
			nums[i] = v
		}
		start, stop, step := nums[0], nums[1], nums[2]
		if step <= 0 || stop < start {
			return nil, fmt.Errorf("%w: %q", ErrBadGridSpec, spec)
		}
		count := math.Floor((stop-start)/step+1e-9) + 1
		if count > MaxAxisPoints {
			return nil, fmt.Errorf("%w: %q expands to more than %d values", ErrBadGridSpec, spec, MaxAxisPoints)
		}
		vals := make([]float64, int(count))
		for i := range vals {
			vals[i] = start + float64(i)*step
		}
		return vals, nil
	}

	parts := strings.Split(spec, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := parseValue(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrBadGridSpec, spec, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func parseValue(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %v", v)
	}
	return v, nil
}
