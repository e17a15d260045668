package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/timedpid/internal/dynamo"
)

// Series is a run read back from CSV. Controls is one shorter than the other
// columns: no command is issued at the final sample.
type Series struct {
	Times     []float64
	States    []dynamo.State
	Controls  []dynamo.Control
	Setpoints []float64
	Outputs   []float64
}

func (s *Series) Len() int {
	return len(s.Times)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes one row per recorded sample with the columns
// time, x0..xn, u0..um, setpoint, pv.
func WriteCSV(w io.Writer, result *dynamo.Result) error {
	cw := csv.NewWriter(w)

	if len(result.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	numStates := len(result.States[0])
	numControls := 0
	if len(result.Controls) > 0 {
		numControls = len(result.Controls[0])
	}

	header := []string{"time"}
	for i := 0; i < numStates; i++ {
		header = append(header, fmt.Sprintf("x%d", i))
	}
	for i := 0; i < numControls; i++ {
		header = append(header, fmt.Sprintf("u%d", i))
	}
	header = append(header, "setpoint", "pv")

	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range result.States {
		row := make([]string, 0, len(header))
		row = append(row, formatFloat(result.Times[i]))
		for _, val := range result.States[i] {
			row = append(row, formatFloat(val))
		}
		for j := 0; j < numControls; j++ {
			if i < len(result.Controls) {
				row = append(row, formatFloat(result.Controls[i][j]))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, formatFloat(result.Setpoints[i]), formatFloat(result.Outputs[i]))

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ReadCSV parses the format written by WriteCSV.
func ReadCSV(r io.Reader) (*Series, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: read csv: %w", err)
	}

	series := &Series{}
	if len(records) < 2 {
		return series, nil
	}

	numStates, numControls := 0, 0
	for _, col := range records[0] {
		switch {
		case len(col) > 1 && col[0] == 'x':
			numStates++
		case len(col) > 1 && col[0] == 'u':
			numControls++
		}
	}
	if want := 1 + numStates + numControls + 2; len(records[0]) != want {
		return nil, fmt.Errorf("storage: unexpected csv header %v", records[0])
	}

	for line, record := range records[1:] {
		vals := make([]float64, len(record))
		missingControl := false
		for j, cell := range record {
			if cell == "" && j > numStates && j <= numStates+numControls {
				missingControl = true
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("storage: line %d column %d: %w", line+2, j+1, err)
			}
			vals[j] = v
		}

		series.Times = append(series.Times, vals[0])
		series.States = append(series.States, dynamo.State(vals[1:1+numStates]))
		if !missingControl && numControls > 0 {
			series.Controls = append(series.Controls, dynamo.Control(vals[1+numStates:1+numStates+numControls]))
		}
		series.Setpoints = append(series.Setpoints, vals[len(vals)-2])
		series.Outputs = append(series.Outputs, vals[len(vals)-1])
	}

	return series, nil
}

// Result rebuilds a dynamo.Result so a saved run can be exported again.
func (s *Series) Result(metrics map[string]float64) *dynamo.Result {
	return &dynamo.Result{
		Times:     s.Times,
		States:    s.States,
		Controls:  s.Controls,
		Setpoints: s.Setpoints,
		Outputs:   s.Outputs,
		Metrics:   metrics,
	}
}
