package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/timedpid/internal/dynamo"
)

type ExportData struct {
	RunMetadata
	Times     []float64   `json:"times"`
	States    [][]float64 `json:"states"`
	Controls  [][]float64 `json:"controls"`
	Setpoints []float64   `json:"setpoints"`
	Outputs   []float64   `json:"outputs"`
}

// ExportJSON writes the metadata together with the full trajectory.
func ExportJSON(w io.Writer, meta RunMetadata, result *dynamo.Result) error {
	data := ExportData{
		RunMetadata: meta,
		Times:       result.Times,
		States:      make([][]float64, len(result.States)),
		Controls:    make([][]float64, len(result.Controls)),
		Setpoints:   result.Setpoints,
		Outputs:     result.Outputs,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
