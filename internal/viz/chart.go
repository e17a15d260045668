package viz

import (
	"github.com/guptarohit/asciigraph"
)

const (
	ChartWidth  = 80
	ChartHeight = 15
)

// Downsample keeps at most n evenly spaced points. asciigraph interpolates
// to its width anyway; this only bounds the work for long runs.
func Downsample(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[i*(len(values)-1)/(n-1)]
	}
	return out
}

// ResponseChart overlays the setpoint (red) and process variable (green).
func ResponseChart(setpoints, outputs []float64, width, height int, caption string) string {
	n := width * 4
	return asciigraph.PlotMany(
		[][]float64{Downsample(setpoints, n), Downsample(outputs, n)},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Red, asciigraph.Green),
		asciigraph.Caption(caption),
	)
}

func CommandChart(commands []float64, width, height int, caption string) string {
	if len(commands) == 0 {
		return ""
	}
	return asciigraph.Plot(Downsample(commands, width*4),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Goldenrod),
		asciigraph.Caption(caption),
	)
}
