// Package export renders a closed-loop response as an image.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"

	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/storage"
)

const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 6 * vg.Inch
)

var ErrUnsupportedFormat = errors.New("export: unsupported image format")

// Trace is the part of a run that gets plotted. Commands may be one shorter
// than Times.
type Trace struct {
	Title     string
	Times     []float64
	Setpoints []float64
	Outputs   []float64
	Commands  []float64
}

func FromResult(title string, r *dynamo.Result) Trace {
	return Trace{
		Title:     title,
		Times:     r.Times,
		Setpoints: r.Setpoints,
		Outputs:   r.Outputs,
		Commands:  firstChannel(r.Controls),
	}
}

func FromSeries(title string, s *storage.Series) Trace {
	return Trace{
		Title:     title,
		Times:     s.Times,
		Setpoints: s.Setpoints,
		Outputs:   s.Outputs,
		Commands:  firstChannel(s.Controls),
	}
}

func firstChannel(controls []dynamo.Control) []float64 {
	out := make([]float64, 0, len(controls))
	for _, u := range controls {
		if len(u) > 0 {
			out = append(out, u[0])
		}
	}
	return out
}

func toXYs(xs, ys []float64) plotter.XYs {
	n := min(len(xs), len(ys))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// Plots builds the response panel (process variable against setpoint) and
// the command panel.
func Plots(tr Trace) (response, command *plot.Plot, err error) {
	response = plot.New()
	response.Title.Text = tr.Title
	response.Y.Label.Text = "process variable"
	response.Add(plotter.NewGrid())
	if err := plotutil.AddLines(response,
		"setpoint", toXYs(tr.Times, tr.Setpoints),
		"pv", toXYs(tr.Times, tr.Outputs),
	); err != nil {
		return nil, nil, fmt.Errorf("export: response plot: %w", err)
	}
	response.Legend.Top = true

	command = plot.New()
	command.X.Label.Text = "time (s)"
	command.Y.Label.Text = "command"
	command.Add(plotter.NewGrid())
	line, err := plotter.NewLine(toXYs(tr.Times, tr.Commands))
	if err != nil {
		return nil, nil, fmt.Errorf("export: command plot: %w", err)
	}
	line.Color = color.RGBA{R: 0xd9, G: 0x5f, B: 0x02, A: 0xff}
	command.Add(line)

	return response, command, nil
}

// Render draws both panels stacked into w. format is "png" or "svg".
func Render(w io.Writer, tr Trace, format string, width, height vg.Length) error {
	var c vg.CanvasWriterTo
	switch strings.ToLower(format) {
	case "png":
		c = vgimg.PngCanvas{Canvas: vgimg.New(width, height)}
	case "svg":
		c = vgsvg.New(width, height)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	response, command, err := Plots(tr)
	if err != nil {
		return err
	}

	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter * 2}
	canvases := plot.Align([][]*plot.Plot{{response}, {command}}, tiles, draw.New(c))
	response.Draw(canvases[0][0])
	command.Draw(canvases[1][0])

	_, err = c.WriteTo(w)
	return err
}

// SaveImage writes the trace to path, picking the format from the extension.
func SaveImage(path string, tr Trace) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := Render(bw, tr, format, DefaultWidth, DefaultHeight); err != nil {
		return err
	}
	return bw.Flush()
}
