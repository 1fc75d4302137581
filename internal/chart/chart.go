// Package chart renders archived telemetry rows as a PNG.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"os"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/rcliao/heulog/internal/model"
)

// ErrNoData is returned when no row carries a usable timestamp.
var ErrNoData = errors.New("no dated rows to plot")

// Series holds the plotted columns, X in seconds since the first row.
type Series struct {
	Inlet, Outlet, Flow, Power plotter.XYs
}

// Build extracts plot series from rows. Duplicate rows repeat the previous
// values and are skipped.
func Build(rows []model.Row) (Series, error) {
	var s Series
	var origin *int64
	for _, r := range rows {
		if r.Duplicate || r.Stamp.Date.IsZero() {
			continue
		}
		if _, ok := r.Stamp.Hundredths(); !ok {
			continue
		}
		at := r.Stamp.Clock().UnixMilli()
		if origin == nil {
			origin = &at
		}
		x := float64(at-*origin) / 1000
		s.Inlet = append(s.Inlet, plotter.XY{X: x, Y: r.Values.InletTemp})
		s.Outlet = append(s.Outlet, plotter.XY{X: x, Y: r.Values.OutletTemp})
		s.Flow = append(s.Flow, plotter.XY{X: x, Y: r.Values.Flow})
		s.Power = append(s.Power, plotter.XY{X: x, Y: float64(r.Values.DissWatts)})
	}
	if origin == nil {
		return s, ErrNoData
	}
	return s, nil
}

// Render writes a two-panel chart to path: temperatures and flow on top,
// dissipated power below. Width and height are in points.
func Render(rows []model.Row, title, path string, width, height int) error {
	s, err := Build(rows)
	if err != nil {
		return err
	}

	top := newPlot(title, "°C, l/min")
	if err := addLine(top, "Inlet", s.Inlet, colornames.Firebrick); err != nil {
		return err
	}
	if err := addLine(top, "Outlet", s.Outlet, colornames.Steelblue); err != nil {
		return err
	}
	if err := addLine(top, "Flow", s.Flow, colornames.Darkcyan); err != nil {
		return err
	}

	bottom := newPlot("", "W")
	bottom.X.Label.Text = "seconds"
	if err := addLine(bottom, "Dissipated", s.Power, colornames.Darkmagenta); err != nil {
		return err
	}

	img := vgimg.New(vg.Points(float64(width)), vg.Points(float64(height)))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(4),
		PadBottom: vg.Points(4),
		PadLeft:   vg.Points(4),
		PadRight:  vg.Points(4),
	}
	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write chart: %w", err)
	}
	return f.Close()
}

func newPlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.BackgroundColor = colornames.Snow
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.Padding = vg.Points(5)
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, name string, xys plotter.XYs, c color.RGBA) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("plot %s: %w", name, err)
	}
	line.Color = c
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}
