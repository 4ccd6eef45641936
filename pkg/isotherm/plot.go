package isotherm

import (
	"fmt"
	"image/color"

	"github.com/cockroachdb/errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PlotOptions are the limits, labels and reference lines of the isosteric
// heat plot. A limit is ignored when its min equals its max.
type PlotOptions struct {
	QstXMin, QstXMax float64
	QstYMin, QstYMax float64

	QstXLabel string

	// VLines and HLines are reference values drawn across the plot (e.g. one
	// molecule per metal site, a DFT binding energy).
	VLines []float64
	HLines []float64
}

var (
	red   = color.RGBA{R: 220, A: 255}
	black = color.RGBA{A: 255}
)

// plotFit draws the data and the fitted isotherm of each temperature.
func (i *Isotherm) plotFit(path string) error {
	p := plot.New()
	p.Title.Text = "Adsorption isotherms"
	p.X.Label.Text = "Pressure"
	p.Y.Label.Text = "Loading"
	p.Add(plotter.NewGrid())

	for k, s := range i.Sets {
		pts := make(plotter.XYs, len(s.Pressures))
		for n := range s.Pressures {
			pts[n].X = s.Pressures[n]
			pts[n].Y = s.Loadings[n]
		}

		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		sc.GlyphStyle.Shape = draw.BoxGlyph{}
		sc.GlyphStyle.Color = plotutil.Color(k)
		p.Add(sc)

		if len(i.Support) == 0 {
			continue
		}
		line := make(plotter.XYs, len(i.Support))
		for n := range i.Support {
			line[n].X = i.Support[n]
			line[n].Y = i.Curves[k][n]
		}
		l, err := plotter.NewLine(line)
		if err != nil {
			return err
		}
		l.LineStyle.Color = plotutil.Color(k)
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%g K", s.Temperature), sc, l)
	}
	p.Legend.Top = false
	p.Legend.Left = false

	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}

// plotQst draws the isosteric heat against the loading.
func (i *Isotherm) plotQst(path string) error {
	o := i.Plot

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Isosteric heat of adsorption at %g K", i.QstTemperature)
	p.X.Label.Text = o.QstXLabel
	if p.X.Label.Text == "" {
		p.X.Label.Text = "Loading"
	}
	p.Y.Label.Text = "|Qst| (kJ/mol)"

	// Loadings above the fitted capacity have no isosteric heat.
	var pts plotter.XYs
	for n, q := range i.QstLoadings {
		if finite(i.Qst[n]) {
			pts = append(pts, plotter.XY{X: q, Y: i.Qst[n]})
		}
	}
	if len(pts) == 0 {
		return errors.New("no finite isosteric heat to plot")
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	l.LineStyle.Width = vg.Points(3)
	l.LineStyle.Color = plotutil.Color(0)
	p.Add(l)

	if o.QstXMin != o.QstXMax {
		p.X.Min, p.X.Max = o.QstXMin, o.QstXMax
	}
	if o.QstYMin != o.QstYMax {
		p.Y.Min, p.Y.Max = o.QstYMin, o.QstYMax
	}

	// Reference lines span the axes once the data range is known.
	xmin, xmax, ymin, ymax := p.X.Min, p.X.Max, p.Y.Min, p.Y.Max
	for _, x := range o.VLines {
		ref, err := plotter.NewLine(plotter.XYs{{X: x, Y: ymin}, {X: x, Y: ymax}})
		if err != nil {
			return err
		}
		ref.LineStyle.Color = red
		ref.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		p.Add(ref)
	}
	for _, y := range o.HLines {
		ref, err := plotter.NewLine(plotter.XYs{{X: xmin, Y: y}, {X: xmax, Y: y}})
		if err != nil {
			return err
		}
		ref.LineStyle.Color = black
		ref.LineStyle.Dashes = []vg.Length{vg.Points(1), vg.Points(3)}
		p.Add(ref)
	}

	return p.Save(6*vg.Inch, 5*vg.Inch, path)
}
