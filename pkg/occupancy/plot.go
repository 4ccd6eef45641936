package occupancy

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Default bounds of the color scale (counts).
const (
	DefaultVMin = 0.8
	DefaultVMax = 650
)

// Line is the line y = Slope (x - X0) + Y0, used to draw the edges of the
// unit cell.
type Line struct {
	Slope, X0, Y0 float64
}

// PlotOptions are the options of the heatmap. A limit is ignored when its min
// equals its max.
type PlotOptions struct {
	Title string

	// VMin and VMax are the counts mapped to the bottom and the top of the
	// logarithmic color scale.
	VMin, VMax float64

	XMin, XMax float64
	YMin, YMax float64

	// Background fills the area of the bins left empty. Nil is white.
	Background color.Color

	Lines []Line
}

// ParseColor parses #rrggbb.
func ParseColor(s string) (color.Color, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(strings.TrimPrefix(s, "#"), "%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, errors.Wrapf(err, "color %q", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// logGrid shows the log10 of the counts of a histogram. Empty bins are NaN so
// that the background shows through.
type logGrid struct {
	h *Hist2D
}

func (g logGrid) Dims() (c, r int) {
	return len(g.h.XEdges) - 1, len(g.h.YEdges) - 1
}

func (g logGrid) Z(c, r int) float64 {
	v := g.h.Counts.At(c, r)
	if v <= 0 {
		return math.NaN()
	}
	return math.Log10(v)
}

func (g logGrid) X(c int) float64 {
	return (g.h.XEdges[c] + g.h.XEdges[c+1]) / 2
}

func (g logGrid) Y(r int) float64 {
	return (g.h.YEdges[r] + g.h.YEdges[r+1]) / 2
}

// countTicks labels the logarithmic color scale with counts: vmin, the powers
// of ten in between and vmax.
func countTicks(vmin, vmax float64) plot.ConstantTicks {
	ticks := []plot.Tick{{Value: math.Log10(vmin), Label: strconv.FormatFloat(vmin, 'g', 4, 64)}}
	for e := math.Ceil(math.Log10(vmin)); e < math.Log10(vmax); e++ {
		if e == math.Log10(vmin) {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: e, Label: strconv.FormatFloat(math.Pow(10, e), 'g', 4, 64)})
	}
	return append(ticks, plot.Tick{Value: math.Log10(vmax), Label: strconv.FormatFloat(vmax, 'g', 4, 64)})
}

// background fills the data area.
type background struct {
	c color.Color
}

func (b background) Plot(c draw.Canvas, _ *plot.Plot) {
	c.SetColor(b.c)
	c.Fill(c.Rectangle.Path())
}

// plot saves the heatmap of the histogram with a color bar on its right.
func (o *Occupancy) plot(path string) error {
	opt := o.Plot
	vmin, vmax := opt.VMin, opt.VMax
	if vmin <= 0 {
		vmin = DefaultVMin
	}
	if vmax <= vmin {
		vmax = DefaultVMax
	}

	cm := moreland.ExtendedKindlmann()
	cm.SetMin(math.Log10(vmin))
	cm.SetMax(math.Log10(vmax))
	pal := cm.Palette(255)
	colors := pal.Colors()

	hm := plotter.NewHeatMap(logGrid{o.Hist}, pal)
	hm.Min, hm.Max = cm.Min(), cm.Max()
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]

	p := plot.New()
	p.Title.Text = opt.Title
	p.X.Label.Text = "x (Å)"
	p.Y.Label.Text = "y (Å)"
	if opt.Background != nil {
		p.Add(background{opt.Background})
	}
	p.Add(hm)

	if opt.XMin != opt.XMax {
		p.X.Min, p.X.Max = opt.XMin, opt.XMax
	}
	if opt.YMin != opt.YMax {
		p.Y.Min, p.Y.Max = opt.YMin, opt.YMax
	}

	for _, l := range opt.Lines {
		l := l
		f := plotter.NewFunction(func(x float64) float64 {
			return l.Slope*(x-l.X0) + l.Y0
		})
		f.LineStyle.Color = color.White
		f.LineStyle.Width = vg.Points(1.5)
		p.Add(f)
	}

	cb := plot.New()
	cb.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	cb.HideX()
	cb.Y.Label.Text = "count"
	cb.Y.Padding = 0
	cb.Y.Tick.Marker = countTicks(vmin, vmax)

	const (
		w   = 7 * vg.Inch
		h   = 6 * vg.Inch
		bar = vg.Inch
	)
	img := vgimg.New(w, h)
	dc := draw.New(img)
	p.Draw(draw.Crop(dc, 0, -bar, 0, 0))
	cb.Draw(draw.Crop(dc, w-bar+vg.Points(10), 0, vg.Points(30), -vg.Points(30)))

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
