package cfg

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/pedrogmartins/gcmc-project/pkg/logger"
	"github.com/pedrogmartins/gcmc-project/pkg/occupancy"
	lammpstrjOcc "github.com/pedrogmartins/gcmc-project/pkg/occupancy/lammpstrj"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

// LineCfg is the line y = slope (x - x0) + y0.
type LineCfg struct {
	Slope float64 `yaml:"slope"`
	X0    float64 `yaml:"x0"`
	Y0    float64 `yaml:"y0"`
}

// OccupancyCfg is the section of the occupancy histograms.
type OccupancyCfg struct {
	// Dir is the directory of the trajectories
	Dir string `yaml:"dir"`

	// Pattern is the name of the trajectories where {pressure} is replaced
	// by each pressure
	Pattern   string    `yaml:"pattern"`
	Pressures []float64 `yaml:"pressures"`

	// Type is the type of trajectory (e.g: lammpstrj)
	Type Type `yaml:"type"`

	MaxStep       int    `yaml:"maxStep"`
	MinID         int    `yaml:"minID"`
	Species       string `yaml:"species"`
	SpeciesColumn string `yaml:"speciesColumn"`

	// Wrap maps unwrapped coordinates back into the box
	Wrap bool `yaml:"wrap"`

	Bins int `yaml:"bins"`

	// XRange and YRange fix the range of the histogram. BoxRange uses the
	// box of the trajectory. By default the range of the data is used
	XRange   []float64 `yaml:"xRange"`
	YRange   []float64 `yaml:"yRange"`
	BoxRange bool      `yaml:"boxRange"`

	// Out is the directory of the plots. If Table is set, the counts are also
	// written with the format Format
	Out    string `yaml:"out"`
	Table  bool   `yaml:"table"`
	Format string `yaml:"format"`

	VMin       float64   `yaml:"vMin"`
	VMax       float64   `yaml:"vMax"`
	XLim       []float64 `yaml:"xLim"`
	YLim       []float64 `yaml:"yLim"`
	Background string    `yaml:"background"`
	Lines      []LineCfg `yaml:"lines"`
}

func defaultOccupancy() OccupancyCfg {
	const slope = 18.926197347930287 / 10.927045133565391
	return OccupancyCfg{
		Dir:        "trajectories",
		Pattern:    "all_183k_298k_112_p{pressure}_s36825_m5_a20_d0.25_oc0.dat",
		Pressures:  []float64{0.001, 0.1, 1, 10},
		Type:       TLammpstrj,
		MaxStep:    413850,
		MinID:      168,
		Species:    "C",
		Bins:       150,
		Out:        "occupancy",
		Format:     colfile.FormatTab,
		VMin:       occupancy.DefaultVMin,
		VMax:       occupancy.DefaultVMax,
		XLim:       []float64{2.5, 32.5},
		YLim:       []float64{0, 18},
		Background: "#300040",
		Lines: []LineCfg{
			{Slope: slope, X0: 0, Y0: 0.21},
			{Slope: slope, X0: 21.854090267130783, Y0: -0.2},
		},
	}
}

// Check checks the section.
func (c *OccupancyCfg) Check() error {
	if c.Type != TLammpstrj {
		return errors.Newf("unsupported type %q", c.Type)
	}

	if c.Bins <= 0 {
		return errors.New("bins must be greater than 0")
	}

	if c.MaxStep < 0 || c.MinID < 0 {
		return errors.New("maxStep and minID cannot be lower than 0")
	}

	for _, r := range [][]float64{c.XRange, c.YRange, c.XLim, c.YLim} {
		if len(r) != 0 && (len(r) != 2 || r[0] >= r[1]) {
			return errors.New("ranges and limits must be 2 increasing values")
		}
	}

	if c.VMin < 0 || (c.VMax != 0 && c.VMax <= c.VMin) {
		return errors.New("invalid color scale")
	}

	if c.Background != "" {
		if _, err := occupancy.ParseColor(c.Background); err != nil {
			return err
		}
	}

	if _, err := colfile.Ext(c.Format); err != nil {
		return err
	}

	return nil
}

// Trajectories returns the trajectory of each pressure.
func (c *OccupancyCfg) Trajectories() []string {
	res := make([]string, len(c.Pressures))
	for k, p := range c.Pressures {
		res[k] = filepath.Join(c.Dir, occupancy.PressureFile(c.Pattern, p))
	}
	return res
}

// RunOccupancy draws the occupancy histogram of each pressure.
func (c *Cfg) RunOccupancy() error {
	log := logger.Nop(c.Log)
	oc := c.Occupancy

	if len(oc.Pressures) == 0 {
		return errors.New("no pressure")
	}
	if oc.Out != "" {
		if err := os.MkdirAll(oc.Out, 0o755); err != nil {
			return err
		}
	}
	ext, err := colfile.Ext(oc.Format)
	if err != nil {
		return err
	}

	plot := occupancy.PlotOptions{VMin: oc.VMin, VMax: oc.VMax}
	if len(oc.XLim) == 2 {
		plot.XMin, plot.XMax = oc.XLim[0], oc.XLim[1]
	}
	if len(oc.YLim) == 2 {
		plot.YMin, plot.YMax = oc.YLim[0], oc.YLim[1]
	}
	if oc.Background != "" {
		plot.Background, err = occupancy.ParseColor(oc.Background)
		if err != nil {
			return err
		}
	}
	for _, l := range oc.Lines {
		plot.Lines = append(plot.Lines, occupancy.Line{Slope: l.Slope, X0: l.X0, Y0: l.Y0})
	}

	for k, traj := range oc.Trajectories() {
		p := oc.Pressures[k]
		log.Infow("reading", "pressure", p, "trajectory", traj)

		o := &occupancy.Occupancy{
			Traj: traj,
			Filter: occupancy.Filter{
				MaxStep:       oc.MaxStep,
				MinID:         oc.MinID,
				Species:       oc.Species,
				SpeciesColumn: oc.SpeciesColumn,
			},
			Bins:     oc.Bins,
			XRange:   rng(oc.XRange),
			YRange:   rng(oc.YRange),
			BoxRange: oc.BoxRange,
			Wrap:     oc.Wrap,
			Plot:     plot,
			Progress: c.Progress,
			Log:      c.Log,
		}
		o.Plot.Title = fmt.Sprintf("p = %g", p)

		if oc.Out != "" {
			base := strings.TrimSuffix(filepath.Base(traj), filepath.Ext(traj))
			o.Out = filepath.Join(oc.Out, base+".png")
			if oc.Table {
				o.Table = filepath.Join(oc.Out, base+ext)
			}
		}

		switch oc.Type {
		case TLammpstrj:
			o.Method = lammpstrjOcc.New(o)
		default:
			return errors.Newf("unsupported type %q", oc.Type)
		}

		if err := o.Perform(); err != nil {
			return errors.Wrapf(err, "pressure %g", p)
		}
		if err := o.Write(); err != nil {
			return errors.Wrapf(err, "pressure %g", p)
		}
		log.Infow("written", "pressure", p, "plot", o.Out, "selected", o.Selected)
	}

	return nil
}

func rng(r []float64) *occupancy.Range {
	if len(r) != 2 {
		return nil
	}
	return &occupancy.Range{Min: r[0], Max: r[1]}
}
