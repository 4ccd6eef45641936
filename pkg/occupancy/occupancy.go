// Package occupancy builds 2D occupancy histograms of the adsorbed molecules
// of GCMC trajectories.
package occupancy

import (
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pedrogmartins/gcmc-project/pkg/logger"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo"
	"github.com/pedrogmartins/gcmc-project/pkg/thermo/colfile"
)

// ErrNoSamples is returned when no atom of the trajectory passes the filter.
var ErrNoSamples = errors.New("no atom passed the filter")

// Sample is the position of a selected atom at a timestep.
type Sample struct {
	Step    int
	X, Y, Z float64
}

// Box is the simulation box of the last frame read. Lo and Hi are the edges of
// the parallelepiped (not the bounds written in the dumps of triclinic boxes)
// and Tilt holds its xy, xz and yz factors.
type Box struct {
	Lo, Hi [3]float64
	Tilt   [3]float64
}

// Filter selects the atoms of the adsorbed molecules. A zero field disables
// the corresponding test.
type Filter struct {
	// MaxStep excludes the frames whose timestep is greater or equal to it.
	MaxStep int

	// MinID excludes the atoms whose id is lower or equal to it (the atoms
	// of the framework come first).
	MinID int

	// Species keeps the atoms whose SpeciesColumn equals it.
	Species       string
	SpeciesColumn string
}

// Accept reports whether the atom id of species at step passes the filter.
func (f Filter) Accept(step, id int, species string) bool {
	if f.MaxStep > 0 && step >= f.MaxStep {
		return false
	}
	if id <= f.MinID {
		return false
	}
	return f.Species == "" || species == f.Species
}

// Method is an interface implemented by the trajectory readers.
type Method interface {
	Read() error
	Samples() []Sample
	Box() Box
	End() error
}

// Occupancy structure is a structure containing information that will be used
// by the readers (trajectory, filter) and the parameters of the histogram.
type Occupancy struct {
	Method Method

	Traj string

	// Out is the path of the heatmap. Table is the path of a colfile table
	// holding the counts of each bin. Both are optional.
	Out   string
	Table string

	Filter Filter

	Bins int

	// XRange and YRange fix the range of the histogram. If BoxRange is set,
	// the box of the trajectory is used. Otherwise the range of the data is
	// used.
	XRange, YRange *Range
	BoxRange       bool

	// Wrap maps the coordinates into the box of their frame. Use it with
	// unwrapped coordinates (xu yu zu).
	Wrap bool

	Plot PlotOptions

	// Progress receives the progress of the readers if not nil.
	Progress io.Writer

	Log *zap.SugaredLogger

	// Selected is the number of atoms that passed the filter.
	Selected int
	Hist     *Hist2D
}

// Perform reads the trajectory and bins the x and y coordinates of the
// selected atoms.
func (o *Occupancy) Perform() (err error) {
	log := logger.Nop(o.Log)

	err = o.Method.Read()
	defer func() {
		if cerr := o.Method.End(); err == nil {
			err = cerr
		}
	}()
	if err != nil {
		return
	}

	samples := o.Method.Samples()
	o.Selected = len(samples)
	if len(samples) == 0 {
		return errors.Wrapf(ErrNoSamples, "%s", o.Traj)
	}

	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i], y[i] = s.X, s.Y
	}

	xr, yr := o.XRange, o.YRange
	if o.BoxRange {
		lo, hi := o.Method.Box().Bounds()
		xr = &Range{lo[0], hi[0]}
		yr = &Range{lo[1], hi[1]}
	}

	o.Hist, err = NewHist2D(x, y, o.Bins, xr, yr)
	if err != nil {
		return errors.Wrap(err, "NewHist2D")
	}
	log.Infow("binned", "trajectory", o.Traj, "samples", len(samples),
		"inside", o.Hist.Total, "max", o.Hist.Max())

	return nil
}

// Write writes the heatmap and the table of counts.
func (o *Occupancy) Write() error {
	if o.Hist == nil {
		return errors.New("nothing to write: Perform must be called first")
	}

	if o.Out != "" {
		if err := o.plot(o.Out); err != nil {
			return errors.Wrap(err, "plot")
		}
	}

	if o.Table != "" {
		if err := colfile.Write(o.Table, o.Hist.Table()); err != nil {
			return err
		}
	}

	return nil
}

// Table returns the bins as a table with the columns x, y (centres of the
// bins) and count.
func (h *Hist2D) Table() *thermo.Table {
	nx, ny := h.Counts.Dims()
	t := &thermo.Table{Columns: []string{"x", "y", "count"}, Rows: make([][]float64, 0, nx*ny)}
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			t.Rows = append(t.Rows, []float64{
				(h.XEdges[i] + h.XEdges[i+1]) / 2,
				(h.YEdges[j] + h.YEdges[j+1]) / 2,
				h.Counts.At(i, j),
			})
		}
	}
	return t
}

// PressureFile returns pattern where {pressure} is replaced by p written with
// the fewest digits (0.001, 1, 17.7827941).
func PressureFile(pattern string, p float64) string {
	return strings.ReplaceAll(pattern, "{pressure}", strconv.FormatFloat(p, 'f', -1, 64))
}
