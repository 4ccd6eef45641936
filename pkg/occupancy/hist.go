package occupancy

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Range is a closed interval.
type Range struct {
	Min, Max float64
}

// Hist2D is a histogram of 2D points over a regular grid. Counts.At(i, j) is
// the number of points of the ith bin along x and the jth bin along y.
type Hist2D struct {
	XEdges, YEdges []float64
	Counts         *mat.Dense

	// Total is the number of points inside the grid.
	Total int
}

// NewHist2D bins the points (x[k], y[k]) into bins×bins cells. A nil range is
// the range of the data, widened by 0.5 on both sides when it is empty. Points
// outside the range are ignored. Every bin is half-open except the last one,
// which includes its upper edge.
func NewHist2D(x, y []float64, bins int, xr, yr *Range) (*Hist2D, error) {
	if len(x) != len(y) {
		return nil, errors.Newf("%d x and %d y", len(x), len(y))
	}
	if bins <= 0 {
		return nil, errors.Newf("invalid number of bins: %d", bins)
	}

	h := &Hist2D{Counts: mat.NewDense(bins, bins, nil)}
	var err error
	if h.XEdges, err = edges(x, bins, xr); err != nil {
		return nil, errors.Wrap(err, "x")
	}
	if h.YEdges, err = edges(y, bins, yr); err != nil {
		return nil, errors.Wrap(err, "y")
	}

	for k := range x {
		i, j := bin(h.XEdges, x[k]), bin(h.YEdges, y[k])
		if i < 0 || j < 0 {
			continue
		}
		h.Counts.Set(i, j, h.Counts.At(i, j)+1)
		h.Total++
	}

	return h, nil
}

// Max returns the largest count.
func (h *Hist2D) Max() float64 {
	return mat.Max(h.Counts)
}

func edges(v []float64, bins int, r *Range) ([]float64, error) {
	var lo, hi float64
	switch {
	case r != nil:
		lo, hi = r.Min, r.Max
		if !(lo < hi) {
			return nil, errors.Newf("invalid range [%g, %g]", lo, hi)
		}
	case len(v) == 0:
		lo, hi = 0, 1
	default:
		lo, hi = floats.Min(v), floats.Max(v)
		if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			return nil, errors.New("non finite coordinates")
		}
		if lo == hi {
			lo, hi = lo-0.5, hi+0.5
		}
	}
	return floats.Span(make([]float64, bins+1), lo, hi), nil
}

// bin returns the index of the bin of v or -1 if v is outside the edges.
func bin(e []float64, v float64) int {
	n := len(e) - 1
	lo, hi := e[0], e[n]
	if !(v >= lo && v <= hi) {
		return -1
	}
	if v == hi {
		return n - 1
	}

	i := int((v - lo) / (hi - lo) * float64(n))
	if i >= n {
		i = n - 1
	}
	// Rounding may put v one bin away from the edges of floats.Span.
	if v < e[i] {
		i--
	} else if i < n-1 && v >= e[i+1] {
		i++
	}
	return i
}
