package isotherm

import (
	"fmt"
	"io"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/pedrogmartins/gcmc-project/pkg/logger"
)

// Isotherm structure is a structure containing the isotherms to fit, the
// settings of the fit and the points where the fitted model and the isosteric
// heat are evaluated.
type Isotherm struct {
	Sets     []Set
	Init     Params
	Settings Settings

	// Support are the pressures at which the fitted isotherms are drawn.
	Support []float64

	QstTemperature float64
	QstLoadings    []float64

	// Out is the prefix of the plots (<Out>_fit.png and <Out>_qst.png). No
	// plot is saved if it is empty.
	Out  string
	Plot PlotOptions

	// ASCII prints terminal previews of the curves in Write.
	ASCII bool

	Log *zap.SugaredLogger

	Fit    *Fit
	Curves [][]float64 // one per set, evaluated on Support
	Qst    []float64
}

// Support returns the pressures 0, step, 2 step, ... below max.
func Support(max, step float64) []float64 {
	if step <= 0 || max <= 0 {
		return nil
	}
	n := int(math.Ceil(max / step))
	res := make([]float64, 0, n)
	for k := 0; k < n; k++ {
		res = append(res, float64(k)*step)
	}
	return res
}

// Loadings returns n loadings evenly spaced between min and max.
func Loadings(min, max float64, n int) []float64 {
	if n < 2 {
		return []float64{min}
	}
	return floats.Span(make([]float64, n), min, max)
}

// Perform fits the isotherms and evaluates the fitted model and the isosteric
// heat. Running out of evaluations is not fatal: the best parameters found are
// kept and a warning is logged.
func (i *Isotherm) Perform() error {
	log := logger.Nop(i.Log)

	fit, err := FitSets(i.Sets, i.Init, i.Settings)
	if err != nil {
		if !errors.Is(err, ErrMaxEval) || fit == nil {
			return errors.Wrap(err, "fit")
		}
		log.Warnw("fit did not converge", "error", err)
	}
	i.Fit = fit
	log.Infow("fitted", "method", fit.Method, "evaluations", fit.Evals,
		"points", fit.Points, "rms", fit.RMS)

	i.Curves = make([][]float64, len(i.Sets))
	for k, s := range i.Sets {
		i.Curves[k] = fit.Params.Curve(i.Support, s.Temperature)
	}
	i.Qst = fit.Params.QstCurve(i.QstLoadings, i.QstTemperature)

	return nil
}

// Write prints the fitted parameters into w and saves the plots.
func (i *Isotherm) Write(w io.Writer) error {
	if i.Fit == nil {
		return errors.New("nothing to write: Perform must be called first")
	}

	fmt.Fprintln(w, i.Fit.Params)
	for k, name := range Names {
		fmt.Fprintf(w, "%-8s % .6e ± %.3e\n", name, i.Fit.Params.Slice()[k], i.Fit.StdErr[k])
	}
	fmt.Fprintf(w, "SSE %.6e RMS %.6e (%d points, %d evaluations)\n",
		i.Fit.SSE, i.Fit.RMS, i.Fit.Points, i.Fit.Evals)

	if i.ASCII {
		i.preview(w)
	}

	if i.Out == "" {
		return nil
	}

	log := logger.Nop(i.Log)
	fitPath := i.Out + "_fit.png"
	if err := i.plotFit(fitPath); err != nil {
		return errors.Wrap(err, "plotFit")
	}
	log.Infow("written", "plot", fitPath)

	qstPath := i.Out + "_qst.png"
	if err := i.plotQst(qstPath); err != nil {
		return errors.Wrap(err, "plotQst")
	}
	log.Infow("written", "plot", qstPath)

	return nil
}

// preview draws the fitted isotherms and the isosteric heat in the terminal.
func (i *Isotherm) preview(w io.Writer) {
	if len(i.Support) > 1 && len(i.Curves) > 0 {
		caption := "fitted isotherms"
		for _, s := range i.Sets {
			caption += fmt.Sprintf(" | %g K", s.Temperature)
		}
		fmt.Fprintln(w, asciigraph.PlotMany(i.Curves,
			asciigraph.Height(12),
			asciigraph.Width(70),
			asciigraph.Caption(caption),
		))
		fmt.Fprintln(w)
	}

	if len(i.Qst) > 1 {
		fmt.Fprintln(w, asciigraph.Plot(i.Qst,
			asciigraph.Height(12),
			asciigraph.Width(70),
			asciigraph.Caption(fmt.Sprintf("Qst (kJ/mol) at %g K", i.QstTemperature)),
		))
		fmt.Fprintln(w)
	}
}
