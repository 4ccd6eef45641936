package isotherm

import (
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// Fitting methods.
const (
	MethodLM         = "lm"
	MethodBFGS       = "bfgs"
	MethodNelderMead = "neldermead"
)

// DefaultMaxEval is the default budget of model evaluations.
const DefaultMaxEval = 1400

// DefaultInit is the default initial guess.
var DefaultInit = Params{1, 1e-6, 10, 1, 1e-6, 10}

var (
	// ErrMaxEval is returned when the budget of evaluations is exhausted
	// before convergence.
	ErrMaxEval = errors.New("number of evaluations reached the maximum")

	// ErrNonFinite is returned when the model cannot be evaluated at the
	// initial guess.
	ErrNonFinite = errors.New("residuals are not finite")
)

// Set is an isotherm measured at one temperature.
type Set struct {
	Temperature float64
	Pressures   []float64
	Loadings    []float64
}

// Settings tune FitSets.
type Settings struct {
	// Method is MethodLM (default), MethodBFGS or MethodNelderMead.
	Method string

	// MaxEval is the maximum number of evaluations of the residuals.
	MaxEval int
}

// Fit is the result of FitSets.
type Fit struct {
	Params Params

	// Cov is the estimated covariance of the parameters. Its elements are +Inf
	// when it cannot be estimated.
	Cov    *mat.Dense
	StdErr []float64

	SSE    float64 // sum of the squared residuals
	RMS    float64
	Points int
	Evals  int
	Method string
}

// problem is the stacked least-squares problem of all the sets.
type problem struct {
	p, t, q []float64
}

func newProblem(sets []Set) (*problem, error) {
	pb := &problem{}
	for k, s := range sets {
		if len(s.Pressures) != len(s.Loadings) {
			return nil, errors.Newf("set %d: %d pressures but %d loadings", k, len(s.Pressures), len(s.Loadings))
		}
		if s.Temperature <= 0 {
			return nil, errors.Newf("set %d: temperature must be positive", k)
		}
		for i := range s.Pressures {
			pb.p = append(pb.p, s.Pressures[i])
			pb.t = append(pb.t, s.Temperature)
			pb.q = append(pb.q, s.Loadings[i])
		}
	}
	if len(pb.p) == 0 {
		return nil, errors.New("no data")
	}
	return pb, nil
}

func (pb *problem) len() int {
	return len(pb.p)
}

// residuals stores model - data in r.
func (pb *problem) residuals(r, x []float64) {
	par := ParamsFromSlice(x)
	for i := range pb.p {
		r[i] = par.Loading(pb.p[i], pb.t[i]) - pb.q[i]
	}
}

func (pb *problem) jacobian(j *mat.Dense, x []float64) {
	par := ParamsFromSlice(x)
	row := make([]float64, NParams)
	for i := range pb.p {
		par.grad(row, pb.p[i], pb.t[i])
		j.SetRow(i, row)
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FitSets fits all the sets simultaneously starting from init. When the
// budget of evaluations is exhausted, the best parameters found are returned
// along with an error wrapping ErrMaxEval.
func FitSets(sets []Set, init Params, s Settings) (*Fit, error) {
	pb, err := newProblem(sets)
	if err != nil {
		return nil, err
	}
	if s.MaxEval <= 0 {
		s.MaxEval = DefaultMaxEval
	}
	if s.Method == "" {
		s.Method = MethodLM
	}

	r := make([]float64, pb.len())
	pb.residuals(r, init.Slice())
	if !finite(floats.Dot(r, r)) {
		return nil, ErrNonFinite
	}

	var (
		x     []float64
		evals int
		ferr  error
	)
	switch s.Method {
	case MethodLM:
		x, evals, ferr = levenbergMarquardt(pb, init.Slice(), s.MaxEval)
	case MethodBFGS, MethodNelderMead:
		x, evals, ferr = minimize(pb, init.Slice(), s)
	default:
		return nil, errors.Newf("unknown method %q", s.Method)
	}
	if x == nil {
		return nil, ferr
	}

	fit := &Fit{Params: ParamsFromSlice(x), Points: pb.len(), Evals: evals, Method: s.Method}
	pb.residuals(r, x)
	fit.SSE = floats.Dot(r, r)
	fit.RMS = math.Sqrt(fit.SSE / float64(pb.len()))
	fit.Cov = covariance(pb, x, fit.SSE)
	fit.StdErr = make([]float64, NParams)
	for i := range fit.StdErr {
		fit.StdErr[i] = math.Sqrt(fit.Cov.At(i, i))
	}

	return fit, ferr
}

// Tolerances of the Levenberg-Marquardt iterations: relative reduction of the
// cost and relative size of the step (sqrt of the machine epsilon).
const (
	ftol = 1.49012e-8
	xtol = 1.49012e-8

	lambdaMin = 1e-12
	lambdaMax = 1e16
)

// levenbergMarquardt minimizes the squared residuals of pb. The damped normal
// equations are solved in the scaled space D(JᵀJ)D with D = diag(JᵀJ)^-1/2
// so parameters of very different magnitudes (b0 ~ 1e-6, E ~ 10) are treated
// alike.
func levenbergMarquardt(pb *problem, x0 []float64, maxEval int) ([]float64, int, error) {
	m, n := pb.len(), len(x0)

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	pb.residuals(r, x)
	evals := 1
	cost := floats.Dot(r, r)

	var (
		j      = mat.NewDense(m, n, nil)
		jtj    mat.Dense
		a      = mat.NewDense(n, n, nil)
		g      = mat.NewVecDense(n, nil)
		sg     = mat.NewVecDense(n, nil)
		y      mat.VecDense
		d      = make([]float64, n)
		xTry   = make([]float64, n)
		rTry   = make([]float64, m)
		lambda = 1e-3
	)

	for {
		if cost == 0 {
			return x, evals, nil
		}

		pb.jacobian(j, x)
		jtj.Mul(j.T(), j)
		g.MulVec(j.T(), mat.NewVecDense(m, r))

		for i := 0; i < n; i++ {
			d[i] = jtj.At(i, i)
			if d[i] <= 0 {
				d[i] = 1
			}
			d[i] = 1 / math.Sqrt(d[i])
			sg.SetVec(i, d[i]*g.AtVec(i))
		}
		if mat.Norm(sg, math.Inf(1)) == 0 {
			return x, evals, nil
		}

		for {
			if evals >= maxEval {
				return x, evals, errors.Wrapf(ErrMaxEval, "%d evaluations", evals)
			}

			for i := 0; i < n; i++ {
				for k := 0; k < n; k++ {
					a.Set(i, k, d[i]*jtj.At(i, k)*d[k])
				}
				a.Set(i, i, a.At(i, i)+lambda)
			}

			err := y.SolveVec(a, sg)
			if err != nil {
				var c mat.Condition
				if !errors.As(err, &c) {
					lambda *= 10
					if lambda > lambdaMax {
						return x, evals, nil
					}
					continue
				}
			}

			small := true
			for i := range xTry {
				step := d[i] * y.AtVec(i)
				xTry[i] = x[i] - step
				if math.Abs(step) > xtol*math.Abs(x[i]) {
					small = false
				}
			}

			pb.residuals(rTry, xTry)
			evals++
			costTry := floats.Dot(rTry, rTry)

			if costTry < cost {
				reduction := (cost - costTry) / cost
				copy(x, xTry)
				copy(r, rTry)
				cost = costTry

				// Tiny steps only mean convergence close to the Gauss-Newton
				// regime; heavily damped steps are always small.
				if lambda <= 1 && (small || reduction <= ftol) {
					return x, evals, nil
				}
				lambda = math.Max(lambda/10, lambdaMin)
				break
			}

			lambda *= 10
			if lambda > lambdaMax {
				return x, evals, nil
			}
		}
	}
}

// minimize minimizes the squared residuals of pb with a gonum optimizer. The
// variables are the parameters divided by the magnitude of the initial guess.
func minimize(pb *problem, x0 []float64, s Settings) ([]float64, int, error) {
	m, n := pb.len(), len(x0)

	scale := make([]float64, n)
	z0 := make([]float64, n)
	for i, v := range x0 {
		scale[i] = math.Abs(v)
		if scale[i] == 0 {
			scale[i] = 1
		}
		z0[i] = v / scale[i]
	}

	var (
		x     = make([]float64, n)
		r     = make([]float64, m)
		j     = mat.NewDense(m, n, nil)
		evals int
	)
	unscale := func(z []float64) {
		for i := range z {
			x[i] = z[i] * scale[i]
		}
	}

	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			evals++
			unscale(z)
			pb.residuals(r, x)
			c := floats.Dot(r, r)
			if !finite(c) {
				return math.Inf(1)
			}
			return c
		},
		Grad: func(grad, z []float64) {
			unscale(z)
			pb.residuals(r, x)
			pb.jacobian(j, x)
			gv := mat.NewVecDense(n, grad)
			gv.MulVec(j.T(), mat.NewVecDense(m, r))
			for i := range grad {
				grad[i] *= 2 * scale[i]
			}
		},
	}

	var method optimize.Method = &optimize.BFGS{}
	if s.Method == MethodNelderMead {
		method = &optimize.NelderMead{}
	}

	res, err := optimize.Minimize(problem, z0, &optimize.Settings{FuncEvaluations: s.MaxEval}, method)
	if res == nil {
		return nil, evals, errors.Wrap(err, "minimize")
	}

	best := make([]float64, n)
	for i := range best {
		best[i] = res.X[i] * scale[i]
	}
	if res.Status == optimize.FunctionEvaluationLimit {
		return best, evals, errors.Wrapf(ErrMaxEval, "%d evaluations", evals)
	}
	if err != nil {
		return best, evals, errors.Wrap(err, "minimize")
	}
	return best, evals, nil
}

// covariance returns sse/(m-n) (JᵀJ)⁻¹ at x.
func covariance(pb *problem, x []float64, sse float64) *mat.Dense {
	m, n := pb.len(), len(x)
	cov := mat.NewDense(n, n, nil)

	inf := func() *mat.Dense {
		for i := 0; i < n; i++ {
			for k := 0; k < n; k++ {
				cov.Set(i, k, math.Inf(1))
			}
		}
		return cov
	}
	if m <= n {
		return inf()
	}

	j := mat.NewDense(m, n, nil)
	pb.jacobian(j, x)
	var jtj mat.Dense
	jtj.Mul(j.T(), j)

	// Inverse of the scaled matrix, then unscaled.
	d := make([]float64, n)
	for i := range d {
		if jtj.At(i, i) <= 0 {
			return inf()
		}
		d[i] = 1 / math.Sqrt(jtj.At(i, i))
	}
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			a.Set(i, k, d[i]*jtj.At(i, k)*d[k])
		}
	}
	var inv mat.Dense
	if err := inv.Inverse(a); err != nil {
		var c mat.Condition
		if !errors.As(err, &c) {
			return inf()
		}
	}

	s2 := sse / float64(m-n)
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			cov.Set(i, k, d[i]*inv.At(i, k)*d[k]*s2)
		}
	}
	return cov
}
