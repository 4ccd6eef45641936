package isotherm

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pressures = []float64{0.01, 0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20, 40}

// synthetic returns the isotherms of p at 298, 313 and 323 K. noise is added
// with alternating signs.
func synthetic(p Params, noise float64) []Set {
	var sets []Set
	for _, temp := range []float64{298, 313, 323} {
		s := Set{Temperature: temp, Pressures: pressures}
		for i, pr := range pressures {
			q := p.Loading(pr, temp)
			if i%2 == 0 {
				q += noise
			} else {
				q -= noise
			}
			s.Loadings = append(s.Loadings, q)
		}
		sets = append(sets, s)
	}
	return sets
}

var guess = Params{QSatA: 2.2, B0A: 1.2e-6, EA: 39, QSatB: 2.7, B0B: 0.8e-4, EB: 15.5}

func sse(sets []Set, p Params) float64 {
	var res float64
	for _, s := range sets {
		for i, pr := range s.Pressures {
			d := p.Loading(pr, s.Temperature) - s.Loadings[i]
			res += d * d
		}
	}
	return res
}

func TestFitReproducesData(t *testing.T) {
	sets := synthetic(mof, 0)

	fit, err := FitSets(sets, guess, Settings{})
	require.NoError(t, err)
	assert.Equal(t, MethodLM, fit.Method)
	assert.Equal(t, 33, fit.Points)
	assert.LessOrEqual(t, fit.Evals, DefaultMaxEval)
	assert.Less(t, fit.RMS, 1e-7)

	for _, s := range sets {
		for i, pr := range s.Pressures {
			assert.InDelta(t, s.Loadings[i], fit.Params.Loading(pr, s.Temperature), 1e-6,
				"T=%g p=%g", s.Temperature, pr)
		}
	}
}

func TestFitUnequalSets(t *testing.T) {
	sets := synthetic(mof, 0)
	sets[1].Pressures = sets[1].Pressures[:6]
	sets[1].Loadings = sets[1].Loadings[:6]

	fit, err := FitSets(sets, guess, Settings{Method: MethodLM})
	require.NoError(t, err)
	assert.Equal(t, 28, fit.Points)
	assert.Less(t, fit.RMS, 1e-7)
}

func TestFitCovariance(t *testing.T) {
	sets := synthetic(mof, 1e-3)

	fit, err := FitSets(sets, guess, Settings{})
	require.NoError(t, err)
	assert.Less(t, fit.RMS, 2e-3)

	r, c := fit.Cov.Dims()
	assert.Equal(t, NParams, r)
	assert.Equal(t, NParams, c)
	for i, v := range fit.StdErr {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), Names[i])
		assert.Greater(t, v, 0.0, Names[i])
		assert.InDelta(t, fit.Cov.At(i, 0), fit.Cov.At(0, i), 1e-6*math.Abs(fit.Cov.At(0, i))+1e-30)
	}

	// Fewer points than parameters: no covariance.
	few := []Set{{Temperature: 298, Pressures: pressures[:4], Loadings: sets[0].Loadings[:4]}}
	fit, _ = FitSets(few, guess, Settings{MaxEval: 50})
	require.NotNil(t, fit)
	for _, v := range fit.StdErr {
		assert.True(t, math.IsInf(v, 1))
	}
}

func TestFitMaxEval(t *testing.T) {
	sets := synthetic(mof, 0)

	fit, err := FitSets(sets, DefaultInit, Settings{MaxEval: 3})
	assert.True(t, errors.Is(err, ErrMaxEval))
	require.NotNil(t, fit)
	assert.Equal(t, 3, fit.Evals)
}

func TestFitOptimize(t *testing.T) {
	sets := synthetic(mof, 0)
	start := sse(sets, guess)

	for _, m := range []string{MethodBFGS, MethodNelderMead} {
		fit, _ := FitSets(sets, guess, Settings{Method: m, MaxEval: 20000})
		require.NotNil(t, fit, m)
		assert.Equal(t, m, fit.Method)
		assert.Less(t, fit.SSE, start, m)
	}
}

func TestFitErrors(t *testing.T) {
	_, err := FitSets(nil, guess, Settings{})
	assert.Error(t, err)

	_, err = FitSets([]Set{{Temperature: 298, Pressures: []float64{1}, Loadings: nil}}, guess, Settings{})
	assert.Error(t, err)

	_, err = FitSets([]Set{{Temperature: 0, Pressures: []float64{1}, Loadings: []float64{1}}}, guess, Settings{})
	assert.Error(t, err)

	_, err = FitSets(synthetic(mof, 0), guess, Settings{Method: "simplex"})
	assert.Error(t, err)

	inf := Params{QSatA: 1, B0A: 1, EA: 1e6, QSatB: 1, B0B: 1, EB: 1}
	_, err = FitSets(synthetic(mof, 0), inf, Settings{})
	assert.True(t, errors.Is(err, ErrNonFinite))
}
