// Package isotherm fits a dual-site Langmuir model with temperature
// dependent affinities to adsorption isotherms measured at several
// temperatures, and derives the isosteric heat of adsorption from the fitted
// model (Mason et al., Energy Environ. Sci. 4, 3030 (2011)).
package isotherm

import (
	"fmt"
	"math"
)

// R is the gas constant in kJ/(mol K).
const R = 8.3145e-3

// NParams is the number of parameters of the model.
const NParams = 6

// Params are the parameters of the dual-site Langmuir model
//
//	q(p, T) = Σ qsat_s b_s p / (1 + b_s p),   b_s = b0_s exp(E_s / RT)
//
// E is in kJ/mol. The units of qsat and b0 follow the data.
type Params struct {
	QSatA, B0A, EA float64
	QSatB, B0B, EB float64
}

// ParamsFromSlice returns the parameters stored in x in the order of Slice.
func ParamsFromSlice(x []float64) Params {
	return Params{x[0], x[1], x[2], x[3], x[4], x[5]}
}

// Slice returns the parameters in the order qsat_A, b0_A, E_A, qsat_B, b0_B,
// E_B.
func (p Params) Slice() []float64 {
	return []float64{p.QSatA, p.B0A, p.EA, p.QSatB, p.B0B, p.EB}
}

func (p Params) String() string {
	return fmt.Sprintf("[%g %g %g %g %g %g]", p.QSatA, p.B0A, p.EA, p.QSatB, p.B0B, p.EB)
}

// Names of the parameters, in the order of Slice.
var Names = [NParams]string{"q_sat_A", "b_A0", "E_A", "q_sat_B", "b_B0", "E_B"}

// affinity returns b0 exp(E/RT).
func affinity(b0, e, t float64) float64 {
	return b0 * math.Exp(e/(R*t))
}

// Affinities returns b_A and b_B at temperature t.
func (p Params) Affinities(t float64) (ba, bb float64) {
	return affinity(p.B0A, p.EA, t), affinity(p.B0B, p.EB, t)
}

// Loading returns the loading at pressure pr and temperature t.
func (p Params) Loading(pr, t float64) float64 {
	ba, bb := p.Affinities(t)
	return p.QSatA*ba*pr/(1+ba*pr) + p.QSatB*bb*pr/(1+bb*pr)
}

// grad stores the derivatives of Loading with respect to each parameter in
// dst.
func (p Params) grad(dst []float64, pr, t float64) {
	site := func(dst []float64, qsat, b0, e float64) {
		x := math.Exp(e / (R * t))
		b := b0 * x
		den := 1 + b*pr
		dqdb := qsat * pr / (den * den)

		dst[0] = b * pr / den
		dst[1] = dqdb * x
		dst[2] = dqdb * b / (R * t)
	}
	site(dst[0:3], p.QSatA, p.B0A, p.EA)
	site(dst[3:6], p.QSatB, p.B0B, p.EB)
}

// Pressure returns the pressure at which the loading is q at temperature t.
// It is the positive root of α p² + β p − q = 0. NaN is returned when q is
// not below the total saturation capacity.
func (p Params) Pressure(q, t float64) float64 {
	if q <= 0 {
		return 0
	}
	if q >= p.QSatA+p.QSatB {
		return math.NaN()
	}

	ba, bb := p.Affinities(t)
	alpha := (p.QSatA + p.QSatB - q) * ba * bb
	beta := (p.QSatA-q)*ba + (p.QSatB-q)*bb
	return 2 * q / (beta + math.Sqrt(beta*beta+4*alpha*q))
}

// Qst returns the isosteric heat of adsorption (kJ/mol) at loading q and
// temperature t, RT² (∂ln p/∂T) at constant q, from the analytic inverse of
// the model.
func (p Params) Qst(q, t float64) float64 {
	ba, bb := p.Affinities(t)
	rt2 := R * t * t

	alpha := (p.QSatA + p.QSatB - q) * ba * bb
	beta := (p.QSatA-q)*ba + (p.QSatB-q)*bb

	dba := -ba * p.EA / rt2
	dbb := -bb * p.EB / rt2
	dbabb := -ba * bb * (p.EA + p.EB) / rt2

	dalpha := (p.QSatA + p.QSatB - q) * dbabb
	dbeta := (p.QSatA-q)*dba + (p.QSatB-q)*dbb

	s := math.Sqrt(beta*beta + 4*alpha*q)
	diff := s - beta
	if beta > 0 {
		diff = 4 * alpha * q / (s + beta)
	}
	der := (2*q*dalpha-dbeta*diff)/(s*diff) - dalpha/alpha

	return rt2 * der
}

// QstCurve returns the isosteric heat at temperature t for each loading of
// q.
func (p Params) QstCurve(q []float64, t float64) []float64 {
	res := make([]float64, len(q))
	for i, v := range q {
		res[i] = p.Qst(v, t)
	}
	return res
}

// Curve returns the loadings at temperature t for each pressure of pr.
func (p Params) Curve(pr []float64, t float64) []float64 {
	res := make([]float64, len(pr))
	for i, v := range pr {
		res[i] = p.Loading(v, t)
	}
	return res
}
