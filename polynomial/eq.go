package polynomial

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// EqFunction is the multilinear EQ function pinned at a point r:
//
//	EQ(r, t) = Π_k ( r[k]·t[k] + (1 − r[k])·(1 − t[k]) )
//
// It equals 1 when t == r on the boolean hypercube and 0 on every other
// hypercube point.
type EqFunction struct {
	r []fr.Element
}

// NewEqFunction pins the EQ function at r. The point is copied.
func NewEqFunction(r []fr.Element) EqFunction {
	c := make([]fr.Element, len(r))
	copy(c, r)
	return EqFunction{r: c}
}

// NumVars returns the number of variables of the EQ function.
func (e EqFunction) NumVars() int {
	return len(e.r)
}

// Evaluate computes EQ(r, t).
func (e EqFunction) Evaluate(t []fr.Element) (fr.Element, error) {
	if len(t) != len(e.r) {
		return fr.Element{}, fmt.Errorf("%w: EQ function has %d variables, point has %d coordinates",
			ErrDimensionMismatch, len(e.r), len(t))
	}
	var one fr.Element
	one.SetOne()

	var res, term, a, b fr.Element
	res.SetOne()
	for k := range e.r {
		term.Mul(&e.r[k], &t[k])
		a.Sub(&one, &e.r[k])
		b.Sub(&one, &t[k])
		a.Mul(&a, &b)
		term.Add(&term, &a)
		res.Mul(&res, &term)
	}
	return res, nil
}

// Evaluations returns the Lagrange kernel of r, the table of EQ(r, y) over all
// y in {0,1}^ν indexed so that bit k of the table index corresponds to
// variable k. Runs in O(2^ν) by a doubling recurrence.
func (e EqFunction) Evaluations() []fr.Element {
	evals := make([]fr.Element, 1<<len(e.r))
	evals[0].SetOne()

	// each pass interleaves one more coordinate as the new least-significant
	// index bit, so coordinates are consumed from the last down to r[0]
	size := 1
	for i := len(e.r) - 1; i >= 0; i-- {
		for p := size - 1; p >= 0; p-- {
			evals[2*p+1].Mul(&evals[p], &e.r[i])
			evals[2*p].Sub(&evals[p], &evals[2*p+1])
		}
		size *= 2
	}
	return evals
}

// EqMLAt returns the multilinear extension of EQ(point, ·) as a dense
// polynomial over the hypercube.
func EqMLAt(point []fr.Element) MultiLin {
	return MultiLin(NewEqFunction(point).Evaluations())
}
