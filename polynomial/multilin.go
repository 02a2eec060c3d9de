// Package polynomial provides the dense multilinear polynomials, the Lagrange
// kernel of the EQ function and the compressed univariate round-polynomial
// codec used by the sum-check and GKR provers.
package polynomial

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrDimensionMismatch is returned when an evaluation point or kernel does not
// match the number of variables of the polynomial it is applied to.
var ErrDimensionMismatch = errors.New("evaluation point dimension mismatch")

// MultiLin represents a dense multilinear polynomial by its evaluations over
// the boolean hypercube {0,1}^ν. The length is a power of two, and variable k
// of the polynomial corresponds to bit k of the evaluation index, so variable 0
// is the least-significant index bit.
type MultiLin []fr.Element

// NewMultiLin builds a multilinear polynomial from its hypercube evaluations.
// The length of evals must be a power of two.
func NewMultiLin(evals []fr.Element) (MultiLin, error) {
	n := len(evals)
	if n == 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("multilinear polynomial needs a power-of-two number of evaluations, got %d", n)
	}
	return MultiLin(evals), nil
}

// NumVars returns the number of variables of the polynomial.
func (m MultiLin) NumVars() int {
	return bits.TrailingZeros(uint(len(m)))
}

// Fold fixes the least-significant variable of m to r, in place. The receiver
// is shortened to half its length:
//
//	m'[y] = m[2y] + r·(m[2y+1] − m[2y])
func (m *MultiLin) Fold(r fr.Element) {
	q := *m
	half := len(q) / 2
	var t fr.Element
	for y := 0; y < half; y++ {
		t.Sub(&q[2*y+1], &q[2*y])
		t.Mul(&t, &r)
		q[y].Add(&q[2*y], &t)
	}
	*m = q[:half]
}

// Clone returns a deep copy of m.
func (m MultiLin) Clone() MultiLin {
	res := make(MultiLin, len(m))
	copy(res, m)
	return res
}

// Evaluate computes m(point) as the inner product of the hypercube evaluations
// with the Lagrange kernel of point.
func (m MultiLin) Evaluate(point []fr.Element) (fr.Element, error) {
	if len(point) != m.NumVars() {
		return fr.Element{}, fmt.Errorf("%w: polynomial has %d variables, point has %d coordinates",
			ErrDimensionMismatch, m.NumVars(), len(point))
	}
	kernel := EqFunction{r: point}.Evaluations()
	return m.EvaluateWithKernel(kernel), nil
}

// EvaluateWithKernel computes the inner product of the hypercube evaluations
// with a precomputed Lagrange kernel. The kernel length must equal len(m);
// this is a trusted internal path and is not re-checked.
func (m MultiLin) EvaluateWithKernel(kernel []fr.Element) fr.Element {
	return InnerProduct(m, kernel)
}

// ProjectLeastSignificantVariable splits m into the two multilinear
// polynomials obtained by fixing the least-significant variable to 0 and 1.
func (m MultiLin) ProjectLeastSignificantVariable() (even, odd MultiLin) {
	half := len(m) / 2
	even = make(MultiLin, half)
	odd = make(MultiLin, half)
	for y := 0; y < half; y++ {
		even[y] = m[2*y]
		odd[y] = m[2*y+1]
	}
	return even, odd
}

// InnerProduct computes Σ a[i]·b[i]. The slices must have equal length.
func InnerProduct(a, b []fr.Element) fr.Element {
	var res, t fr.Element
	for i := range a {
		t.Mul(&a[i], &b[i])
		res.Add(&res, &t)
	}
	return res
}
