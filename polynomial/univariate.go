package polynomial

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// RoundPolyEvals holds the evaluations of a univariate polynomial of degree d
// at the points 1, ..., d. The evaluation at 0 is omitted; it is recoverable
// from the round claim through the identity p(0) + p(1) = claim.
type RoundPolyEvals []fr.Element

// RoundPolyCoef holds the coefficients of a univariate polynomial of degree d
// with the linear term omitted: [c0, c2, c3, ..., cd]. The linear coefficient
// is recoverable from the round claim through 2·c0 + c1 + c2 + ... + cd = claim.
type RoundPolyCoef []fr.Element

// ToPoly interpolates the coefficient form of the round polynomial.
//
// Since the evaluation at 0 is omitted, the claim recovers it as
// c0 = p(0) = claim − p(1). With p(x) = c0 + x·q(x), the evaluations of q at
// 1, ..., d follow by a batched inversion and the interpolation problem
// shrinks by one. q is interpolated against the equidistant nodes with the
// inverse Vandermonde matrix factored as U·M, where both triangular factors
// satisfy sparse recurrences; the vector-matrix products then run in O(d²)
// time and O(d) space. The linear coefficient is dropped from the result.
func (e RoundPolyEvals) ToPoly(claim fr.Element) RoundPolyCoef {
	n := len(e)

	// interpolation nodes 1, ..., d and their inverses
	nodes := make([]fr.Element, n)
	for i := range nodes {
		nodes[i].SetUint64(uint64(i + 1))
	}
	nodesInv := fr.BatchInvert(nodes)

	var c0 fr.Element
	c0.Sub(&claim, &e[0])

	// evaluations of q(x) = (p(x) − c0)/x at the nodes
	qEvals := make([]fr.Element, n)
	for i := range qEvals {
		qEvals[i].Sub(&e[i], &c0)
		qEvals[i].Mul(&qEvals[i], &nodesInv[i])
	}

	qCoefs := multiplyByM(multiplyByU(qEvals), nodesInv)

	coefficients := make(RoundPolyCoef, 0, n)
	coefficients = append(coefficients, c0)
	coefficients = append(coefficients, qCoefs[1:]...)
	return coefficients
}

// EvaluateUsingClaim evaluates the polynomial at x after recovering the
// omitted linear coefficient from the round claim.
func (c RoundPolyCoef) EvaluateUsingClaim(claim, x fr.Element) fr.Element {
	// c1 = claim − Σ coefficients − c0
	var c1 fr.Element
	for i := range c {
		c1.Add(&c1, &c[i])
	}
	c1.Add(&c1, &c[0])
	c1.Sub(&claim, &c1)

	// Horner over [c0, c1, c2, ..., cd]
	var res fr.Element
	for i := len(c) - 1; i >= 1; i-- {
		res.Add(&res, &c[i])
		res.Mul(&res, &x)
	}
	res.Add(&res, &c1)
	res.Mul(&res, &x)
	res.Add(&res, &c[0])
	return res
}

// multiplyByU computes the row-vector product v·U where U is the upper
// triangular involutory factor of the inverse Vandermonde matrix, given by
// U(i, j) = U(i, j−1) − U(i−1, j−1) with U(1, j) = 1 and U(i, j) = 0 for i > j
// (1-based indexing). Columns are materialized one at a time.
func multiplyByU(vector []fr.Element) []fr.Element {
	n := len(vector)
	prevCol := make([]fr.Element, n)
	prevCol[0].SetOne()
	curCol := make([]fr.Element, n)
	curCol[0].SetOne()

	result := make([]fr.Element, n)
	var t fr.Element
	for i := 0; i < n; i++ {
		result[i] = vector[0]
		for j := 1; j <= i; j++ {
			curCol[j].Sub(&prevCol[j], &prevCol[j-1])
			t.Mul(&vector[j], &curCol[j])
			result[i].Add(&result[i], &t)
		}
		copy(prevCol, curCol)
	}
	return result
}

// multiplyByM computes the row-vector product v·M where M is the lower
// triangular factor of the inverse Vandermonde matrix, given by
// M(i, j) = M(i−1, j) − M(i−1, j−1)/(i−1) with M(i, 1) = 1 and M(i, j) = 0 for
// j > i (1-based indexing).
func multiplyByM(vector []fr.Element, nodesInv []fr.Element) []fr.Element {
	n := len(vector)
	prevCol := make([]fr.Element, n)
	for i := range prevCol {
		prevCol[i].SetOne()
	}
	curCol := make([]fr.Element, n)

	result := make([]fr.Element, n)
	for j := range vector {
		result[0].Add(&result[0], &vector[j])
	}

	var t fr.Element
	for i := 1; i < n; i++ {
		for j := range curCol {
			curCol[j].SetZero()
		}
		for j := i; j < n; j++ {
			t.Mul(&nodesInv[j-1], &prevCol[j-1])
			curCol[j].Sub(&curCol[j-1], &t)
			t.Mul(&vector[j], &curCol[j])
			result[i].Add(&result[i], &t)
		}
		copy(prevCol, curCol)
	}
	return result
}
