package gkr

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/polynomial"
)

// GkrComposition is the composition of every layer transition except the
// input one. The query is [p0, p1, q0, q1, eq] and the composition applies
// the fraction-addition gate under the EQ weight, with the numerator and
// denominator claims batched by the combining randomness λ:
//
//	eq · (p0·q1 + p1·q0 + λ·q0·q1)
type GkrComposition struct {
	combiningRandomness fr.Element
}

// NewGkrComposition creates the intermediate-layer composition.
func NewGkrComposition(combiningRandomness fr.Element) GkrComposition {
	return GkrComposition{combiningRandomness: combiningRandomness}
}

func (c GkrComposition) NumVars() int { return 5 }

func (c GkrComposition) MaxDegree() int { return 3 }

func (c GkrComposition) Evaluate(query []fr.Element) fr.Element {
	p0, p1, q0, q1, eq := query[0], query[1], query[2], query[3], query[4]

	var res, t fr.Element
	res.Mul(&p0, &q1)
	t.Mul(&p1, &q0)
	res.Add(&res, &t)
	t.Mul(&q0, &q1)
	t.Mul(&t, &c.combiningRandomness)
	res.Add(&res, &t)
	res.Mul(&res, &eq)
	return res
}

// GkrCompositionMerge is the composition of the row-variable phase of the
// input-layer sum-check. The query is a full trace row followed by the EQ
// value. The input-layer fractions are recomputed from the raw trace query,
// split along the least-significant wire variable, and the two halves are
// merged with the Lagrange kernel of the wire-variable challenges before the
// gate formula applies. Degree 5: the fractions are cubic in the trace
// columns and the gate adds a numerator-denominator product under the EQ
// weight.
type GkrCompositionMerge struct {
	combiningRandomness fr.Element

	// Lagrange kernel of the wire-variable challenges
	tensoredMergeRandomness []fr.Element

	alphas []fr.Element
	layout TraceLayout
}

// NewGkrCompositionMerge creates the input-layer composition from the
// combining randomness λ, the wire-variable challenges and the LogUp
// randomness.
func NewGkrCompositionMerge(combiningRandomness fr.Element, mergeRandomness []fr.Element, alphas []fr.Element, layout TraceLayout) GkrCompositionMerge {
	return GkrCompositionMerge{
		combiningRandomness:     combiningRandomness,
		tensoredMergeRandomness: polynomial.NewEqFunction(mergeRandomness).Evaluations(),
		alphas:                  alphas,
		layout:                  layout,
	}
}

func (c GkrCompositionMerge) NumVars() int { return c.layout.Width + 1 }

func (c GkrCompositionMerge) MaxDegree() int { return 5 }

func (c GkrCompositionMerge) Evaluate(query []fr.Element) fr.Element {
	var nums, denoms [numWiresPerTraceRow]fr.Element
	evaluateFractions(c.layout, query[:c.layout.Width], c.alphas, nums[:], denoms[:])

	leftNums, rightNums := polynomial.MultiLin(nums[:]).ProjectLeastSignificantVariable()
	leftDenoms, rightDenoms := polynomial.MultiLin(denoms[:]).ProjectLeastSignificantVariable()

	p0 := leftNums.EvaluateWithKernel(c.tensoredMergeRandomness)
	p1 := rightNums.EvaluateWithKernel(c.tensoredMergeRandomness)
	q0 := leftDenoms.EvaluateWithKernel(c.tensoredMergeRandomness)
	q1 := rightDenoms.EvaluateWithKernel(c.tensoredMergeRandomness)

	eq := query[c.layout.Width]

	var res, t fr.Element
	res.Mul(&p0, &q1)
	t.Mul(&p1, &q0)
	res.Add(&res, &t)
	t.Mul(&q0, &q1)
	t.Mul(&t, &c.combiningRandomness)
	res.Add(&res, &t)
	res.Mul(&res, &eq)
	return res
}
