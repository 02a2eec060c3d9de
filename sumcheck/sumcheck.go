// Package sumcheck implements the sum-check protocol for compositions of
// multilinear polynomials over the BN254 scalar field.
//
// The prover convinces the verifier that
//
//	Σ_{y ∈ {0,1}^ν} g(m_0(y), ..., m_{k-1}(y)) = claim
//
// for a composition polynomial g and multilinear oracles m_i, one variable per
// round. Round polynomials travel in the compressed evaluation form of
// polynomial.RoundPolyEvals, so each round costs deg(g) field elements of
// proof data.
package sumcheck

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/polynomial"
)

var (
	// ErrMalformedProof is returned when a proof has the wrong number of
	// round proofs or openings for the instance being verified.
	ErrMalformedProof = errors.New("malformed sum-check proof")

	// ErrRoundConsistency is returned when a round polynomial contradicts
	// the degree bound of the composition.
	ErrRoundConsistency = errors.New("round polynomial violates the degree bound")

	// ErrFinalEvaluationMismatch is returned when the composition evaluated
	// at the final query disagrees with the reduced claim.
	ErrFinalEvaluationMismatch = errors.New("final composition evaluation does not match the reduced claim")
)

// CompositionPolynomial is a multivariate polynomial applied to the per-point
// values of the multilinear oracles.
type CompositionPolynomial interface {
	// NumVars is the arity of the composition, i.e. the query length.
	NumVars() int

	// MaxDegree bounds the degree of the composition in any single oracle,
	// and therefore the degree of every round polynomial.
	MaxDegree() int

	// Evaluate computes the composition at a query of length NumVars.
	// Implementations must be safe for concurrent use.
	Evaluate(query []fr.Element) fr.Element
}

// RoundProof carries the compressed round polynomial of one sum-check round.
type RoundProof struct {
	PolyEvals polynomial.RoundPolyEvals
}

// Proof is a complete sum-check proof. Openings holds the values of the
// multilinear oracles at the evaluation point assembled from the round
// challenges; it is nil when the instance runs fewer rounds than the oracles
// have variables, in which case the oracles are only partially bound.
type Proof struct {
	Openings    []fr.Element
	RoundProofs []RoundProof
}

// RoundClaim is the running claim of the protocol between rounds.
type RoundClaim struct {
	EvalPoint []fr.Element
	Claim     fr.Element
}

// FinalOpeningClaim is what a verified sum-check instance reduces to: the
// multilinear oracles allegedly open to Openings at EvaluationPoint. Checking
// the openings is the caller's concern.
type FinalOpeningClaim struct {
	EvaluationPoint []fr.Element
	Openings        []fr.Element
}

// FinalQueryBuilder assembles the composition query of the last round from
// the proof's openings and the accumulated evaluation point. It lets the
// verifier recompute values the prover must not be trusted on, such as EQ
// kernel evaluations.
type FinalQueryBuilder interface {
	BuildQuery(openings, evaluationPoint []fr.Element) ([]fr.Element, error)
}

// reduceClaim folds a verified round polynomial and its challenge into the
// running claim.
func reduceClaim(polyCoef polynomial.RoundPolyCoef, current RoundClaim, challenge fr.Element) RoundClaim {
	return RoundClaim{
		EvalPoint: append(current.EvalPoint, challenge),
		Claim:     polyCoef.EvaluateUsingClaim(current.Claim, challenge),
	}
}
