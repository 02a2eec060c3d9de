package sumcheck

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/transcript"
)

// Verifier runs the verifier side of the sum-check protocol for a fixed
// composition. The query builder assembles the composition query of the final
// check from the proof's openings; verifiers that only reduce claims without
// a final check may leave it nil and use VerifyRounds directly.
type Verifier struct {
	composition  CompositionPolynomial
	queryBuilder FinalQueryBuilder
	degree       int
}

// NewVerifier creates a verifier for the given composition.
func NewVerifier(composition CompositionPolynomial, queryBuilder FinalQueryBuilder) *Verifier {
	degree := composition.MaxDegree()
	if degree < 1 {
		degree = 1
	}
	return &Verifier{composition: composition, queryBuilder: queryBuilder, degree: degree}
}

// VerifyRounds checks the round polynomials against the running claim and
// reduces the claim round by round. It returns the reduced claim and the
// evaluation point assembled from the challenges.
func (v *Verifier) VerifyRounds(claim fr.Element, roundProofs []RoundProof, fs *transcript.Transcript) (RoundClaim, error) {
	rc := RoundClaim{
		EvalPoint: make([]fr.Element, 0, len(roundProofs)),
		Claim:     claim,
	}
	for i := range roundProofs {
		evals := roundProofs[i].PolyEvals
		if len(evals) != v.degree {
			return RoundClaim{}, fmt.Errorf("round %d: got %d evaluations for a degree-%d bound: %w",
				i, len(evals), v.degree, ErrRoundConsistency)
		}
		if err := fs.Absorb(evals...); err != nil {
			return RoundClaim{}, fmt.Errorf("round %d: %w", i, err)
		}
		challenge, err := fs.Challenge()
		if err != nil {
			return RoundClaim{}, fmt.Errorf("round %d: %w", i, err)
		}
		rc = reduceClaim(evals.ToPoly(rc.Claim), rc, challenge)
	}
	return rc, nil
}

// Verify checks a complete sum-check instance: numRounds round polynomials
// followed by a final evaluation of the composition at the query built from
// the proof's openings. On success it returns the opening claim the instance
// reduces to.
func (v *Verifier) Verify(claim fr.Element, proof Proof, numRounds int, fs *transcript.Transcript) (FinalOpeningClaim, error) {
	if len(proof.RoundProofs) != numRounds {
		return FinalOpeningClaim{}, fmt.Errorf("got %d round proofs, expected %d: %w",
			len(proof.RoundProofs), numRounds, ErrMalformedProof)
	}
	if proof.Openings == nil {
		return FinalOpeningClaim{}, fmt.Errorf("missing openings: %w", ErrMalformedProof)
	}

	rc, err := v.VerifyRounds(claim, proof.RoundProofs, fs)
	if err != nil {
		return FinalOpeningClaim{}, err
	}

	query, err := v.queryBuilder.BuildQuery(proof.Openings, rc.EvalPoint)
	if err != nil {
		return FinalOpeningClaim{}, fmt.Errorf("final query: %s: %w", err, ErrMalformedProof)
	}
	if len(query) != v.composition.NumVars() {
		return FinalOpeningClaim{}, fmt.Errorf("final query has arity %d, composition expects %d: %w",
			len(query), v.composition.NumVars(), ErrMalformedProof)
	}

	eval := v.composition.Evaluate(query)
	if !eval.Equal(&rc.Claim) {
		return FinalOpeningClaim{}, ErrFinalEvaluationMismatch
	}

	return FinalOpeningClaim{
		EvaluationPoint: rc.EvalPoint,
		Openings:        proof.Openings,
	}, nil
}
