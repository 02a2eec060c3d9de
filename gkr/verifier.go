package gkr

import (
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/logger"
	"github.com/zkvm-labs/virtualbus/polynomial"
	"github.com/zkvm-labs/virtualbus/sumcheck"
	"github.com/zkvm-labs/virtualbus/transcript"
)

// gkrQueryBuilder assembles the final composition query of an intermediate
// layer sum-check: the four claimed openings followed by the EQ value, which
// the verifier computes itself from the layer's claim point.
type gkrQueryBuilder struct {
	claimPoint []fr.Element
}

func (b gkrQueryBuilder) BuildQuery(openings, evaluationPoint []fr.Element) ([]fr.Element, error) {
	if len(openings) != 4 {
		return nil, fmt.Errorf("got %d openings, expected 4", len(openings))
	}
	eq, err := polynomial.NewEqFunction(b.claimPoint).Evaluate(evaluationPoint)
	if err != nil {
		return nil, err
	}
	query := make([]fr.Element, 0, 5)
	query = append(query, openings...)
	query = append(query, eq)
	return query, nil
}

// mergeQueryBuilder assembles the final query of the input-layer sum-check:
// the claimed trace column openings followed by the EQ value at the wire
// challenges joined with the row challenges.
type mergeQueryBuilder struct {
	claimPoint      []fr.Element
	mergeRandomness []fr.Element
	width           int
}

func (b mergeQueryBuilder) BuildQuery(openings, evaluationPoint []fr.Element) ([]fr.Element, error) {
	if len(openings) != b.width {
		return nil, fmt.Errorf("got %d openings, expected %d trace columns", len(openings), b.width)
	}
	point := make([]fr.Element, 0, len(b.mergeRandomness)+len(evaluationPoint))
	point = append(point, b.mergeRandomness...)
	point = append(point, evaluationPoint...)
	eq, err := polynomial.NewEqFunction(b.claimPoint).Evaluate(point)
	if err != nil {
		return nil, err
	}
	query := make([]fr.Element, 0, b.width+1)
	query = append(query, openings...)
	query = append(query, eq)
	return query, nil
}

// Verify checks a GKR proof against the trace layout and the shared
// randomness. On success it returns the final opening claim: the trace
// columns allegedly open to the returned values at the returned point, which
// the outer proof-composition layer must verify against the trace commitment.
//
// Every failure on proof data is a typed error; Verify never panics on
// attacker-controlled input.
func Verify(proof *GkrCircuitProof, layout TraceLayout, alphas []fr.Element, combiningRandomness fr.Element, fs *transcript.Transcript) (*sumcheck.FinalOpeningClaim, error) {
	log := logger.Logger().With().Str("component", "gkr-verifier").Logger()
	start := time.Now()

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("missing LogUp randomness")
	}
	if len(proof.LayerProofs) < 4 {
		return nil, fmt.Errorf("got %d layer proofs, expected at least 4: %w",
			len(proof.LayerProofs), sumcheck.ErrMalformedProof)
	}
	numRowVariables := len(proof.LayerProofs) - 3

	output := proof.CircuitOutputs
	if len(output.Numerators) != 2 || len(output.Denominators) != 2 {
		return nil, fmt.Errorf("output layer must have exactly 2 wires: %w", sumcheck.ErrMalformedProof)
	}
	if output.Denominators[0].IsZero() || output.Denominators[1].IsZero() {
		return nil, fmt.Errorf("output layer: %w", ErrDegenerateDenominator)
	}

	if err := fs.Absorb(output.Numerators[0], output.Numerators[1], output.Denominators[0], output.Denominators[1]); err != nil {
		return nil, err
	}
	r0, err := fs.Challenge()
	if err != nil {
		return nil, err
	}

	pClaim := evalLinear(output.Numerators[0], output.Numerators[1], r0)
	qClaim := evalLinear(output.Denominators[0], output.Denominators[1], r0)
	claimPoint := []fr.Element{r0}

	var claim fr.Element

	// intermediate layers, top to bottom
	for i := 0; i < numRowVariables+1; i++ {
		layerProof := proof.LayerProofs[i]

		claim.Mul(&qClaim, &combiningRandomness)
		claim.Add(&claim, &pClaim)

		engine := sumcheck.NewVerifier(NewGkrComposition(combiningRandomness), gkrQueryBuilder{claimPoint: claimPoint})
		foc, err := engine.Verify(claim, layerProof, i+1, fs)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		if err := fs.Absorb(foc.Openings...); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		mu, err := fs.Challenge()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		pClaim = evalLinear(foc.Openings[0], foc.Openings[1], mu)
		qClaim = evalLinear(foc.Openings[2], foc.Openings[3], mu)
		claimPoint = append([]fr.Element{mu}, foc.EvaluationPoint...)
	}

	// input layer, phase one: wire variables; no openings travel, the claim
	// carries straight into phase two
	phase1 := proof.LayerProofs[numRowVariables+1]
	if phase1.Openings != nil {
		return nil, fmt.Errorf("input layer phase 1 must not carry openings: %w", sumcheck.ErrMalformedProof)
	}
	if len(phase1.RoundProofs) != numWireVariables-1 {
		return nil, fmt.Errorf("input layer phase 1: got %d rounds, expected %d: %w",
			len(phase1.RoundProofs), numWireVariables-1, sumcheck.ErrMalformedProof)
	}

	claim.Mul(&qClaim, &combiningRandomness)
	claim.Add(&claim, &pClaim)

	phase1Verifier := sumcheck.NewVerifier(NewGkrComposition(combiningRandomness), nil)
	rc, err := phase1Verifier.VerifyRounds(claim, phase1.RoundProofs, fs)
	if err != nil {
		return nil, fmt.Errorf("input layer phase 1: %w", err)
	}
	mergeRandomness := rc.EvalPoint

	// input layer, phase two: row variables over the raw trace columns
	phase2 := proof.LayerProofs[numRowVariables+2]
	phase2Verifier := sumcheck.NewVerifier(
		NewGkrCompositionMerge(combiningRandomness, mergeRandomness, alphas, layout),
		mergeQueryBuilder{claimPoint: claimPoint, mergeRandomness: mergeRandomness, width: layout.Width},
	)
	foc, err := phase2Verifier.Verify(rc.Claim, phase2, numRowVariables, fs)
	if err != nil {
		return nil, fmt.Errorf("input layer phase 2: %w", err)
	}

	log.Debug().Dur("took", time.Since(start)).Int("numLayers", len(proof.LayerProofs)).Msg("proof verified")
	return &foc, nil
}
