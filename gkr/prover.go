package gkr

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/logger"
	"github.com/zkvm-labs/virtualbus/polynomial"
	"github.com/zkvm-labs/virtualbus/sumcheck"
	"github.com/zkvm-labs/virtualbus/transcript"
)

// numWireVariables is log2(numWiresPerTraceRow), the number of input-layer
// index bits addressing the wire within a row.
const numWireVariables = 3

// TranscriptSize returns the challenge budget of a proof over a trace with
// numRows rows. Both sides must construct their transcript with this budget
// so the pregenerated challenge names agree.
func TranscriptSize(numRows int) int {
	nu := bits.TrailingZeros(uint(numRows))
	// output-layer point, the intermediate round challenges and layer merge
	// challenges, then the two input-layer phases
	return 1 + (nu+1)*(nu+2)/2 + (nu + 1) + 2 + nu
}

// Prove runs the GKR prover over the trace. The LogUp randomness alphas and
// the sum-check combining randomness are drawn by the caller from the outer
// transcript after the trace commitment; the transcript fs sequences
// everything the argument itself absorbs and draws.
//
// The returned proof's final openings are the values of the trace columns at
// the evaluation point of the last sum-check; proving those openings against
// the trace commitment is the outer layer's concern.
func Prove(trace *MainTrace, layout TraceLayout, alphas []fr.Element, combiningRandomness fr.Element, fs *transcript.Transcript) (*GkrCircuitProof, error) {
	log := logger.Logger().With().Str("component", "gkr-prover").Logger()
	start := time.Now()

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if trace.Width() != layout.Width {
		return nil, fmt.Errorf("trace has %d columns, layout declares %d", trace.Width(), layout.Width)
	}
	if len(alphas) == 0 {
		return nil, fmt.Errorf("missing LogUp randomness")
	}

	circuit, err := evaluateCircuit(trace, layout, alphas)
	if err != nil {
		return nil, err
	}
	log.Debug().Dur("took", time.Since(start)).Int("numRows", trace.NumRows()).Msg("circuit evaluated")

	numLayers := len(circuit.layers)
	proof := &GkrCircuitProof{
		CircuitOutputs: circuit.outputLayer(),
		LayerProofs:    make([]sumcheck.Proof, 0, numLayers),
	}

	// absorb the output layer and draw the point the output claims live at
	output := circuit.outputLayer()
	if err := fs.Absorb(output.Numerators[0], output.Numerators[1], output.Denominators[0], output.Denominators[1]); err != nil {
		return nil, err
	}
	r0, err := fs.Challenge()
	if err != nil {
		return nil, err
	}

	claimPoint := []fr.Element{r0}

	// one sum-check per intermediate layer transition, top to bottom
	engine := sumcheck.NewProver(NewGkrComposition(combiningRandomness))
	for i := 0; i < numLayers-2; i++ {
		layer := circuit.layers[numLayers-2-i]
		p0, p1 := layer.Numerators.ProjectLeastSignificantVariable()
		q0, q1 := layer.Denominators.ProjectLeastSignificantVariable()
		eq := polynomial.EqMLAt(claimPoint)
		mls := []polynomial.MultiLin{p0, p1, q0, q1, eq}

		layerProof, challenges, err := engine.Prove(mls, i+1, fs)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		// the verifier recomputes the EQ value itself, so its opening is
		// dropped from the proof
		layerProof.Openings = layerProof.Openings[:4]
		if err := fs.Absorb(layerProof.Openings...); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		mu, err := fs.Challenge()
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}

		claimPoint = append([]fr.Element{mu}, challenges...)

		proof.LayerProofs = append(proof.LayerProofs, layerProof)
	}

	// input layer, phase one: bind the wire variables
	inputLayer := circuit.layers[0]
	p0, p1 := inputLayer.Numerators.ProjectLeastSignificantVariable()
	q0, q1 := inputLayer.Denominators.ProjectLeastSignificantVariable()
	eq := polynomial.EqMLAt(claimPoint)
	mls := []polynomial.MultiLin{p0, p1, q0, q1, eq}

	phase1, mergeRandomness, err := engine.Prove(mls, numWireVariables-1, fs)
	if err != nil {
		return nil, fmt.Errorf("input layer phase 1: %w", err)
	}
	proof.LayerProofs = append(proof.LayerProofs, phase1)

	// input layer, phase two: bind the row variables over the raw trace
	// columns, with the EQ oracle already folded at the wire challenges
	mergeEngine := sumcheck.NewProver(NewGkrCompositionMerge(combiningRandomness, mergeRandomness, alphas, layout))
	phase2Mls := make([]polynomial.MultiLin, 0, trace.Width()+1)
	for c := 0; c < trace.Width(); c++ {
		phase2Mls = append(phase2Mls, trace.Column(c).Clone())
	}
	phase2Mls = append(phase2Mls, mls[4])

	phase2, _, err := mergeEngine.Prove(phase2Mls, trace.numRowVariables(), fs)
	if err != nil {
		return nil, fmt.Errorf("input layer phase 2: %w", err)
	}
	phase2.Openings = phase2.Openings[:trace.Width()]
	proof.LayerProofs = append(proof.LayerProofs, phase2)

	log.Debug().Dur("took", time.Since(start)).Int("numLayers", numLayers).Msg("proof generated")
	return proof, nil
}

// evalLinear evaluates the 1-variable multilinear through (v0, v1) at r.
func evalLinear(v0, v1, r fr.Element) fr.Element {
	var res fr.Element
	res.Sub(&v1, &v0)
	res.Mul(&res, &r)
	res.Add(&res, &v0)
	return res
}
