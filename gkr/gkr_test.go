package gkr

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkvm-labs/virtualbus/polynomial"
	"github.com/zkvm-labs/virtualbus/sumcheck"
	"github.com/zkvm-labs/virtualbus/transcript"
)

func testLayout() TraceLayout {
	return TraceLayout{
		MultiplicityCol: 0,
		RangeValueCol:   1,
		MemSelectorCol:  2,
		MemValue0Col:    5,
		MemValue1Col:    6,
		OpBitsCol:       7,
		StackHelperCol:  14,
		Width:           18,
	}
}

// randomTrace builds a trace with random values, keeping the selector and
// op-bit columns binary the way a real decoder trace would.
func randomTrace(t *testing.T, numRowVariables int) *MainTrace {
	t.Helper()
	layout := testLayout()
	numRows := 1 << numRowVariables

	binary := map[int]bool{
		layout.MemSelectorCol:     true,
		layout.MemSelectorCol + 1: true,
		layout.MemSelectorCol + 2: true,
		layout.OpBitsCol + 4:      true,
		layout.OpBitsCol + 5:      true,
		layout.OpBitsCol + 6:      true,
	}

	columns := make([]polynomial.MultiLin, layout.Width)
	var buf fr.Element
	for c := range columns {
		columns[c] = make(polynomial.MultiLin, numRows)
		for i := range columns[c] {
			_, err := buf.SetRandom()
			require.NoError(t, err)
			if binary[c] {
				if buf.BigInt(new(big.Int)).Bit(0) == 1 {
					columns[c][i].SetOne()
				}
			} else {
				columns[c][i] = buf
			}
		}
	}

	trace, err := NewMainTrace(columns)
	require.NoError(t, err)
	return trace
}

func randomRandomness(t *testing.T) (alphas []fr.Element, lambda fr.Element) {
	t.Helper()
	alphas = make([]fr.Element, 1)
	_, err := alphas[0].SetRandom()
	require.NoError(t, err)
	_, err = lambda.SetRandom()
	require.NoError(t, err)
	return alphas, lambda
}

func newTestTranscript(numRows int) *transcript.Transcript {
	return transcript.New(sha256.New(), "gkr-test", TranscriptSize(numRows))
}

func TestProveVerifyRoundTrip(t *testing.T) {
	for numRowVariables := 1; numRowVariables <= 4; numRowVariables++ {
		trace := randomTrace(t, numRowVariables)
		layout := testLayout()
		alphas, lambda := randomRandomness(t)

		proverFs := newTestTranscript(trace.NumRows())
		proof, err := Prove(trace, layout, alphas, lambda, proverFs)
		require.NoError(t, err)
		assert.Equal(t, 0, proverFs.Remaining(), "prover must consume the whole challenge budget")
		require.Len(t, proof.LayerProofs, numRowVariables+3)

		verifierFs := newTestTranscript(trace.NumRows())
		foc, err := Verify(proof, layout, alphas, lambda, verifierFs)
		require.NoError(t, err)
		assert.Equal(t, 0, verifierFs.Remaining(), "verifier must consume the whole challenge budget")

		// the argument reduces to openings of the trace columns themselves
		require.Len(t, foc.EvaluationPoint, numRowVariables)
		require.Len(t, foc.Openings, layout.Width)
		for c := 0; c < trace.Width(); c++ {
			expected, err := trace.Column(c).Evaluate(foc.EvaluationPoint)
			require.NoError(t, err)
			assert.True(t, foc.Openings[c].Equal(&expected), "column %d", c)
		}
	}
}

func TestEvaluateOutputMatchesDirectSum(t *testing.T) {
	const numRowVariables = 3
	trace := randomTrace(t, numRowVariables)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	// direct rational sum Σ n_i/d_i over every input wire
	var expected, term fr.Element
	row := make([]fr.Element, trace.Width())
	var nums, denoms [numWiresPerTraceRow]fr.Element
	for i := 0; i < trace.NumRows(); i++ {
		trace.Row(i, row)
		evaluateFractions(layout, row, alphas, nums[:], denoms[:])
		for w := 0; w < numWiresPerTraceRow; w++ {
			term.Inverse(&denoms[w])
			term.Mul(&term, &nums[w])
			expected.Add(&expected, &term)
		}
	}

	num, den := EvaluateOutput(proof)
	require.False(t, den.IsZero())
	var got fr.Element
	got.Inverse(&den)
	got.Mul(&got, &num)
	assert.True(t, got.Equal(&expected))
}

func TestVerifyRejectsTamperedRoundPoly(t *testing.T) {
	trace := randomTrace(t, 3)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	var one fr.Element
	one.SetOne()
	evals := proof.LayerProofs[1].RoundProofs[0].PolyEvals
	evals[0].Add(&evals[0], &one)

	_, err = Verify(proof, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	assert.Error(t, err)
}

func TestVerifyRejectsTamperedOpenings(t *testing.T) {
	trace := randomTrace(t, 3)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	var one fr.Element
	one.SetOne()

	t.Run("intermediate layer", func(t *testing.T) {
		proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		require.NoError(t, err)

		proof.LayerProofs[0].Openings[2].Add(&proof.LayerProofs[0].Openings[2], &one)
		_, err = Verify(proof, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		assert.Error(t, err)
	})

	t.Run("trace columns", func(t *testing.T) {
		proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		require.NoError(t, err)

		last := len(proof.LayerProofs) - 1
		proof.LayerProofs[last].Openings[0].Add(&proof.LayerProofs[last].Openings[0], &one)
		_, err = Verify(proof, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		assert.ErrorIs(t, err, sumcheck.ErrFinalEvaluationMismatch)
	})
}

func TestVerifyRejectsTamperedOutputs(t *testing.T) {
	trace := randomTrace(t, 2)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	var one fr.Element
	one.SetOne()
	proof.CircuitOutputs.Numerators[0].Add(&proof.CircuitOutputs.Numerators[0], &one)

	_, err = Verify(proof, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	assert.Error(t, err)
}

func TestVerifyRejectsZeroOutputDenominator(t *testing.T) {
	trace := randomTrace(t, 2)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	proof.CircuitOutputs.Denominators[1].SetZero()

	_, err = Verify(proof, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	assert.ErrorIs(t, err, ErrDegenerateDenominator)
}

func TestVerifyRejectsWrongShape(t *testing.T) {
	trace := randomTrace(t, 2)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	t.Run("missing layer proofs", func(t *testing.T) {
		short := *proof
		short.LayerProofs = proof.LayerProofs[:3]
		_, err := Verify(&short, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		assert.ErrorIs(t, err, sumcheck.ErrMalformedProof)
	})

	t.Run("openings on the wire-variable phase", func(t *testing.T) {
		tampered := *proof
		tampered.LayerProofs = append([]sumcheck.Proof(nil), proof.LayerProofs...)
		phase1 := len(tampered.LayerProofs) - 2
		tampered.LayerProofs[phase1].Openings = make([]fr.Element, 4)
		_, err := Verify(&tampered, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
		assert.ErrorIs(t, err, sumcheck.ErrMalformedProof)
	})
}

func TestProveRejectsDegenerateDenominator(t *testing.T) {
	trace := randomTrace(t, 2)
	layout := testLayout()
	_, lambda := randomRandomness(t)

	// a LogUp randomness colliding with a range-checked value makes the
	// table-side denominator vanish
	alphas := []fr.Element{trace.Column(layout.RangeValueCol)[1]}

	_, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	assert.ErrorIs(t, err, ErrDegenerateDenominator)
}

func TestProofSerializationRoundTrip(t *testing.T) {
	trace := randomTrace(t, 3)
	layout := testLayout()
	alphas, lambda := randomRandomness(t)

	proof, err := Prove(trace, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	require.NoError(t, err)

	data, err := proof.MarshalBinary()
	require.NoError(t, err)

	var decoded GkrCircuitProof
	require.NoError(t, decoded.UnmarshalBinary(data))

	// the wire-variable phase must keep its nil openings through the codec
	phase1 := len(decoded.LayerProofs) - 2
	assert.Nil(t, decoded.LayerProofs[phase1].Openings)

	_, err = Verify(&decoded, layout, alphas, lambda, newTestTranscript(trace.NumRows()))
	assert.NoError(t, err)
}

func TestLayoutValidate(t *testing.T) {
	layout := testLayout()
	assert.NoError(t, layout.Validate())

	bad := layout
	bad.StackHelperCol = layout.Width - 2
	assert.Error(t, bad.Validate())

	bad = layout
	bad.OpBitsCol = layout.Width - 5
	assert.Error(t, bad.Validate())

	bad = layout
	bad.MultiplicityCol = -1
	assert.Error(t, bad.Validate())
}

func TestTranscriptSize(t *testing.T) {
	// one output point, the triangular number of intermediate round
	// challenges, one merge challenge per intermediate layer, two wire
	// rounds and the row rounds
	assert.Equal(t, 9, TranscriptSize(2))
	assert.Equal(t, 14, TranscriptSize(4))
	assert.Equal(t, 20, TranscriptSize(8))
}
