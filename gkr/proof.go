package gkr

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/fxamacker/cbor/v2"

	"github.com/zkvm-labs/virtualbus/polynomial"
	"github.com/zkvm-labs/virtualbus/sumcheck"
)

// GkrCircuitProof proves the correct evaluation of the fraction circuit.
// LayerProofs runs top to bottom: one sum-check proof per intermediate layer
// transition, then the two input-layer phases. The wire-variable phase has
// nil openings; the openings of the row-variable phase are the trace column
// openings the whole argument reduces to.
type GkrCircuitProof struct {
	CircuitOutputs CircuitLayerPolys
	LayerProofs    []sumcheck.Proof
}

// EvaluateOutput reduces the two-wire output layer to the circuit's single
// output fraction. Checking the bus balance num/den == 0, i.e. num == 0 with
// den != 0, belongs to the outer proof-composition layer.
func EvaluateOutput(proof *GkrCircuitProof) (num, den fr.Element) {
	n := proof.CircuitOutputs.Numerators
	d := proof.CircuitOutputs.Denominators

	var t fr.Element
	num.Mul(&n[0], &d[1])
	t.Mul(&n[1], &d[0])
	num.Add(&num, &t)
	den.Mul(&d[0], &d[1])
	return num, den
}

// wire encodings: field elements travel as canonical big-endian bytes

type layerProofEncoding struct {
	Rounds   [][][]byte `cbor:"1,keyasint"`
	Openings [][]byte   `cbor:"2,keyasint,omitempty"`
}

type proofEncoding struct {
	Numerators   [][]byte             `cbor:"1,keyasint"`
	Denominators [][]byte             `cbor:"2,keyasint"`
	Layers       []layerProofEncoding `cbor:"3,keyasint"`
}

func encodeElems(elems []fr.Element) [][]byte {
	if elems == nil {
		return nil
	}
	out := make([][]byte, len(elems))
	for i := range elems {
		out[i] = elems[i].Marshal()
	}
	return out
}

func decodeElems(in [][]byte) ([]fr.Element, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]fr.Element, len(in))
	for i := range in {
		if err := out[i].SetBytesCanonical(in[i]); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// MarshalBinary encodes the proof in CBOR.
func (p *GkrCircuitProof) MarshalBinary() ([]byte, error) {
	enc := proofEncoding{
		Numerators:   encodeElems(p.CircuitOutputs.Numerators),
		Denominators: encodeElems(p.CircuitOutputs.Denominators),
		Layers:       make([]layerProofEncoding, len(p.LayerProofs)),
	}
	for i, lp := range p.LayerProofs {
		rounds := make([][][]byte, len(lp.RoundProofs))
		for j := range lp.RoundProofs {
			rounds[j] = encodeElems(lp.RoundProofs[j].PolyEvals)
		}
		enc.Layers[i] = layerProofEncoding{
			Rounds:   rounds,
			Openings: encodeElems(lp.Openings),
		}
	}
	return cbor.Marshal(&enc)
}

// UnmarshalBinary decodes a CBOR proof. Field elements must be canonical;
// anything else is rejected.
func (p *GkrCircuitProof) UnmarshalBinary(data []byte) error {
	var enc proofEncoding
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return fmt.Errorf("decode proof: %w", err)
	}

	nums, err := decodeElems(enc.Numerators)
	if err != nil {
		return fmt.Errorf("output numerators: %w", err)
	}
	denoms, err := decodeElems(enc.Denominators)
	if err != nil {
		return fmt.Errorf("output denominators: %w", err)
	}
	p.CircuitOutputs = CircuitLayerPolys{Numerators: nums, Denominators: denoms}

	p.LayerProofs = make([]sumcheck.Proof, len(enc.Layers))
	for i, layer := range enc.Layers {
		rounds := make([]sumcheck.RoundProof, len(layer.Rounds))
		for j := range layer.Rounds {
			evals, err := decodeElems(layer.Rounds[j])
			if err != nil {
				return fmt.Errorf("layer %d round %d: %w", i, j, err)
			}
			rounds[j] = sumcheck.RoundProof{PolyEvals: polynomial.RoundPolyEvals(evals)}
		}
		openings, err := decodeElems(layer.Openings)
		if err != nil {
			return fmt.Errorf("layer %d openings: %w", i, err)
		}
		p.LayerProofs[i] = sumcheck.Proof{RoundProofs: rounds, Openings: openings}
	}
	return nil
}
