package gkr

import (
	"fmt"
	"math/bits"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"golang.org/x/sync/errgroup"

	"github.com/zkvm-labs/virtualbus/polynomial"
)

// circuitWire is a fraction numerator/denominator carried on a circuit wire.
type circuitWire struct {
	numerator   fr.Element
	denominator fr.Element
}

// newCircuitWire builds a wire from a fraction. The denominator must not be
// zero; this is a trusted prover-side path so a violation is a bug and
// panics.
func newCircuitWire(numerator, denominator fr.Element) circuitWire {
	if denominator.IsZero() {
		panic("gkr: zero denominator on a circuit wire")
	}
	return circuitWire{numerator: numerator, denominator: denominator}
}

// add is fraction addition: a/b + c/d = (a·d + c·b) / (b·d).
func (w circuitWire) add(other circuitWire) circuitWire {
	var num, den, t fr.Element
	num.Mul(&w.numerator, &other.denominator)
	t.Mul(&other.numerator, &w.denominator)
	num.Add(&num, &t)
	den.Mul(&w.denominator, &other.denominator)
	return newCircuitWire(num, den)
}

// CircuitLayerPolys holds one circuit layer as a pair of multilinear
// polynomials over the wire index, numerators and denominators separately.
type CircuitLayerPolys struct {
	Numerators   polynomial.MultiLin
	Denominators polynomial.MultiLin
}

// evaluatedCircuit is the fully evaluated fraction circuit, input layer
// first, each subsequent layer obtained by adding adjacent wire pairs, down
// to the two-wire output layer.
type evaluatedCircuit struct {
	layers []CircuitLayerPolys
}

// outputLayer returns the last, two-wire layer.
func (c *evaluatedCircuit) outputLayer() CircuitLayerPolys {
	return c.layers[len(c.layers)-1]
}

// evaluateCircuit builds and evaluates the fraction circuit over the trace.
// The input layer is built row-parallel; a vanishing denominator is reported
// with its row index since it identifies a LogUp randomness collision, not a
// malformed proof.
func evaluateCircuit(trace *MainTrace, layout TraceLayout, alphas []fr.Element) (*evaluatedCircuit, error) {
	numRows := trace.NumRows()
	inputSize := numRows * numWiresPerTraceRow

	nums := make(polynomial.MultiLin, inputSize)
	denoms := make(polynomial.MultiLin, inputSize)

	// wire w of row i sits at index numWiresPerTraceRow·i + w, so the wire
	// index occupies the low bits and adjacent wires pair up under folding
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	chunk := (numRows + runtime.NumCPU() - 1) / runtime.NumCPU()
	for start := 0; start < numRows; start += chunk {
		start := start
		end := min(start+chunk, numRows)
		g.Go(func() error {
			row := make([]fr.Element, trace.Width())
			for i := start; i < end; i++ {
				trace.Row(i, row)
				base := i * numWiresPerTraceRow
				evaluateFractions(layout, row, alphas, nums[base:base+numWiresPerTraceRow], denoms[base:base+numWiresPerTraceRow])
				for w := 0; w < numWiresPerTraceRow; w++ {
					if denoms[base+w].IsZero() {
						return fmt.Errorf("row %d wire %d: %w", i, w, ErrDegenerateDenominator)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	numLayers := bits.TrailingZeros(uint(inputSize))
	layers := make([]CircuitLayerPolys, numLayers)
	layers[0] = CircuitLayerPolys{Numerators: nums, Denominators: denoms}

	for l := 1; l < numLayers; l++ {
		prev := layers[l-1]
		half := len(prev.Numerators) / 2
		layer := CircuitLayerPolys{
			Numerators:   make(polynomial.MultiLin, half),
			Denominators: make(polynomial.MultiLin, half),
		}
		for j := 0; j < half; j++ {
			left := newCircuitWire(prev.Numerators[2*j], prev.Denominators[2*j])
			right := newCircuitWire(prev.Numerators[2*j+1], prev.Denominators[2*j+1])
			sum := left.add(right)
			layer.Numerators[j] = sum.numerator
			layer.Denominators[j] = sum.denominator
		}
		layers[l] = layer
	}

	return &evaluatedCircuit{layers: layers}, nil
}
