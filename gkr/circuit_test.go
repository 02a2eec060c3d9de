package gkr

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fractionValue reduces a wire to its field value n/d.
func fractionValue(w circuitWire) fr.Element {
	var res fr.Element
	res.Inverse(&w.denominator)
	res.Mul(&res, &w.numerator)
	return res
}

func wireFromUint(n, d uint64) circuitWire {
	var num, den fr.Element
	num.SetUint64(n)
	den.SetUint64(d)
	return newCircuitWire(num, den)
}

func TestCircuitWireAddMatchesFieldArithmetic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	properties.Property("wire addition equals field addition of the fractions", prop.ForAll(
		func(n1, d1, n2, d2 uint64) bool {
			a := wireFromUint(n1, d1)
			b := wireFromUint(n2, d2)
			sum := fractionValue(a.add(b))

			va := fractionValue(a)
			vb := fractionValue(b)
			var expected fr.Element
			expected.Add(&va, &vb)
			return sum.Equal(&expected)
		},
		gen.UInt64(), gen.UInt64Range(1, 1<<62), gen.UInt64(), gen.UInt64Range(1, 1<<62),
	))

	properties.Property("wire addition is associative", prop.ForAll(
		func(n1, d1, n2, d2, n3, d3 uint64) bool {
			a := wireFromUint(n1, d1)
			b := wireFromUint(n2, d2)
			c := wireFromUint(n3, d3)

			left := a.add(b).add(c)
			right := a.add(b.add(c))
			return left.numerator.Equal(&right.numerator) &&
				left.denominator.Equal(&right.denominator)
		},
		gen.UInt64(), gen.UInt64Range(1, 1<<62),
		gen.UInt64(), gen.UInt64Range(1, 1<<62),
		gen.UInt64(), gen.UInt64Range(1, 1<<62),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewCircuitWirePanicsOnZeroDenominator(t *testing.T) {
	var num, zero fr.Element
	num.SetOne()
	assert.Panics(t, func() { newCircuitWire(num, zero) })
}

func TestEvaluateCircuitLayerSizes(t *testing.T) {
	const numRowVariables = 3
	trace := randomTrace(t, numRowVariables)
	layout := testLayout()
	alphas, _ := randomRandomness(t)

	circuit, err := evaluateCircuit(trace, layout, alphas)
	require.NoError(t, err)

	// 8 wires per row halved down to the two-wire output layer
	require.Len(t, circuit.layers, numRowVariables+3)
	size := trace.NumRows() * numWiresPerTraceRow
	for l, layer := range circuit.layers {
		assert.Len(t, layer.Numerators, size, "layer %d", l)
		assert.Len(t, layer.Denominators, size, "layer %d", l)
		size /= 2
	}
	assert.Len(t, circuit.outputLayer().Numerators, 2)
}

func TestEvaluateCircuitLayerConsistency(t *testing.T) {
	trace := randomTrace(t, 2)
	layout := testLayout()
	alphas, _ := randomRandomness(t)

	circuit, err := evaluateCircuit(trace, layout, alphas)
	require.NoError(t, err)

	// every layer's wires are the pairwise fraction sums of the layer below
	for l := 1; l < len(circuit.layers); l++ {
		prev, cur := circuit.layers[l-1], circuit.layers[l]
		for j := range cur.Numerators {
			left := newCircuitWire(prev.Numerators[2*j], prev.Denominators[2*j])
			right := newCircuitWire(prev.Numerators[2*j+1], prev.Denominators[2*j+1])
			sum := left.add(right)
			assert.True(t, cur.Numerators[j].Equal(&sum.numerator), "layer %d wire %d", l, j)
			assert.True(t, cur.Denominators[j].Equal(&sum.denominator), "layer %d wire %d", l, j)
		}
	}
}
