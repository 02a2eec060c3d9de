// Package gkr implements the LogUp-GKR argument over a fraction circuit built
// from the rows of a VM execution trace.
//
// Every trace row contributes a fixed number of wires to the input layer of a
// binary-tree circuit of fraction-addition gates. The circuit's single output
// fraction aggregates all lookup contributions; its correct evaluation is
// proven with one sum-check instance per layer, and everything reduces to an
// opening claim against the trace columns which the outer proof-composition
// layer discharges against the trace commitment.
package gkr

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/polynomial"
)

// ErrDegenerateDenominator is returned when a lookup denominator vanishes,
// which happens only if the LogUp randomness collides with a trace value.
var ErrDegenerateDenominator = errors.New("degenerate lookup denominator")

// numWiresPerTraceRow is the number of input-layer wires generated from a
// single main trace row. It must be a power of two so that the wire index
// occupies exactly the low bits of the input-layer index.
const numWiresPerTraceRow = 8

// MainTrace is the column-major execution trace the argument runs over. All
// columns have the same power-of-two length. A relation that needs a value
// from the next row reads it from an extra shifted column; the trace itself
// has no lookahead.
type MainTrace struct {
	columns []polynomial.MultiLin
}

// NewMainTrace wraps trace columns. All columns must have the same
// power-of-two number of rows, at least two.
func NewMainTrace(columns []polynomial.MultiLin) (*MainTrace, error) {
	if len(columns) == 0 {
		return nil, errors.New("trace has no columns")
	}
	n := len(columns[0])
	if n < 2 || n&(n-1) != 0 {
		return nil, fmt.Errorf("trace length must be a power of two at least 2, got %d", n)
	}
	for i := range columns {
		if len(columns[i]) != n {
			return nil, fmt.Errorf("column %d has %d rows, expected %d", i, len(columns[i]), n)
		}
	}
	return &MainTrace{columns: columns}, nil
}

// NumRows returns the number of trace rows.
func (t *MainTrace) NumRows() int {
	return len(t.columns[0])
}

// Width returns the number of trace columns.
func (t *MainTrace) Width() int {
	return len(t.columns)
}

// Column returns the i-th column oracle.
func (t *MainTrace) Column(i int) polynomial.MultiLin {
	return t.columns[i]
}

// Row copies row i into buf, which must have length Width.
func (t *MainTrace) Row(i int, buf []fr.Element) {
	for c := range t.columns {
		buf[c] = t.columns[c][i]
	}
}

// numRowVariables returns log2 of the number of rows.
func (t *MainTrace) numRowVariables() int {
	return bits.TrailingZeros(uint(t.NumRows()))
}

// TraceLayout locates inside the main trace the columns the lookup relations
// read. Offsets are column indices; MemSelectorCol names three consecutive
// selector columns, StackHelperCol four consecutive helper columns, and
// OpBitsCol the base of the decoder op-bit columns of which bits 4 to 6 are
// used.
type TraceLayout struct {
	MultiplicityCol int
	RangeValueCol   int
	MemSelectorCol  int
	MemValue0Col    int
	MemValue1Col    int
	OpBitsCol       int
	StackHelperCol  int
	Width           int
}

// Validate bounds-checks every offset against the trace width.
func (l TraceLayout) Validate() error {
	if l.Width <= 0 {
		return fmt.Errorf("invalid trace width %d", l.Width)
	}
	check := func(name string, first, last int) error {
		if first < 0 || last >= l.Width {
			return fmt.Errorf("column %s spans [%d, %d], out of bounds for width %d", name, first, last, l.Width)
		}
		return nil
	}
	if err := check("multiplicity", l.MultiplicityCol, l.MultiplicityCol); err != nil {
		return err
	}
	if err := check("range value", l.RangeValueCol, l.RangeValueCol); err != nil {
		return err
	}
	if err := check("memory selectors", l.MemSelectorCol, l.MemSelectorCol+2); err != nil {
		return err
	}
	if err := check("memory value 0", l.MemValue0Col, l.MemValue0Col); err != nil {
		return err
	}
	if err := check("memory value 1", l.MemValue1Col, l.MemValue1Col); err != nil {
		return err
	}
	if err := check("op bits", l.OpBitsCol, l.OpBitsCol+6); err != nil {
		return err
	}
	return check("stack helpers", l.StackHelperCol, l.StackHelperCol+3)
}

// evaluateFractions computes the numerators and denominators of the
// input-layer wires contributed by one trace row (or, during the final
// sum-check, by an out-of-hypercube trace query). Results are written into
// the caller's nums and denoms slices of length numWiresPerTraceRow.
//
// Wires 0 is the range-checker table side, wires 1-2 the memory chiplet
// reads, wires 3-6 the stack operand reads, and wire 7 is the neutral filler
// (0, 1) that pads the row to a power of two.
func evaluateFractions(layout TraceLayout, query []fr.Element, alphas []fr.Element, nums, denoms []fr.Element) {
	var one fr.Element
	one.SetOne()

	multiplicity := query[layout.MultiplicityCol]

	// f_m = s0·s1·(1 − s2) selects memory read rows
	var fm, t fr.Element
	fm.Mul(&query[layout.MemSelectorCol], &query[layout.MemSelectorCol+1])
	t.Sub(&one, &query[layout.MemSelectorCol+2])
	fm.Mul(&fm, &t)

	// f_rc = (1 − b4)·(1 − b5)·b6 selects range-check operations
	var frc fr.Element
	frc.Sub(&one, &query[layout.OpBitsCol+4])
	t.Sub(&one, &query[layout.OpBitsCol+5])
	frc.Mul(&frc, &t)
	frc.Mul(&frc, &query[layout.OpBitsCol+6])

	nums[0] = multiplicity
	nums[1], nums[2] = fm, fm
	nums[3], nums[4], nums[5], nums[6] = frc, frc, frc, frc
	nums[7].SetZero()

	// table side carries α0 − v, the request sides carry the negation v − α0
	denoms[0].Sub(&alphas[0], &query[layout.RangeValueCol])
	denoms[1].Sub(&query[layout.MemValue0Col], &alphas[0])
	denoms[2].Sub(&query[layout.MemValue1Col], &alphas[0])
	for k := 0; k < 4; k++ {
		denoms[3+k].Sub(&query[layout.StackHelperCol+k], &alphas[0])
	}
	denoms[7].SetOne()
}
