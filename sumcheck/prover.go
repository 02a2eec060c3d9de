package sumcheck

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/zkvm-labs/virtualbus/internal/parallel"
	"github.com/zkvm-labs/virtualbus/polynomial"
	"github.com/zkvm-labs/virtualbus/transcript"
)

// Prover runs the prover side of the sum-check protocol for a fixed
// composition.
type Prover struct {
	composition CompositionPolynomial
	degree      int
}

// NewProver creates a prover for the given composition. Compositions of
// declared degree zero are treated as degree one so that every round
// polynomial carries at least one evaluation.
func NewProver(composition CompositionPolynomial) *Prover {
	degree := composition.MaxDegree()
	if degree < 1 {
		degree = 1
	}
	return &Prover{composition: composition, degree: degree}
}

// Prove runs numRounds rounds of sum-check over the oracles mls, folding them
// in place with the transcript challenges. It returns the proof and the drawn
// challenges. When numRounds equals the oracles' variable count the proof
// carries the fully folded oracle values as openings; otherwise Openings is
// nil and the caller keeps working with the partially folded oracles.
//
// The oracles and round count are trusted prover inputs; dimension mismatches
// panic.
func (p *Prover) Prove(mls []polynomial.MultiLin, numRounds int, fs *transcript.Transcript) (Proof, []fr.Element, error) {
	if len(mls) != p.composition.NumVars() {
		panic(fmt.Sprintf("sumcheck: composition has arity %d, got %d oracles", p.composition.NumVars(), len(mls)))
	}
	numVars := mls[0].NumVars()
	for i := range mls {
		if mls[i].NumVars() != numVars {
			panic(fmt.Sprintf("sumcheck: oracle %d has %d variables, expected %d", i, mls[i].NumVars(), numVars))
		}
	}
	if numRounds < 1 || numRounds > numVars {
		panic(fmt.Sprintf("sumcheck: cannot run %d rounds over %d-variable oracles", numRounds, numVars))
	}

	proof := Proof{RoundProofs: make([]RoundProof, 0, numRounds)}
	challenges := make([]fr.Element, 0, numRounds)

	for round := 0; round < numRounds; round++ {
		evals := p.roundEvaluations(mls)

		if err := fs.Absorb(evals...); err != nil {
			return Proof{}, nil, fmt.Errorf("round %d: %w", round, err)
		}
		challenge, err := fs.Challenge()
		if err != nil {
			return Proof{}, nil, fmt.Errorf("round %d: %w", round, err)
		}

		for i := range mls {
			mls[i].Fold(challenge)
		}
		proof.RoundProofs = append(proof.RoundProofs, RoundProof{PolyEvals: evals})
		challenges = append(challenges, challenge)
	}

	if numRounds == numVars {
		proof.Openings = make([]fr.Element, len(mls))
		for i := range mls {
			proof.Openings[i] = mls[i][0]
		}
	}
	return proof, challenges, nil
}

// roundEvaluations computes the evaluations of the current round polynomial
// at 1, ..., degree:
//
//	s(x) = Σ_y g(m_0(x, y), ..., m_{k-1}(x, y))
//
// Along x each oracle is affine, so the query advances from m_i(1, y) by the
// per-oracle delta m_i(1, y) − m_i(0, y). Hypercube chunks are summed in
// parallel and merged under a mutex before the transcript is touched.
func (p *Prover) roundEvaluations(mls []polynomial.MultiLin) polynomial.RoundPolyEvals {
	half := len(mls[0]) / 2
	k := len(mls)

	evals := make(polynomial.RoundPolyEvals, p.degree)
	var mu sync.Mutex

	parallel.Execute(0, half, func(start, end int) {
		query := make([]fr.Element, k)
		deltas := make([]fr.Element, k)
		partial := make([]fr.Element, p.degree)

		for y := start; y < end; y++ {
			for i := range mls {
				deltas[i].Sub(&mls[i][2*y+1], &mls[i][2*y])
				query[i] = mls[i][2*y+1]
			}
			for x := 0; x < p.degree; x++ {
				if x > 0 {
					for i := range query {
						query[i].Add(&query[i], &deltas[i])
					}
				}
				v := p.composition.Evaluate(query)
				partial[x].Add(&partial[x], &v)
			}
		}

		mu.Lock()
		for x := range evals {
			evals[x].Add(&evals[x], &partial[x])
		}
		mu.Unlock()
	})

	return evals
}
