// Package transcript sequences the Fiat-Shamir challenges shared by the
// prover and the verifier. It wraps the gnark-crypto fiat-shamir transcript,
// which requires every challenge to be registered by name up front; the
// wrapper pre-generates a numbered sequence of names and hands out absorptions
// and challenges in order.
package transcript

import (
	"errors"
	"fmt"
	"hash"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	fiatshamir "github.com/consensys/gnark-crypto/fiat-shamir"
)

// ErrExhausted is returned when more challenges are requested than were
// registered at construction time.
var ErrExhausted = errors.New("transcript challenge budget exhausted")

// Transcript is a sequential Fiat-Shamir transcript over fr elements. Values
// absorbed between two challenges are bound to the next challenge drawn, so
// both sides observe the same absorb/draw schedule.
type Transcript struct {
	fs   *fiatshamir.Transcript
	ids  []string
	next int
}

// New creates a transcript over the given hash with a fixed challenge budget.
// Challenge names are prefix.0, prefix.1, ... so that identical (hash, prefix,
// budget) parameters on both sides produce identical challenge streams.
func New(h hash.Hash, prefix string, numChallenges int) *Transcript {
	ids := make([]string, numChallenges)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s.%d", prefix, i)
	}
	return &Transcript{
		fs:  fiatshamir.NewTranscript(h, ids...),
		ids: ids,
	}
}

// Absorb binds the canonical byte encoding of each element to the next
// challenge.
func (t *Transcript) Absorb(elems ...fr.Element) error {
	if t.next >= len(t.ids) {
		return ErrExhausted
	}
	for i := range elems {
		b := elems[i].Marshal()
		if err := t.fs.Bind(t.ids[t.next], b); err != nil {
			return fmt.Errorf("bind %s: %w", t.ids[t.next], err)
		}
	}
	return nil
}

// Challenge derives the next challenge from everything absorbed so far.
func (t *Transcript) Challenge() (fr.Element, error) {
	if t.next >= len(t.ids) {
		return fr.Element{}, ErrExhausted
	}
	b, err := t.fs.ComputeChallenge(t.ids[t.next])
	if err != nil {
		return fr.Element{}, fmt.Errorf("compute challenge %s: %w", t.ids[t.next], err)
	}
	t.next++
	var e fr.Element
	e.SetBytes(b)
	return e, nil
}

// Remaining returns the number of challenges left in the budget.
func (t *Transcript) Remaining() int {
	return len(t.ids) - t.next
}
