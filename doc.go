// Package virtualbus implements the LogUp-GKR "virtual bus" argument used to
// establish lookup and multiset consistency claims over the execution trace of
// a virtual-machine prover.
//
// The per-row lookup contributions of the main trace are arranged into a
// layered binary-tree circuit of fraction-addition gates. The correctness of
// the circuit's output is then proven with one sum-check instance per circuit
// layer, reducing everything to a single opening claim against the committed
// trace columns which an outer polynomial-commitment layer must discharge.
//
// The module is organised as follows:
//   - polynomial: dense multilinear polynomials, the Lagrange kernel of the
//     EQ function and the compressed univariate round-polynomial codec
//   - sumcheck: the composition-agnostic sum-check prover and verifier
//   - gkr: the fraction circuit, its GKR prover/verifier and the per-layer
//     compositions
//   - transcript: Fiat-Shamir challenge sequencing shared by both sides
package virtualbus
