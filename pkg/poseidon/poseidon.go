// Package poseidon wraps the circomlib-compatible Poseidon hash so every
// commitment, nullifier, and Merkle node in this module is bit-compatible
// with the external Groth16 circuit's in-circuit Poseidon gadget. Any
// deviation from the reference round constants and MDS matrix invalidates
// every commitment and proof in flight, so this package intentionally does
// not reimplement the permutation — it delegates to the reference library.
package poseidon

import (
	"fmt"
	"math/big"

	iden3poseidon "github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/duskpool/core/pkg/field"
)

// MaxInputs matches the reference implementation's supported arity.
const MaxInputs = 16

// Hash computes Poseidon(inputs...). Callers in this module only exercise
// arities 2 (Merkle nodes), 4 (nullifier), and 6 (order commitment), but the
// underlying permutation is defined for 1-16 inputs with no special-casing
// required per arity.
func Hash(inputs ...field.Element) (field.Element, error) {
	if len(inputs) == 0 {
		return field.Element{}, fmt.Errorf("poseidon: at least one input required")
	}
	if len(inputs) > MaxInputs {
		return field.Element{}, fmt.Errorf("poseidon: too many inputs (%d > %d)", len(inputs), MaxInputs)
	}

	args := make([]*big.Int, len(inputs))
	for i := range inputs {
		args[i] = inputs[i].BigInt()
	}

	out, err := iden3poseidon.Hash(args)
	if err != nil {
		return field.Element{}, fmt.Errorf("poseidon: hash: %w", err)
	}
	return field.FromBigInt(out), nil
}

// HashBytes32 is a convenience wrapper for callers holding raw 32-byte
// buffers (e.g. decoding wire-format commitments before re-hashing).
func HashBytes32(inputs ...[32]byte) (field.Element, error) {
	elems := make([]field.Element, len(inputs))
	for i, b := range inputs {
		elems[i] = field.FromBytes32(b)
	}
	return Hash(elems...)
}
