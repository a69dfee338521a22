// Package commitment implements order-commitment and nullifier cryptography:
// asset hashing, commitment generation with cryptographically secure
// blinding, and nullifier derivation.
package commitment

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/poseidon"
)

// Side distinguishes a buy order from a sell order.
type Side uint8

const (
	Buy  Side = 0
	Sell Side = 1
)

// OrderCommitment is the output of GenerateOrderCommitment: the public
// commitment plus the private entropy that must be retained by the order
// owner to later reconstruct the witness.
type OrderCommitment struct {
	Commitment field.Element
	Secret     field.Element
	Nonce      field.Element
}

const addressFieldWidth = 32

// HashAsset reduces an opaque asset address's bytes modulo Fr and hashes the
// result: interpret the address bytes as a big-endian integer, reduce, then
// Poseidon([x]).
func HashAsset(assetAddress string) (field.Element, error) {
	x := field.FromBigInt(new(big.Int).SetBytes([]byte(assetAddress)))
	return poseidon.Hash(x)
}

// padOrTruncate32 folds an arbitrary-length opaque identifier into a
// 32-byte buffer: left-padded if shorter, truncated to its trailing 32
// bytes if longer, before being read as a big-endian integer.
func padOrTruncate32(b []byte) [addressFieldWidth]byte {
	var out [addressFieldWidth]byte
	if len(b) >= addressFieldWidth {
		copy(out[:], b[len(b)-addressFieldWidth:])
		return out
	}
	copy(out[addressFieldWidth-len(b):], b)
	return out
}

// randomFieldElement draws 32 bytes from a CSPRNG and reduces modulo Fr.
// Secret and nonce values must be indistinguishable from uniform over Fr to
// a bounded adversary — crypto/rand plus modular reduction of a full-width
// 32-byte sample satisfies that for a ~254-bit field with negligible bias.
func randomFieldElement() (field.Element, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return field.Element{}, fmt.Errorf("commitment: reading entropy: %w", err)
	}
	return field.FromBytes32(buf), nil
}

// GenerateOrderCommitment draws secret/nonce from a CSPRNG and computes
// commitment = Poseidon([assetHash, side, qty, price, nonce, secret]).
func GenerateOrderCommitment(assetHash field.Element, side Side, qty, price uint64) (OrderCommitment, error) {
	secret, err := randomFieldElement()
	if err != nil {
		return OrderCommitment{}, err
	}
	nonce, err := randomFieldElement()
	if err != nil {
		return OrderCommitment{}, err
	}

	c, err := computeCommitment(assetHash, side, qty, price, nonce, secret)
	if err != nil {
		return OrderCommitment{}, err
	}

	return OrderCommitment{Commitment: c, Secret: secret, Nonce: nonce}, nil
}

// Reconstruct recomputes a commitment from explicit values — used to verify
// commitment determinism and to rebuild a witness from a stored order.
func Reconstruct(assetHash field.Element, side Side, qty, price uint64, nonce, secret field.Element) (field.Element, error) {
	return computeCommitment(assetHash, side, qty, price, nonce, secret)
}

func computeCommitment(assetHash field.Element, side Side, qty, price uint64, nonce, secret field.Element) (field.Element, error) {
	return poseidon.Hash(
		assetHash,
		field.FromUint64(uint64(side)),
		field.FromUint64(qty),
		field.FromUint64(price),
		nonce,
		secret,
	)
}

// ComputeNullifier derives the one-time settlement nullifier:
// Poseidon([buyCommit, sellCommit, qty, buyerSecret + sellerSecret]). The
// additive combination of the two secrets makes the nullifier symmetric in
// (buyerSecret, sellerSecret), so neither the on-chain verifier nor the
// nullifier set needs to know which side contributed which secret.
func ComputeNullifier(buyCommit, sellCommit field.Element, qty uint64, buyerSecret, sellerSecret field.Element) (field.Element, error) {
	return poseidon.Hash(
		buyCommit,
		sellCommit,
		field.FromUint64(qty),
		buyerSecret.Add(sellerSecret),
	)
}
