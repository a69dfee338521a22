// Package field implements the BN254 scalar field (Fr) element type used
// throughout the commitment, Poseidon, and Merkle whitelist primitives.
package field

import (
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a canonicalized BN254 scalar field element.
type Element struct {
	v fr.Element
}

// Zero returns the additive identity.
func Zero() Element { return Element{} }

// FromUint64 builds an element from a small non-negative integer (side,
// quantity, price, whitelist indices, ...).
func FromUint64(x uint64) Element {
	var e Element
	e.v.SetUint64(x)
	return e
}

// FromBigInt reduces an arbitrary-precision integer modulo Fr.
func FromBigInt(x *big.Int) Element {
	var e Element
	e.v.SetBigInt(x)
	return e
}

// FromBytes32 interprets a 32-byte big-endian buffer as an integer and
// reduces it modulo Fr. This is how asset addresses and raw entropy buffers
// enter the field.
func FromBytes32(b [32]byte) Element {
	var e Element
	e.v.SetBytes(b[:])
	return e
}

// FromDecimalString parses a base-10 string (the wire format for
// trader-facing big integers) into a field element.
func FromDecimalString(s string) (Element, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Element{}, fmt.Errorf("field: invalid decimal string %q", s)
	}
	return FromBigInt(i), nil
}

// FromHex parses a 0x-prefixed or bare hex string into a field element.
func FromHex(s string) (Element, error) {
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return Element{}, fmt.Errorf("field: invalid hex string: %w", err)
	}
	var buf [32]byte
	if len(b) > 32 {
		return Element{}, fmt.Errorf("field: hex string too long (%d bytes)", len(b))
	}
	copy(buf[32-len(b):], b)
	return FromBytes32(buf), nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// Add returns e + o reduced modulo Fr.
func (e Element) Add(o Element) Element {
	var out Element
	out.v.Add(&e.v, &o.v)
	return out
}

// Equal reports whether two elements canonicalize to the same residue.
func (e Element) Equal(o Element) bool {
	return e.v.Equal(&o.v)
}

// IsZero reports whether e is the additive identity.
func (e Element) IsZero() bool {
	return e.v.IsZero()
}

// Bytes32 returns the canonical 32-byte big-endian encoding.
func (e Element) Bytes32() [32]byte {
	return e.v.Bytes()
}

// Decimal renders the least-residue integer as a base-10 string, the wire
// format used by the read/write API surface.
func (e Element) Decimal() string {
	return e.BigInt().String()
}

// Hex renders the canonical 32-byte encoding as a 0x-prefixed hex string.
func (e Element) Hex() string {
	b := e.Bytes32()
	return "0x" + hex.EncodeToString(b[:])
}

// BigInt materializes the least-residue integer.
func (e Element) BigInt() *big.Int {
	var i big.Int
	e.v.BigInt(&i)
	return &i
}

// Gnark exposes the underlying gnark-crypto element for callers that need
// to feed it directly into curve or pairing operations.
func (e Element) Gnark() fr.Element {
	return e.v
}

// GobEncode lets Element participate in gob-encoded records (matches,
// settlement records) without exposing the unexported gnark-crypto field.
func (e Element) GobEncode() ([]byte, error) {
	b := e.Bytes32()
	return b[:], nil
}

// GobDecode restores an Element previously encoded with GobEncode.
func (e *Element) GobDecode(data []byte) error {
	if len(data) != 32 {
		return fmt.Errorf("field: gob-encoded element must be 32 bytes, got %d", len(data))
	}
	var buf [32]byte
	copy(buf[:], data)
	*e = FromBytes32(buf)
	return nil
}
