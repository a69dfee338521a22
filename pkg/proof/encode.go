package proof

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/duskpool/core/pkg/field"
)

const (
	coordWidth        = 32
	proofWidth        = 8 * coordWidth // A.x,A.y,B.x1,B.x0,B.y1,B.y0,C.x,C.y
	lengthPrefixWidth = 4
)

// groth16Proof mirrors the snarkjs-style JSON shape returned by the
// external prover: pi_a/pi_c are G1 points [x, y, 1]; pi_b is a G2 point
// [[x1, x0], [y1, y0], [1, 0]] in the standard Fp2 (imaginary, real)
// coordinate order snarkjs emits.
type groth16Proof struct {
	PiA [3]string    `json:"pi_a"`
	PiB [3][2]string `json:"pi_b"`
	PiC [3]string    `json:"pi_c"`
}

// EncodeProof packs a Groth16 proof into the 256-byte on-chain layout:
// A.x ∥ A.y ∥ B.x1 ∥ B.x0 ∥ B.y1 ∥ B.y0 ∥ C.x ∥ C.y, each coordinate a
// 32-byte big-endian integer. Curve-point coordinates live in the base
// field (Fq), not Fr, so they are encoded as raw big-endian integers
// rather than routed through field.Element's Fr reduction.
func EncodeProof(p *groth16Proof) ([256]byte, error) {
	var out [proofWidth]byte

	coords := []string{
		p.PiA[0], p.PiA[1],
		p.PiB[0][0], p.PiB[0][1],
		p.PiB[1][0], p.PiB[1][1],
		p.PiC[0], p.PiC[1],
	}

	for i, decimal := range coords {
		n, ok := new(big.Int).SetString(decimal, 10)
		if !ok {
			return out, fmt.Errorf("proof: invalid coordinate %q", decimal)
		}
		b := n.Bytes()
		if len(b) > coordWidth {
			return out, fmt.Errorf("proof: coordinate %q exceeds %d bytes", decimal, coordWidth)
		}
		offset := i*coordWidth + (coordWidth - len(b))
		copy(out[offset:], b)
	}

	return out, nil
}

// EncodePublicSignals packs the circuit's public signals as a 4-byte
// big-endian length prefix followed by length*32 bytes, each signal a
// 32-byte big-endian Fr encoding. The last signal is always the nullifier.
func EncodePublicSignals(signals []string) ([]byte, error) {
	out := make([]byte, lengthPrefixWidth+len(signals)*coordWidth)
	binary.BigEndian.PutUint32(out[:lengthPrefixWidth], uint32(len(signals)))

	for i, decimal := range signals {
		elem, err := field.FromDecimalString(decimal)
		if err != nil {
			return nil, fmt.Errorf("proof: invalid public signal %q: %w", decimal, err)
		}
		b := elem.Bytes32()
		offset := lengthPrefixWidth + i*coordWidth
		copy(out[offset:offset+coordWidth], b[:])
	}

	return out, nil
}

// DecodePublicSignals is the inverse of EncodePublicSignals, used by tests
// and by callers that need to re-read a persisted settlement record.
func DecodePublicSignals(data []byte) ([]field.Element, error) {
	if len(data) < lengthPrefixWidth {
		return nil, fmt.Errorf("proof: public signals buffer too short")
	}
	n := binary.BigEndian.Uint32(data[:lengthPrefixWidth])
	expected := lengthPrefixWidth + int(n)*coordWidth
	if len(data) != expected {
		return nil, fmt.Errorf("proof: public signals length mismatch: want %d bytes, got %d", expected, len(data))
	}

	out := make([]field.Element, n)
	for i := range out {
		offset := lengthPrefixWidth + i*coordWidth
		var buf [32]byte
		copy(buf[:], data[offset:offset+coordWidth])
		out[i] = field.FromBytes32(buf)
	}
	return out, nil
}
