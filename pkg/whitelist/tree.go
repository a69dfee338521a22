// Package whitelist builds the Poseidon Merkle tree of compliance-approved
// participant identifiers and serves per-leaf inclusion proofs. A tree is
// an immutable snapshot: rebuilding publishes a brand new *Tree value and
// never mutates one already handed to a reader, giving atomic visibility
// of tree updates without any locking on the read path.
package whitelist

import (
	"fmt"

	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/poseidon"
)

// Depth is the fixed tree depth D (supports up to 2^20 leaves).
const Depth = 20

// Participant is one whitelist entry: an opaque trader identifier paired
// with its raw on-chain registry ID element.
type Participant struct {
	Trader string
	ID     field.Element
}

// Proof is a per-leaf inclusion proof: D sibling hashes and D direction
// bits. Indices[k] == 0 means the path node is the left child at level k
// (sibling supplied on the right); 1 means the reverse.
type Proof struct {
	Siblings [Depth]field.Element
	Indices  [Depth]uint8
}

// Tree is an immutable snapshot of a built whitelist Merkle tree.
type Tree struct {
	denseDepth  int
	root        field.Element
	levels      [][]field.Element // levels[0] = padded idHash leaves ... levels[denseDepth] = [dense root]
	zeroLadder  []field.Element   // zeroLadder[k] for k in [0, Depth]
	traderIndex map[string]int
}

// Build constructs a new whitelist snapshot from an ordered participant
// list: hash leaves, compute the dense depth, pad with the zero leaf,
// precompute the zero ladder, build the dense tree bottom-up, then extend
// the dense root to fixed depth D using the zero ladder as right siblings.
func Build(participants []Participant) (*Tree, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("whitelist: at least one participant required")
	}

	leaves := make([]field.Element, len(participants))
	traderIndex := make(map[string]int, len(participants))
	for i, p := range participants {
		idHash, err := poseidon.Hash(p.ID)
		if err != nil {
			return nil, fmt.Errorf("whitelist: hashing participant %d: %w", i, err)
		}
		leaves[i] = idHash
		traderIndex[p.Trader] = i
	}

	denseDepth := denseDepthFor(len(leaves))
	denseSize := 1 << denseDepth

	zero := field.Zero()
	padded := make([]field.Element, denseSize)
	copy(padded, leaves)
	for i := len(leaves); i < denseSize; i++ {
		padded[i] = zero
	}

	zeroLadder, err := buildZeroLadder()
	if err != nil {
		return nil, err
	}

	levels := make([][]field.Element, denseDepth+1)
	levels[0] = padded
	for level := 0; level < denseDepth; level++ {
		cur := levels[level]
		next := make([]field.Element, len(cur)/2)
		for i := 0; i < len(next); i++ {
			parent, err := poseidon.Hash(cur[2*i], cur[2*i+1])
			if err != nil {
				return nil, fmt.Errorf("whitelist: hashing level %d node %d: %w", level, i, err)
			}
			next[i] = parent
		}
		levels[level+1] = next
	}

	root := levels[denseDepth][0]
	for k := denseDepth; k < Depth; k++ {
		extended, err := poseidon.Hash(root, zeroLadder[k])
		if err != nil {
			return nil, fmt.Errorf("whitelist: extending root at depth %d: %w", k, err)
		}
		root = extended
	}

	return &Tree{
		denseDepth:  denseDepth,
		root:        root,
		levels:      levels,
		zeroLadder:  zeroLadder,
		traderIndex: traderIndex,
	}, nil
}

// denseDepthFor returns the least d such that 2^d >= max(n, 2).
func denseDepthFor(n int) int {
	if n < 2 {
		n = 2
	}
	d := 0
	for (1 << d) < n {
		d++
	}
	return d
}

// buildZeroLadder computes Z[0]=0, Z[k]=Poseidon([Z[k-1],Z[k-1]]) for
// k in [1, Depth].
func buildZeroLadder() ([]field.Element, error) {
	z := make([]field.Element, Depth+1)
	z[0] = field.Zero()
	for k := 1; k <= Depth; k++ {
		h, err := poseidon.Hash(z[k-1], z[k-1])
		if err != nil {
			return nil, fmt.Errorf("whitelist: zero ladder at %d: %w", k, err)
		}
		z[k] = h
	}
	return z, nil
}

// Root returns the fixed-depth whitelist root this snapshot publishes.
func (t *Tree) Root() field.Element {
	return t.root
}

// NumLeaves returns the width of the dense tree's leaf level: the real
// leaves plus the zero-leaf padding up to the next power of two (at least
// 2). It is the exclusive upper bound of the indices Leaf and Proof accept.
func (t *Tree) NumLeaves() int {
	return len(t.levels[0])
}

// IndexOf resolves a trader's leaf index in this snapshot. Production
// deployments resolve this against the on-chain registry; this in-process
// map is a deliberately out-of-scope placeholder for that resolution.
func (t *Tree) IndexOf(trader string) (int, bool) {
	idx, ok := t.traderIndex[trader]
	return idx, ok
}

// Leaf returns the hashed idHash value stored at the given dense-tree
// index, the value a Merkle proof for that index verifies against.
func (t *Tree) Leaf(index int) (field.Element, error) {
	denseSize := len(t.levels[0])
	if index < 0 || index >= denseSize {
		return field.Element{}, fmt.Errorf("whitelist: index %d out of range [0,%d)", index, denseSize)
	}
	return t.levels[0][index], nil
}

// Proof builds the inclusion proof for the leaf at the given dense-tree
// index: the first d entries are real sibling hashes with their left/right
// position, the remaining D-d entries are zero-ladder elements with index 0
// (the padded zero subtree is always on the right).
func (t *Tree) Proof(index int) (Proof, error) {
	denseSize := len(t.levels[0])
	if index < 0 || index >= denseSize {
		return Proof{}, fmt.Errorf("whitelist: index %d out of range [0,%d)", index, denseSize)
	}

	var proof Proof
	cur := index
	for level := 0; level < t.denseDepth; level++ {
		siblingIdx := cur ^ 1
		proof.Siblings[level] = t.levels[level][siblingIdx]
		if cur%2 == 0 {
			proof.Indices[level] = 0 // cur is the left child
		} else {
			proof.Indices[level] = 1
		}
		cur /= 2
	}
	for level := t.denseDepth; level < Depth; level++ {
		proof.Siblings[level] = t.zeroLadder[level]
		proof.Indices[level] = 0
	}

	return proof, nil
}

// Verify recomputes the root from a claimed leaf and inclusion proof and
// compares it against the supplied root, in O(D) Poseidon invocations.
func Verify(proof Proof, leaf field.Element, root field.Element) bool {
	cur := leaf
	for level := 0; level < Depth; level++ {
		sib := proof.Siblings[level]
		var next field.Element
		var err error
		if proof.Indices[level] == 0 {
			next, err = poseidon.Hash(cur, sib)
		} else {
			next, err = poseidon.Hash(sib, cur)
		}
		if err != nil {
			return false
		}
		cur = next
	}
	return cur.Equal(root)
}
