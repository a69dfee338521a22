package whitelist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/poseidon"
)

func participants(n int) []Participant {
	ps := make([]Participant, n)
	for i := 0; i < n; i++ {
		ps[i] = Participant{
			Trader: string(rune('A' + i)),
			ID:     field.FromUint64(uint64(1000 + i)),
		}
	}
	return ps
}

func TestBuildAndVerifyInclusion(t *testing.T) {
	ps := participants(3)
	tree, err := Build(ps)
	require.NoError(t, err)

	for i := range ps {
		idHash, err := poseidon.Hash(field.FromUint64(uint64(1000 + i)))
		require.NoError(t, err)

		proof, err := tree.Proof(i)
		require.NoError(t, err)
		require.True(t, Verify(proof, idHash, tree.Root()), "leaf %d should verify", i)
	}
}

func TestVerifyRejectsWrongLeaf(t *testing.T) {
	tree, err := Build(participants(3))
	require.NoError(t, err)

	proof, err := tree.Proof(0)
	require.NoError(t, err)

	wrongLeaf, err := poseidon.Hash(field.FromUint64(999999))
	require.NoError(t, err)
	require.False(t, Verify(proof, wrongLeaf, tree.Root()))
}

func TestSnapshotImmutabilityAcrossRebuild(t *testing.T) {
	original, err := Build(participants(3))
	require.NoError(t, err)

	originalRoot := original.Root()
	proof, err := original.Proof(1)
	require.NoError(t, err)

	idHash, err := poseidon.Hash(field.FromUint64(1001))
	require.NoError(t, err)
	require.True(t, Verify(proof, idHash, originalRoot))

	rebuilt, err := Build(participants(4))
	require.NoError(t, err)

	require.False(t, rebuilt.Root().Equal(originalRoot))
	require.True(t, Verify(proof, idHash, originalRoot), "original snapshot's proof must still verify against its own root")
	require.Equal(t, originalRoot, original.Root(), "rebuilding must not mutate the original snapshot")
}

func TestDenseDepthForSingleParticipant(t *testing.T) {
	tree, err := Build(participants(1))
	require.NoError(t, err)
	require.Equal(t, 2, tree.NumLeaves(), "single participant must still pad to a depth-1 dense tree")

	proof, err := tree.Proof(0)
	require.NoError(t, err)
	idHash, err := poseidon.Hash(field.FromUint64(1000))
	require.NoError(t, err)
	require.True(t, Verify(proof, idHash, tree.Root()))
}

func TestIndexOfResolvesTrader(t *testing.T) {
	tree, err := Build(participants(5))
	require.NoError(t, err)

	idx, ok := tree.IndexOf("C")
	require.True(t, ok)
	require.Equal(t, 2, idx)

	_, ok = tree.IndexOf("unknown")
	require.False(t, ok)
}

func TestBuildRejectsEmptyParticipantList(t *testing.T) {
	_, err := Build(nil)
	require.Error(t, err)
}

func TestZeroLadderExtendsPastDenseRoot(t *testing.T) {
	small, err := Build(participants(2))
	require.NoError(t, err)
	large, err := Build(participants(8))
	require.NoError(t, err)

	// Both trees publish roots at the same fixed depth regardless of how
	// many real leaves they hold: the published root is the dense root
	// extended with zero-ladder siblings, not the dense root itself.
	require.False(t, small.Root().Equal(small.levels[small.denseDepth][0]))
	require.False(t, large.Root().Equal(large.levels[large.denseDepth][0]))
	require.NotEqual(t, small.Root().Hex(), large.Root().Hex())
}
