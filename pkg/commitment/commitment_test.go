package commitment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/field"
)

func TestCommitmentDeterminism(t *testing.T) {
	assetHash, err := HashAsset("CCOMPLIANTASSETADDRESSFORTESTINGPURPOSESONLY00")
	require.NoError(t, err)

	nonce := field.FromUint64(111)
	secret := field.FromUint64(222)

	c1, err := Reconstruct(assetHash, Buy, 1000, 5000, nonce, secret)
	require.NoError(t, err)
	c2, err := Reconstruct(assetHash, Buy, 1000, 5000, nonce, secret)
	require.NoError(t, err)

	require.True(t, c1.Equal(c2))
}

func TestGenerateOrderCommitmentMatchesReconstruction(t *testing.T) {
	assetHash, err := HashAsset("CASSET1")
	require.NoError(t, err)

	oc, err := GenerateOrderCommitment(assetHash, Sell, 500, 2500)
	require.NoError(t, err)

	reconstructed, err := Reconstruct(assetHash, Sell, 500, 2500, oc.Nonce, oc.Secret)
	require.NoError(t, err)
	require.True(t, oc.Commitment.Equal(reconstructed))
}

func TestGenerateOrderCommitmentEntropyIsUnique(t *testing.T) {
	assetHash, err := HashAsset("CASSET2")
	require.NoError(t, err)

	oc1, err := GenerateOrderCommitment(assetHash, Buy, 100, 100)
	require.NoError(t, err)
	oc2, err := GenerateOrderCommitment(assetHash, Buy, 100, 100)
	require.NoError(t, err)

	require.False(t, oc1.Secret.Equal(oc2.Secret), "secrets must not repeat across draws")
	require.False(t, oc1.Nonce.Equal(oc2.Nonce), "nonces must not repeat across draws")
	require.False(t, oc1.Commitment.Equal(oc2.Commitment))
}

func TestNullifierSymmetryInSecrets(t *testing.T) {
	buyCommit := field.FromUint64(1)
	sellCommit := field.FromUint64(2)
	s1 := field.FromUint64(10)
	s2 := field.FromUint64(20)

	n1, err := ComputeNullifier(buyCommit, sellCommit, 100, s1, s2)
	require.NoError(t, err)
	n2, err := ComputeNullifier(buyCommit, sellCommit, 100, s2, s1)
	require.NoError(t, err)

	require.True(t, n1.Equal(n2))
}

func TestNullifierUniquenessAcrossMatches(t *testing.T) {
	seen := map[string]bool{}
	buyCommit := field.FromUint64(1)
	for i := uint64(0); i < 20; i++ {
		sellCommit := field.FromUint64(i + 2)
		n, err := ComputeNullifier(buyCommit, sellCommit, 100, field.FromUint64(i), field.FromUint64(i+1))
		require.NoError(t, err)
		key := n.Hex()
		require.False(t, seen[key], "nullifier collision at i=%d", i)
		seen[key] = true
	}
}

func TestHashAssetDeterministic(t *testing.T) {
	h1, err := HashAsset("CSAMEADDRESS")
	require.NoError(t, err)
	h2, err := HashAsset("CSAMEADDRESS")
	require.NoError(t, err)
	require.True(t, h1.Equal(h2))

	h3, err := HashAsset("CDIFFERENTADDRESS")
	require.NoError(t, err)
	require.False(t, h1.Equal(h3))
}
