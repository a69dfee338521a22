package sign

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKeyAndSignRoundTrip(t *testing.T) {
	signer, err := GenerateKey()
	require.NoError(t, err)

	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(i)
	}

	signature, err := signer.Sign(digest)
	require.NoError(t, err)
	require.True(t, VerifySignature(signer.Address(), digest, signature))
}

func TestFromPrivateKeyHexRoundTrip(t *testing.T) {
	original, err := GenerateKey()
	require.NoError(t, err)

	restored, err := FromPrivateKeyHex(original.PrivateKeyHex())
	require.NoError(t, err)
	require.Equal(t, original.Address(), restored.Address())
}

func TestRecoverAddressRejectsWrongDigestLength(t *testing.T) {
	_, err := RecoverAddress([]byte{1, 2, 3}, make([]byte, 65))
	require.Error(t, err)
}

func TestSettlementIntentSignatureRecoversSigner(t *testing.T) {
	signer, err := GenerateKey()
	require.NoError(t, err)

	s712 := NewSigner712(DefaultDomain())
	intent := &SettlementIntent{
		MatchID:           "abc123",
		NullifierHash:     big.NewInt(42),
		ExecutionPrice:    big.NewInt(1000),
		ExecutionQuantity: big.NewInt(5),
		Role:              RoleBuyer,
	}

	signature, err := s712.SignIntent(signer, intent)
	require.NoError(t, err)

	ok, err := s712.VerifyIntentSignature(intent, signature, signer.Address())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSettlementIntentSignatureDiffersByRole(t *testing.T) {
	signer, err := GenerateKey()
	require.NoError(t, err)
	s712 := NewSigner712(DefaultDomain())

	buyerIntent := &SettlementIntent{MatchID: "m", NullifierHash: big.NewInt(1), ExecutionPrice: big.NewInt(1), ExecutionQuantity: big.NewInt(1), Role: RoleBuyer}
	sellerIntent := &SettlementIntent{MatchID: "m", NullifierHash: big.NewInt(1), ExecutionPrice: big.NewInt(1), ExecutionQuantity: big.NewInt(1), Role: RoleSeller}

	buyerDigest, err := s712.HashIntent(buyerIntent)
	require.NoError(t, err)
	sellerDigest, err := s712.HashIntent(sellerIntent)
	require.NoError(t, err)

	require.NotEqual(t, buyerDigest, sellerDigest)
}
