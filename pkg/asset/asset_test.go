package asset

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validAddress = "C" + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

func TestNewNormalizesSymbolCase(t *testing.T) {
	a, err := New("hypl", validAddress)
	require.NoError(t, err)
	require.Equal(t, "HYPL", a.Symbol)
}

func TestNewRejectsLongSymbol(t *testing.T) {
	_, err := New("WAYTOOLONGSYMBOLNAME", validAddress)
	require.Error(t, err)
}

func TestValidateAddressRejectsWrongLength(t *testing.T) {
	require.Error(t, ValidateAddress("CSHORT"))
}

func TestValidateAddressRejectsWrongPrefix(t *testing.T) {
	bad := "X" + validAddress[1:]
	require.Error(t, ValidateAddress(bad))
}

func TestValidateQuantityAndPriceRejectZero(t *testing.T) {
	require.Error(t, ValidateQuantity(0))
	require.Error(t, ValidatePrice(0))
	require.NoError(t, ValidateQuantity(1))
	require.NoError(t, ValidatePrice(1))
}

func TestScaledIntegerRoundTrip(t *testing.T) {
	scaled, err := ToScaledInteger("1.5")
	require.NoError(t, err)
	require.Equal(t, uint64(15_000_000), scaled)
	require.Equal(t, "1.5000000", FromScaledInteger(scaled))
}
