package field

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecimalRoundTrip(t *testing.T) {
	e := FromUint64(123456789)
	e2, err := FromDecimalString(e.Decimal())
	require.NoError(t, err)
	require.True(t, e.Equal(e2))
}

func TestBytes32RoundTrip(t *testing.T) {
	e := FromUint64(42)
	b := e.Bytes32()
	e2 := FromBytes32(b)
	require.True(t, e.Equal(e2))
}

func TestHexRoundTrip(t *testing.T) {
	e := FromUint64(7)
	h := e.Hex()
	e2, err := FromHex(h)
	require.NoError(t, err)
	require.True(t, e.Equal(e2))

	e3, err := FromHex(h[2:]) // bare hex, no 0x
	require.NoError(t, err)
	require.True(t, e.Equal(e3))
}

func TestAddCommutative(t *testing.T) {
	a := FromUint64(10)
	b := FromUint64(20)
	require.True(t, a.Add(b).Equal(b.Add(a)))
}

func TestZeroIsZero(t *testing.T) {
	require.True(t, Zero().IsZero())
	require.False(t, FromUint64(1).IsZero())
}
