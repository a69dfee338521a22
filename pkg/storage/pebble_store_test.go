package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
)

func openTestStore(t *testing.T) *PebbleStore {
	t.Helper()
	dir := t.TempDir()
	store, err := NewPebbleStore(filepath.Join(dir, "db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSaveAndGetMatch(t *testing.T) {
	store := openTestStore(t)

	m := orderbook.Match{
		MatchID:           "abc",
		BuyOrder:          &orderbook.Order{ID: "b1", Trader: "alice"},
		SellOrder:         &orderbook.Order{ID: "s1", Trader: "bob"},
		ExecutionPrice:    100,
		ExecutionQuantity: 5,
		Timestamp:         42,
	}
	require.NoError(t, store.SaveMatch(m))

	got, ok, err := store.GetMatch("abc")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), got.ExecutionPrice)
	require.Equal(t, "alice", got.BuyOrder.Trader)
}

func TestListMatchesReturnsAll(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SaveMatch(orderbook.Match{MatchID: "a"}))
	require.NoError(t, store.SaveMatch(orderbook.Match{MatchID: "b"}))

	matches, err := store.ListMatches()
	require.NoError(t, err)
	require.Len(t, matches, 2)
}

func TestSaveAndGetSettlement(t *testing.T) {
	store := openTestStore(t)
	now := time.Now()
	r := settlement.NewRecord("m1", "CASSET", "alice", "bob", now, now.Add(time.Hour))
	r.Status = settlement.StatusAwaitingSignatures

	require.NoError(t, store.SaveSettlement(r))

	got, ok, err := store.GetSettlement("m1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, settlement.StatusAwaitingSignatures, got.Status)
	require.Equal(t, "alice", got.BuyerTrader)
}

func TestGetMatchMissingReturnsFalse(t *testing.T) {
	store := openTestStore(t)
	_, ok, err := store.GetMatch("missing")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWhitelistRootRoundTrip(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.GetWhitelistRoot()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SetWhitelistRoot("0xabc"))
	root, ok, err := store.GetWhitelistRoot()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0xabc", root)
}

func TestWhitelistLeafRoundTrip(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.SetWhitelistLeaf(3, "0xdead"))

	got, ok, err := store.GetWhitelistLeaf(3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0xdead", got)
}
