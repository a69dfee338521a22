package proof

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/errs"
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/matchqueue"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/whitelist"
	"go.uber.org/zap"
)

func testMatch(t *testing.T, buyPrice, sellPrice, buyQty, sellQty, execPrice, execQty uint64) orderbook.Match {
	t.Helper()
	assetHash, err := commitment.HashAsset("CASSETCASSETCASSETCASSETCASSETCASSETCASSETCASSETCASS01")
	require.NoError(t, err)

	buyCommit, err := commitment.GenerateOrderCommitment(assetHash, commitment.Buy, buyQty, buyPrice)
	require.NoError(t, err)
	sellCommit, err := commitment.GenerateOrderCommitment(assetHash, commitment.Sell, sellQty, sellPrice)
	require.NoError(t, err)

	buy := &orderbook.Order{
		ID:             "buy-1",
		Trader:         "alice",
		AssetAddress:   "CASSETCASSETCASSETCASSETCASSETCASSETCASSETCASSETCASS01",
		Side:           commitment.Buy,
		Quantity:       buyQty,
		Price:          buyPrice,
		Commitment:     buyCommit.Commitment,
		Secret:         buyCommit.Secret,
		Nonce:          buyCommit.Nonce,
		Timestamp:      1,
		WhitelistIndex: 0,
	}
	sell := &orderbook.Order{
		ID:             "sell-1",
		Trader:         "bob",
		AssetAddress:   "CASSETCASSETCASSETCASSETCASSETCASSETCASSETCASSETCASS01",
		Side:           commitment.Sell,
		Quantity:       sellQty,
		Price:          sellPrice,
		Commitment:     sellCommit.Commitment,
		Secret:         sellCommit.Secret,
		Nonce:          sellCommit.Nonce,
		Timestamp:      2,
		WhitelistIndex: 1,
	}

	return orderbook.Match{
		MatchID:           "match-1",
		BuyOrder:          buy,
		SellOrder:         sell,
		ExecutionPrice:    execPrice,
		ExecutionQuantity: execQty,
		Timestamp:         3,
	}
}

func noopLookup(trader string) (field.Element, whitelist.Proof, field.Element, error) {
	return field.FromUint64(1), whitelist.Proof{}, field.FromUint64(2), nil
}

func newTestPool(t *testing.T, coordinator *settlement.Coordinator) *Pool {
	t.Helper()
	logger := zap.NewNop().Sugar()
	return NewPool(1, &Artifacts{}, matchqueue.New(), coordinator, noopLookup, nil, logger)
}

func TestProveRejectsPriceMismatch(t *testing.T) {
	coordinator := settlement.NewCoordinator(nil)
	m := testMatch(t, 100, 100, 5, 5, 99, 5)
	coordinator.Register(m.MatchID, m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, time.Now(), time.Now().Add(time.Hour))

	pool := newTestPool(t, coordinator)
	result := pool.prove(m)

	require.NotNil(t, result.Err)
	require.Equal(t, errs.ProofFailed, result.Err.Kind)
	require.Contains(t, result.Err.Message, "commitment mismatch")
}

func TestProveRejectsQuantityMismatch(t *testing.T) {
	coordinator := settlement.NewCoordinator(nil)
	m := testMatch(t, 100, 100, 5, 5, 100, 4)
	coordinator.Register(m.MatchID, m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, time.Now(), time.Now().Add(time.Hour))

	pool := newTestPool(t, coordinator)
	result := pool.prove(m)

	require.NotNil(t, result.Err)
	require.Equal(t, errs.ProofFailed, result.Err.Kind)
	require.Contains(t, result.Err.Message, "commitment mismatch")
}

func TestProcessMatchRecordsProofFailure(t *testing.T) {
	coordinator := settlement.NewCoordinator(nil)
	m := testMatch(t, 100, 100, 5, 5, 99, 5)
	coordinator.Register(m.MatchID, m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, time.Now(), time.Now().Add(time.Hour))

	pool := newTestPool(t, coordinator)
	pool.processMatch(m)

	record, ok := coordinator.Get(m.MatchID)
	require.True(t, ok)
	require.Equal(t, settlement.StatusFailed, record.Status)
	require.Contains(t, record.Error, "commitment mismatch")

	result := <-pool.Results()
	require.Equal(t, m.MatchID, result.MatchID)
	require.NotNil(t, result.Err)
}

func TestProcessMatchSkipsUnregisteredMatch(t *testing.T) {
	coordinator := settlement.NewCoordinator(nil)
	m := testMatch(t, 100, 100, 5, 5, 100, 5)

	pool := newTestPool(t, coordinator)
	pool.processMatch(m)

	_, ok := coordinator.Get(m.MatchID)
	require.False(t, ok)
}
