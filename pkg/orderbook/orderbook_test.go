package orderbook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/duskpool/core/pkg/commitment"
)

func newOrder(id string, side commitment.Side, price, qty uint64, ts int64) *Order {
	return &Order{
		ID:        id,
		Trader:    "trader-" + id,
		Side:      side,
		Price:     price,
		Quantity:  qty,
		Timestamp: ts,
		Expiry:    time.Now().Add(time.Hour),
	}
}

func TestSubmitMatchesExactQuantityCrossingPrice(t *testing.T) {
	book := NewBook()

	_, reason, err := book.Submit(newOrder("sell-1", commitment.Sell, 100, 10, 1))
	require.NoError(t, err)
	require.NotEmpty(t, reason)

	matches, reason, err := book.Submit(newOrder("buy-1", commitment.Buy, 110, 10, 2))
	require.NoError(t, err)
	require.Empty(t, reason)
	require.Len(t, matches, 1)

	m := matches[0]
	require.Equal(t, uint64(105), m.ExecutionPrice)
	require.Equal(t, uint64(10), m.ExecutionQuantity)
	require.Equal(t, "buy-1", m.BuyOrder.ID)
	require.Equal(t, "sell-1", m.SellOrder.ID)
}

func TestSubmitSkipsQuantityMismatch(t *testing.T) {
	book := NewBook()

	_, _, err := book.Submit(newOrder("sell-1", commitment.Sell, 100, 10, 1))
	require.NoError(t, err)

	matches, reason, err := book.Submit(newOrder("buy-1", commitment.Buy, 110, 5, 2))
	require.NoError(t, err)
	require.Empty(t, matches)
	require.NotEmpty(t, reason)
}

func TestSubmitEarliestTimestampWinsOnTie(t *testing.T) {
	book := NewBook()

	_, _, err := book.Submit(newOrder("sell-early", commitment.Sell, 100, 10, 1))
	require.NoError(t, err)
	_, _, err = book.Submit(newOrder("sell-late", commitment.Sell, 100, 10, 5))
	require.NoError(t, err)

	matches, _, err := book.Submit(newOrder("buy-1", commitment.Buy, 100, 10, 10))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "sell-early", matches[0].SellOrder.ID)
}

func TestBestBidAskAndLevels(t *testing.T) {
	book := NewBook()

	_, _, err := book.Submit(newOrder("buy-1", commitment.Buy, 90, 10, 1))
	require.NoError(t, err)
	_, _, err = book.Submit(newOrder("buy-2", commitment.Buy, 95, 5, 2))
	require.NoError(t, err)
	_, _, err = book.Submit(newOrder("sell-1", commitment.Sell, 120, 10, 3))
	require.NoError(t, err)

	bid, ok := book.BestBid()
	require.True(t, ok)
	require.Equal(t, uint64(95), bid)

	ask, ok := book.BestAsk()
	require.True(t, ok)
	require.Equal(t, uint64(120), ask)

	levels := book.BidLevels()
	require.Len(t, levels, 2)
	require.Equal(t, uint64(95), levels[0].Price)
}

func TestNoSelfTradeBlockingAtMatcher(t *testing.T) {
	book := NewBook()

	sell := newOrder("sell-1", commitment.Sell, 100, 10, 1)
	sell.Trader = "same-trader"
	_, _, err := book.Submit(sell)
	require.NoError(t, err)

	buy := newOrder("buy-1", commitment.Buy, 100, 10, 2)
	buy.Trader = "same-trader"
	matches, _, err := book.Submit(buy)
	require.NoError(t, err)
	require.Len(t, matches, 1, "matching does not deduplicate same-trader orders")
}

func TestSetCreatesBooksLazily(t *testing.T) {
	set := NewSet()
	require.Empty(t, set.Assets())

	book := set.BookFor("CASSET")
	require.NotNil(t, book)
	require.Len(t, set.Assets(), 1)
	require.Same(t, book, set.BookFor("CASSET"))
}
