// Package orderbook implements the price-time-priority, exact-quantity
// matcher: per-asset resting order storage with heap-based best-price
// tracking, and a matching pass that only claims buy/sell pairs whose
// quantities are exactly equal.
package orderbook

import (
	"container/heap"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
)

// PriceLevel aggregates resting quantity at one price.
type PriceLevel struct {
	Price    uint64
	Quantity uint64
}

// Book holds the resting buy and sell orders for a single asset.
type Book struct {
	mu sync.RWMutex

	bidHeap maxPriceHeap
	askHeap minPriceHeap

	bids map[uint64][]*Order
	asks map[uint64][]*Order

	orderSide  map[string]bool // true=buy, for O(1) side lookup during removal
	orderPrice map[string]uint64

	lastPrice uint64
}

// NewBook constructs an empty book for one asset.
func NewBook() *Book {
	bidHeap := maxPriceHeap{}
	askHeap := minPriceHeap{}
	heap.Init(&bidHeap)
	heap.Init(&askHeap)
	return &Book{
		bidHeap:    bidHeap,
		askHeap:    askHeap,
		bids:       make(map[uint64][]*Order),
		asks:       make(map[uint64][]*Order),
		orderSide:  make(map[string]bool),
		orderPrice: make(map[string]uint64),
	}
}

// Submit appends the order to its side and then runs one matching pass
// over the whole book. Matching is pure and in-memory and never fails;
// validation happens at the API boundary before an order reaches here.
func (b *Book) Submit(o *Order) (matches []Match, noMatchReason string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if o.Side == 0 {
		b.addBid(o)
	} else {
		b.addAsk(o)
	}

	matches, err = b.matchLocked()
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return nil, noMatchReasonFor(o, b), nil
	}
	return matches, "", nil
}

func noMatchReasonFor(o *Order, b *Book) string {
	var opposite map[uint64][]*Order
	if o.Side == 0 {
		opposite = b.asks
	} else {
		opposite = b.bids
	}
	if len(opposite) == 0 {
		return "no counterparties resting on the opposite side"
	}
	return "counterparties exist but none match this order's exact quantity at a crossing price"
}

func (b *Book) addBid(o *Order) {
	if len(b.bids[o.Price]) == 0 {
		heap.Push(&b.bidHeap, o.Price)
	}
	b.bids[o.Price] = append(b.bids[o.Price], o)
	b.orderSide[o.ID] = true
	b.orderPrice[o.ID] = o.Price
}

func (b *Book) addAsk(o *Order) {
	if len(b.asks[o.Price]) == 0 {
		heap.Push(&b.askHeap, o.Price)
	}
	b.asks[o.Price] = append(b.asks[o.Price], o)
	b.orderSide[o.ID] = false
	b.orderPrice[o.ID] = o.Price
}

// matchLocked implements the matching policy exactly: stable-sort buys by
// descending price then ascending timestamp, stable-sort sells by
// ascending price then ascending timestamp, then greedily pair the first
// unclaimed, quantity-exact, crossing counterparty for each buy in order.
func (b *Book) matchLocked() ([]Match, error) {
	buys := b.flattenBids()
	sells := b.flattenAsks()

	sort.SliceStable(buys, func(i, j int) bool {
		if buys[i].Price != buys[j].Price {
			return buys[i].Price > buys[j].Price
		}
		return buys[i].Timestamp < buys[j].Timestamp
	})
	sort.SliceStable(sells, func(i, j int) bool {
		if sells[i].Price != sells[j].Price {
			return sells[i].Price < sells[j].Price
		}
		return sells[i].Timestamp < sells[j].Timestamp
	})

	claimedSell := make([]bool, len(sells))
	var matches []Match

	for _, buyOrder := range buys {
		for j, sellOrder := range sells {
			if claimedSell[j] {
				continue
			}
			if buyOrder.Price < sellOrder.Price {
				continue
			}
			if buyOrder.Quantity != sellOrder.Quantity {
				continue
			}
			claimedSell[j] = true

			matchID, err := newMatchID()
			if err != nil {
				return nil, err
			}
			executionPrice := (buyOrder.Price + sellOrder.Price) / 2
			timestamp := buyOrder.Timestamp
			if sellOrder.Timestamp > timestamp {
				timestamp = sellOrder.Timestamp
			}
			matches = append(matches, Match{
				MatchID:           matchID,
				BuyOrder:          buyOrder,
				SellOrder:         sellOrder,
				ExecutionPrice:    executionPrice,
				ExecutionQuantity: buyOrder.Quantity,
				Timestamp:         timestamp,
			})
			break
		}
	}

	for _, m := range matches {
		b.removeOrderLocked(m.BuyOrder)
		b.removeOrderLocked(m.SellOrder)
		b.lastPrice = m.ExecutionPrice
	}

	return matches, nil
}

func (b *Book) flattenBids() []*Order {
	var all []*Order
	for _, level := range b.bids {
		all = append(all, level...)
	}
	return all
}

func (b *Book) flattenAsks() []*Order {
	var all []*Order
	for _, level := range b.asks {
		all = append(all, level...)
	}
	return all
}

func (b *Book) removeOrderLocked(o *Order) {
	isBid := b.orderSide[o.ID]
	price := b.orderPrice[o.ID]

	var table map[uint64][]*Order
	if isBid {
		table = b.bids
	} else {
		table = b.asks
	}

	level := table[price]
	for i, candidate := range level {
		if candidate.ID == o.ID {
			table[price] = append(level[:i], level[i+1:]...)
			break
		}
	}
	if len(table[price]) == 0 {
		delete(table, price)
		if isBid {
			b.removeFromBidHeap(price)
		} else {
			b.removeFromAskHeap(price)
		}
	}

	delete(b.orderSide, o.ID)
	delete(b.orderPrice, o.ID)
}

func (b *Book) removeFromBidHeap(price uint64) {
	for i := 0; i < b.bidHeap.Len(); i++ {
		if b.bidHeap[i] == price {
			heap.Remove(&b.bidHeap, i)
			return
		}
	}
}

func (b *Book) removeFromAskHeap(price uint64) {
	for i := 0; i < b.askHeap.Len(); i++ {
		if b.askHeap[i] == price {
			heap.Remove(&b.askHeap, i)
			return
		}
	}
}

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bidHeap.Peek()
}

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (uint64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.askHeap.Peek()
}

// MidPrice averages the best bid and best ask, or 0 if the book is empty
// or one-sided.
func (b *Book) MidPrice() uint64 {
	bid, ok := b.BestBid()
	if !ok {
		return 0
	}
	ask, ok := b.BestAsk()
	if !ok {
		return 0
	}
	return (bid + ask) / 2
}

// LastPrice returns the price of the most recently claimed match, or 0.
func (b *Book) LastPrice() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastPrice
}

// BidLevels returns aggregated bid price levels, best (highest) first.
func (b *Book) BidLevels() []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return aggregateLevels(b.bids, true)
}

// AskLevels returns aggregated ask price levels, best (lowest) first.
func (b *Book) AskLevels() []PriceLevel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return aggregateLevels(b.asks, false)
}

func aggregateLevels(table map[uint64][]*Order, descending bool) []PriceLevel {
	levels := make([]PriceLevel, 0, len(table))
	for price, orders := range table {
		var qty uint64
		for _, o := range orders {
			qty += o.Quantity
		}
		levels = append(levels, PriceLevel{Price: price, Quantity: qty})
	}
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price > levels[j].Price
		}
		return levels[i].Price < levels[j].Price
	})
	return levels
}

func newMatchID() (string, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("orderbook: generating match id: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// Set owns one Book per asset address and routes submissions to the right
// one, creating books lazily on first submission.
type Set struct {
	mu    sync.Mutex
	books map[string]*Book
}

// NewSet constructs an empty multi-asset book set.
func NewSet() *Set {
	return &Set{books: make(map[string]*Book)}
}

// BookFor returns (creating if necessary) the book for an asset address.
func (s *Set) BookFor(assetAddress string) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[assetAddress]
	if !ok {
		b = NewBook()
		s.books[assetAddress] = b
	}
	return b
}

// Assets lists every asset address with an initialized book.
func (s *Set) Assets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.books))
	for a := range s.books {
		out = append(out, a)
	}
	return out
}
