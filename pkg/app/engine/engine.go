// Package engine wires the order books, whitelist snapshot, match queue,
// settlement coordinator, event bus, and storage into the single ingest
// actor described by the concurrency model: all book mutations happen on
// the calling goroutine so price-time sort and claim semantics stay
// race-free, while proof generation and settlement run on their own
// actors reached only through channels and the coordinator's locks.
package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duskpool/core/pkg/asset"
	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/errs"
	"github.com/duskpool/core/pkg/eventbus"
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/matchqueue"
	"github.com/duskpool/core/pkg/metrics"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/storage"
	"github.com/duskpool/core/pkg/whitelist"
)

// OrderRequest is the validated, server-timestamped form of submitOrder's
// input: every PrivateOrder field except the client-supplied timestamp.
type OrderRequest struct {
	Trader         string
	AssetAddress   string
	Side           commitment.Side
	Quantity       uint64
	Price          uint64
	Expiry         time.Time
	Commitment     field.Element
	Secret         field.Element
	Nonce          field.Element
	WhitelistIndex uint64
}

// SubmitResult mirrors submitOrder's response shape.
type SubmitResult struct {
	Accepted          bool
	PendingMatches    []orderbook.Match
	OrderBookSnapshot OrderBookSnapshot
	NoMatchReason     string
}

// OrderBookSnapshot mirrors getOrderBook's response shape.
type OrderBookSnapshot struct {
	BuyQuantities  []uint64
	SellQuantities []uint64
	BuyPrices      []uint64
	SellPrices     []uint64
}

// Engine is the single ingest actor. Every exported method that mutates
// book state must be called from one goroutine at a time; the zero value
// is not usable, construct with New.
type Engine struct {
	books       *orderbook.Set
	whitelist   *whitelist.Tree
	queue       *matchqueue.Queue
	coordinator *settlement.Coordinator
	bus         *eventbus.Bus
	store       *storage.PebbleStore
	metrics     *metrics.Metrics
	matchLog    storage.AppendLog
	logger      *zap.SugaredLogger

	signatureDeadline func(expiry time.Time) time.Time
}

// New constructs an Engine over an already-built whitelist snapshot.
// signatureDeadline derives a settlement record's signature deadline from
// the matched orders' expiry, defaulting to the order expiry itself per
// the spec's default. matchLog receives one human-auditable line per
// completed match, alongside the keyed Pebble record; pass storage.NewNopAppendLog()
// when no on-disk audit trail is configured.
func New(tree *whitelist.Tree, store *storage.PebbleStore, bus *eventbus.Bus, m *metrics.Metrics, matchLog storage.AppendLog, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		books:       orderbook.NewSet(),
		whitelist:   tree,
		queue:       matchqueue.New(),
		coordinator: settlement.NewCoordinator(m),
		bus:         bus,
		store:       store,
		metrics:     m,
		matchLog:    matchLog,
		logger:      logger,
		signatureDeadline: func(expiry time.Time) time.Time {
			return expiry
		},
	}
}

// RestoreSettlements reloads persisted settlement records into the
// coordinator so GetSettlement keeps answering for in-flight and completed
// matches across a restart. Completed matches themselves need no such step:
// GetMatches/GetMatch already read straight through to the store. Call once,
// before the proof pool and API server start accepting work.
func (e *Engine) RestoreSettlements() error {
	records, err := e.store.ListSettlements()
	if err != nil {
		return fmt.Errorf("engine: loading persisted settlements: %w", err)
	}
	e.coordinator.Restore(records)
	return nil
}

// Queue exposes the match queue for the proof worker pool to drain.
func (e *Engine) Queue() *matchqueue.Queue { return e.queue }

// Coordinator exposes the settlement coordinator for the API layer and
// the proof worker pool.
func (e *Engine) Coordinator() *settlement.Coordinator { return e.coordinator }

// Whitelist exposes the current immutable snapshot.
func (e *Engine) Whitelist() *whitelist.Tree { return e.whitelist }

// WhitelistLookup resolves a trader's idHash, inclusion proof, and root
// from the current snapshot, suitable for passing to proof.NewPool.
func (e *Engine) WhitelistLookup(trader string) (field.Element, whitelist.Proof, field.Element, error) {
	index, ok := e.whitelist.IndexOf(trader)
	if !ok {
		return field.Element{}, whitelist.Proof{}, field.Element{}, fmt.Errorf("engine: trader %q not in whitelist", trader)
	}
	proof, err := e.whitelist.Proof(index)
	if err != nil {
		return field.Element{}, whitelist.Proof{}, field.Element{}, err
	}
	idHash, err := e.whitelist.Leaf(index)
	if err != nil {
		return field.Element{}, whitelist.Proof{}, field.Element{}, err
	}
	return idHash, proof, e.whitelist.Root(), nil
}

// SubmitOrder validates an order, adds it to the relevant book, and runs
// the matcher. Claimed matches are persisted, pushed onto the match
// queue, and published on the event bus.
func (e *Engine) SubmitOrder(req OrderRequest) (SubmitResult, error) {
	if err := validateOrder(req); err != nil {
		return SubmitResult{}, err
	}
	if _, ok := e.whitelist.IndexOf(req.Trader); !ok {
		return SubmitResult{}, errs.New(errs.InvalidInput, "trader is not whitelisted")
	}
	assetHash, err := commitment.HashAsset(req.AssetAddress)
	if err != nil {
		return SubmitResult{}, errs.Wrap(errs.InvalidInput, "hashing asset address", err)
	}
	expected, err := commitment.Reconstruct(assetHash, req.Side, req.Quantity, req.Price, req.Nonce, req.Secret)
	if err != nil {
		return SubmitResult{}, errs.Wrap(errs.InvalidInput, "recomputing commitment", err)
	}
	if !expected.Equal(req.Commitment) {
		return SubmitResult{}, errs.New(errs.InvalidInput, "commitment does not match the order fields")
	}

	book := e.books.BookFor(req.AssetAddress)
	order := &orderbook.Order{
		ID:             newOrderID(),
		Trader:         req.Trader,
		AssetAddress:   req.AssetAddress,
		Side:           req.Side,
		Quantity:       req.Quantity,
		Price:          req.Price,
		Commitment:     req.Commitment,
		Secret:         req.Secret,
		Nonce:          req.Nonce,
		Timestamp:      time.Now().UnixNano(),
		Expiry:         req.Expiry,
		WhitelistIndex: req.WhitelistIndex,
	}

	matches, noMatchReason, err := book.Submit(order)
	if err != nil {
		return SubmitResult{}, err
	}

	e.metrics.OrdersSubmitted.Inc()
	e.bus.Publish(eventbus.EventOrderSubmitted, "", map[string]any{"assetAddress": req.AssetAddress, "timestamp": order.Timestamp},
		eventbus.OrderBookChannel(req.AssetAddress), eventbus.TraderChannel(req.Trader))

	for _, m := range matches {
		e.metrics.MatchesFormed.Inc()
		if err := e.store.SaveMatch(m); err != nil {
			e.logger.Errorw("persisting match", "matchId", m.MatchID, "error", err)
		}
		e.matchLog.Append(fmt.Sprintf("match matchId=%s asset=%s buyer=%s seller=%s price=%d quantity=%d ts=%d",
			m.MatchID, req.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, m.ExecutionPrice, m.ExecutionQuantity, order.Timestamp))
		deadline := e.signatureDeadline(m.BuyOrder.Expiry)
		if m.SellOrder.Expiry.Before(deadline) {
			deadline = m.SellOrder.Expiry
		}
		e.coordinator.Register(m.MatchID, req.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, time.Now(), deadline)
		e.queue.Push(m)
		e.metrics.MatchQueueDepth.Set(float64(e.queue.Len()))
		e.bus.Publish(eventbus.EventOrderMatched, m.MatchID, matchEventPayload(req.AssetAddress, m),
			eventbus.MatchRoutes(req.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, m.MatchID)...)
	}

	return SubmitResult{
		Accepted:          true,
		PendingMatches:    matches,
		OrderBookSnapshot: snapshotBook(book),
		NoMatchReason:     noMatchReason,
	}, nil
}

// GetOrderBook returns the current book snapshot for one asset.
func (e *Engine) GetOrderBook(assetAddress string) OrderBookSnapshot {
	return snapshotBook(e.books.BookFor(assetAddress))
}

// GetMatches returns every completed match persisted so far.
func (e *Engine) GetMatches() ([]orderbook.Match, error) {
	return e.store.ListMatches()
}

// GetMatch returns one completed match by id.
func (e *Engine) GetMatch(matchID string) (orderbook.Match, bool, error) {
	return e.store.GetMatch(matchID)
}

// GetSettlements returns every settlement record a trader participates in,
// or every record if trader is empty.
func (e *Engine) GetSettlements(trader string) []*settlement.Record {
	return e.coordinator.ForTrader(trader)
}

// GetSettlement returns one settlement record by match id.
func (e *Engine) GetSettlement(matchID string) (*settlement.Record, bool) {
	return e.coordinator.Get(matchID)
}

// SubmitSignature applies a trader's EIP-712 signature to a match's
// settlement record and persists the updated record.
func (e *Engine) SubmitSignature(matchID string, role settlement.Role, signature []byte) (buyerSigned, sellerSigned bool, err error) {
	buyerSigned, sellerSigned, err = e.coordinator.SubmitSignature(matchID, role, signature)
	if err != nil {
		return buyerSigned, sellerSigned, err
	}
	if r, ok := e.coordinator.Get(matchID); ok {
		if err := e.store.SaveSettlement(r); err != nil {
			e.logger.Errorw("persisting settlement", "matchId", matchID, "error", err)
		}
	}
	return buyerSigned, sellerSigned, nil
}

// WhitelistProof resolves the inclusion proof and idHash leaf for a leaf
// index against the current snapshot, for the diagnostic whitelist-proof
// endpoint.
func (e *Engine) WhitelistProof(index uint64) (whitelist.Proof, field.Element, error) {
	proof, err := e.whitelist.Proof(int(index))
	if err != nil {
		return whitelist.Proof{}, field.Element{}, err
	}
	leaf, err := e.whitelist.Leaf(int(index))
	if err != nil {
		return whitelist.Proof{}, field.Element{}, err
	}
	return proof, leaf, nil
}

// ProcessPendingMatches drains the match queue immediately, returning the
// drained matches so a caller (administrative endpoint or a worker pool
// shim in tests) can process them synchronously instead of waiting for
// the background pool's poll interval.
func (e *Engine) ProcessPendingMatches() []orderbook.Match {
	drained := e.queue.Drain()
	e.metrics.MatchQueueDepth.Set(0)
	return drained
}

func validateOrder(req OrderRequest) error {
	if err := asset.ValidateAddress(req.AssetAddress); err != nil {
		return errs.Wrap(errs.InvalidInput, "invalid asset address", err)
	}
	if err := asset.ValidateQuantity(req.Quantity); err != nil {
		return errs.Wrap(errs.InvalidInput, "invalid quantity", err)
	}
	if err := asset.ValidatePrice(req.Price); err != nil {
		return errs.Wrap(errs.InvalidInput, "invalid price", err)
	}
	if !req.Expiry.After(time.Now()) {
		return errs.New(errs.InvalidInput, "expiry must be in the future")
	}
	return nil
}

func snapshotBook(book *orderbook.Book) OrderBookSnapshot {
	bids := book.BidLevels()
	asks := book.AskLevels()
	snap := OrderBookSnapshot{
		BuyQuantities:  make([]uint64, len(bids)),
		BuyPrices:      make([]uint64, len(bids)),
		SellQuantities: make([]uint64, len(asks)),
		SellPrices:     make([]uint64, len(asks)),
	}
	for i, lvl := range bids {
		snap.BuyQuantities[i] = lvl.Quantity
		snap.BuyPrices[i] = lvl.Price
	}
	for i, lvl := range asks {
		snap.SellQuantities[i] = lvl.Quantity
		snap.SellPrices[i] = lvl.Price
	}
	return snap
}

func newOrderID() string {
	return uuid.NewString()
}

func matchEventPayload(assetAddress string, m orderbook.Match) eventbus.OrderMatchedPayload {
	return eventbus.OrderMatchedPayload{
		MatchID:           m.MatchID,
		BuyerAddress:      m.BuyOrder.Trader,
		SellerAddress:     m.SellOrder.Trader,
		Asset:             assetAddress,
		ExecutionPrice:    fmt.Sprintf("%d", m.ExecutionPrice),
		ExecutionQuantity: fmt.Sprintf("%d", m.ExecutionQuantity),
	}
}
