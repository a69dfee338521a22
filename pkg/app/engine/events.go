package engine

import (
	"fmt"

	"github.com/duskpool/core/pkg/eventbus"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/proof"
	"github.com/duskpool/core/pkg/settlement"
	"github.com/duskpool/core/pkg/storage"
)

// BusSink adapts a proof worker pool and a settlement coordinator onto the
// event bus, routing every lifecycle notification to the asset's orderbook
// channel, both traders' channels, and the match's settlement channel. It
// also appends one human-auditable line per settlement transition to
// settlementLog, the single writer of the settlement audit trail per match.
type BusSink struct {
	bus           *eventbus.Bus
	settlementLog storage.AppendLog
}

// NewBusSink constructs a BusSink over bus. Install it with
// proof.Pool.SetEventSink and settlement.Coordinator.SetEventSink.
// settlementLog receives the audit trail; pass storage.NewNopAppendLog()
// when no on-disk audit trail is configured.
func NewBusSink(bus *eventbus.Bus, settlementLog storage.AppendLog) *BusSink {
	return &BusSink{bus: bus, settlementLog: settlementLog}
}

var (
	_ proof.EventSink      = (*BusSink)(nil)
	_ settlement.EventSink = (*BusSink)(nil)
)

func (s *BusSink) routes(assetAddress, buyer, seller, matchID string) []eventbus.Channel {
	return eventbus.MatchRoutes(assetAddress, buyer, seller, matchID)
}

// ProofGenerating publishes proof:generating once a match enters proving.
func (s *BusSink) ProofGenerating(m orderbook.Match) {
	payload := eventbus.ProofStatusPayload{
		MatchID:       m.MatchID,
		BuyerAddress:  m.BuyOrder.Trader,
		SellerAddress: m.SellOrder.Trader,
	}
	s.bus.Publish(eventbus.EventProofGenerating, m.MatchID, payload,
		s.routes(m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, m.MatchID)...)
}

// ProofGenerated publishes proof:generated with the resulting nullifier.
func (s *BusSink) ProofGenerated(m orderbook.Match, nullifierHex string) {
	payload := eventbus.ProofStatusPayload{
		MatchID:       m.MatchID,
		BuyerAddress:  m.BuyOrder.Trader,
		SellerAddress: m.SellOrder.Trader,
		ProofHash:     nullifierHex,
	}
	s.bus.Publish(eventbus.EventProofGenerated, m.MatchID, payload,
		s.routes(m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, m.MatchID)...)
}

// ProofFailed publishes proof:failed with the terminal failure reason.
func (s *BusSink) ProofFailed(m orderbook.Match, reason string) {
	payload := eventbus.ProofStatusPayload{
		MatchID:       m.MatchID,
		BuyerAddress:  m.BuyOrder.Trader,
		SellerAddress: m.SellOrder.Trader,
		Error:         reason,
	}
	s.bus.Publish(eventbus.EventProofFailed, m.MatchID, payload,
		s.routes(m.BuyOrder.AssetAddress, m.BuyOrder.Trader, m.SellOrder.Trader, m.MatchID)...)
}

// SignatureAdded publishes signature:added for every submission, whether or
// not it completes the rendezvous.
func (s *BusSink) SignatureAdded(r *settlement.Record, signer string, role settlement.Role, buyerSigned, sellerSigned bool) {
	roleName := "buyer"
	if role == settlement.RoleSeller {
		roleName = "seller"
	}
	payload := eventbus.SignatureAddedPayload{
		MatchID:      r.MatchID,
		Signer:       signer,
		Role:         roleName,
		BuyerSigned:  buyerSigned,
		SellerSigned: sellerSigned,
	}
	s.bus.Publish(eventbus.EventSignatureAdded, r.MatchID, payload,
		s.routes(r.AssetAddress, r.BuyerTrader, r.SellerTrader, r.MatchID)...)
}

// SignatureComplete publishes signature:complete once both parties have
// signed.
func (s *BusSink) SignatureComplete(r *settlement.Record) {
	payload := eventbus.SignatureCompletePayload{
		MatchID:       r.MatchID,
		BuyerAddress:  r.BuyerTrader,
		SellerAddress: r.SellerTrader,
	}
	s.bus.Publish(eventbus.EventSignatureComplete, r.MatchID, payload,
		s.routes(r.AssetAddress, r.BuyerTrader, r.SellerTrader, r.MatchID)...)
}

// SettlementQueued publishes settlement:queued once a packet is built and
// handed to the on-chain submission path.
func (s *BusSink) SettlementQueued(r *settlement.Record) {
	payload := eventbus.SettlementStatusPayload{
		MatchID:       r.MatchID,
		BuyerAddress:  r.BuyerTrader,
		SellerAddress: r.SellerTrader,
	}
	s.bus.Publish(eventbus.EventSettlementQueued, r.MatchID, payload,
		s.routes(r.AssetAddress, r.BuyerTrader, r.SellerTrader, r.MatchID)...)
	s.settlementLog.Append(fmt.Sprintf("settlement matchId=%s status=queued-on-chain", r.MatchID))
}

// SettlementConfirmed publishes settlement:confirmed with the on-chain
// transaction hash.
func (s *BusSink) SettlementConfirmed(r *settlement.Record, txHash string) {
	payload := eventbus.SettlementStatusPayload{
		MatchID:       r.MatchID,
		BuyerAddress:  r.BuyerTrader,
		SellerAddress: r.SellerTrader,
		TxHash:        txHash,
	}
	s.bus.Publish(eventbus.EventSettlementConfirm, r.MatchID, payload,
		s.routes(r.AssetAddress, r.BuyerTrader, r.SellerTrader, r.MatchID)...)
	s.settlementLog.Append(fmt.Sprintf("settlement matchId=%s status=confirmed txHash=%s", r.MatchID, txHash))
}

// SettlementFailed publishes settlement:failed with the terminal reason,
// whether from signature timeout, a terminal on-chain error, or retry
// exhaustion. Proof failures are published through ProofFailed instead.
func (s *BusSink) SettlementFailed(r *settlement.Record, reason string) {
	payload := eventbus.SettlementStatusPayload{
		MatchID:       r.MatchID,
		BuyerAddress:  r.BuyerTrader,
		SellerAddress: r.SellerTrader,
		Error:         reason,
	}
	s.bus.Publish(eventbus.EventSettlementFailed, r.MatchID, payload,
		s.routes(r.AssetAddress, r.BuyerTrader, r.SellerTrader, r.MatchID)...)
	s.settlementLog.Append(fmt.Sprintf("settlement matchId=%s status=failed reason=%q", r.MatchID, reason))
}
