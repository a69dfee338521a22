package eventbus

// Event type names published on the bus, matching spec §4.7's topic list.
const (
	EventOrderSubmitted     = "order:submitted"
	EventOrderMatched       = "order:matched"
	EventProofGenerating    = "proof:generating"
	EventProofGenerated     = "proof:generated"
	EventProofFailed        = "proof:failed"
	EventSettlementQueued   = "settlement:queued"
	EventSettlementTxBuilt  = "settlement:txBuilt"
	EventSettlementConfirm  = "settlement:confirmed"
	EventSettlementFailed   = "settlement:failed"
	EventSignatureAdded     = "signature:added"
	EventSignatureComplete  = "signature:complete"
)

// OrderMatchedPayload is the order:matched event payload (spec §6.2).
type OrderMatchedPayload struct {
	MatchID           string `json:"matchId"`
	BuyerAddress      string `json:"buyerAddress"`
	SellerAddress     string `json:"sellerAddress"`
	Asset             string `json:"asset"`
	ExecutionPrice    string `json:"executionPrice"`
	ExecutionQuantity string `json:"executionQuantity"`
}

// ProofStatusPayload covers proof:generating|generated|failed.
type ProofStatusPayload struct {
	MatchID       string `json:"matchId"`
	BuyerAddress  string `json:"buyerAddress"`
	SellerAddress string `json:"sellerAddress"`
	ProofHash     string `json:"proofHash,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SettlementStatusPayload covers settlement:queued|txBuilt|confirmed|failed.
type SettlementStatusPayload struct {
	MatchID       string `json:"matchId"`
	BuyerAddress  string `json:"buyerAddress"`
	SellerAddress string `json:"sellerAddress"`
	TxHash        string `json:"txHash,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SignatureAddedPayload is the signature:added event payload.
type SignatureAddedPayload struct {
	MatchID      string `json:"matchId"`
	Signer       string `json:"signer"`
	Role         string `json:"role"`
	BuyerSigned  bool   `json:"buyerSigned"`
	SellerSigned bool   `json:"sellerSigned"`
}

// SignatureCompletePayload is the signature:complete event payload.
type SignatureCompletePayload struct {
	MatchID       string `json:"matchId"`
	BuyerAddress  string `json:"buyerAddress"`
	SellerAddress string `json:"sellerAddress"`
}

// MatchRoutes returns the channel fan-out for any match-scoped event: the
// asset's orderbook channel, both parties' trader channels, and the
// match's own settlement channel, per spec §4.7's routing rule.
func MatchRoutes(assetAddress, buyer, seller, matchID string) []Channel {
	return []Channel{
		OrderBookChannel(assetAddress),
		TraderChannel(buyer),
		TraderChannel(seller),
		SettlementChannel(matchID),
	}
}
