package api

// SubmitOrderRequest is submitOrder's request body: PrivateOrder minus the
// server-assigned timestamp.
type SubmitOrderRequest struct {
	Trader         string `json:"trader"`
	AssetAddress   string `json:"assetAddress"`
	Side           string `json:"side"` // "buy" | "sell"
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	ExpiryUnix     int64  `json:"expiry"`
	Commitment     string `json:"commitment"` // decimal
	Secret         string `json:"secret"`     // decimal
	Nonce          string `json:"nonce"`      // decimal
	WhitelistIndex uint64 `json:"whitelistIndex"`
}

// SubmitOrderResponse mirrors submitOrder's response shape.
type SubmitOrderResponse struct {
	Accepted          bool              `json:"accepted"`
	PendingMatches    []MatchView       `json:"pendingMatches"`
	OrderBookSnapshot OrderBookResponse `json:"orderBookSnapshot"`
	NoMatchReason     string            `json:"noMatchReason,omitempty"`
}

// OrderBookResponse is getOrderBook's response: counts plus raw decimal
// arrays.
type OrderBookResponse struct {
	Buys           int      `json:"buys"`
	Sells          int      `json:"sells"`
	BuyQuantities  []string `json:"buyQuantities"`
	SellQuantities []string `json:"sellQuantities"`
	BuyPrices      []string `json:"buyPrices"`
	SellPrices     []string `json:"sellPrices"`
}

// MatchView is a Match rendered with every big integer as a decimal string.
type MatchView struct {
	MatchID           string `json:"matchId"`
	BuyerAddress      string `json:"buyerAddress"`
	SellerAddress     string `json:"sellerAddress"`
	AssetAddress      string `json:"assetAddress"`
	ExecutionPrice    string `json:"executionPrice"`
	ExecutionQuantity string `json:"executionQuantity"`
	Timestamp         int64  `json:"timestamp"`
}

// SettlementView is a settlement.Record rendered for the wire: proof and
// public signals as hex, status as its string name.
type SettlementView struct {
	MatchID       string `json:"matchId"`
	AssetAddress  string `json:"assetAddress"`
	BuyerAddress  string `json:"buyerAddress"`
	SellerAddress string `json:"sellerAddress"`
	Status        string `json:"status"`
	NullifierHash string `json:"nullifierHash,omitempty"`
	ProofHex      string `json:"proofHex,omitempty"`
	SignalsHex    string `json:"signalsHex,omitempty"`
	BuyerSigned   bool   `json:"buyerSigned"`
	SellerSigned  bool   `json:"sellerSigned"`
	TxHash        string `json:"txHash,omitempty"`
	Error         string `json:"error,omitempty"`
	ErrorKind     string `json:"errorKind,omitempty"`
}

// SubmitSignatureRequest is submitSignature's request body.
type SubmitSignatureRequest struct {
	MatchID   string `json:"matchId"`
	Role      string `json:"role"`      // "buyer" | "seller"
	Signature string `json:"signature"` // 0x-prefixed hex
}

// SubmitSignatureResponse mirrors submitSignature's response shape.
type SubmitSignatureResponse struct {
	BuyerSigned  bool `json:"buyerSigned"`
	SellerSigned bool `json:"sellerSigned"`
}

// WhitelistProofResponse is the diagnostic whitelist-proof endpoint's
// response: the inclusion proof and leaf hash for one index, hex-rendered.
type WhitelistProofResponse struct {
	Index    uint64   `json:"index"`
	Leaf     string   `json:"leaf"`
	Root     string   `json:"root"`
	Siblings []string `json:"siblings"`
	Indices  []uint8  `json:"indices"`
}

// errorResponse is the body of every non-2xx response, naming a stable
// error code and a human message per §7's propagation policy.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	MatchID string `json:"matchId,omitempty"`
}
