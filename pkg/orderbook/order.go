package orderbook

import (
	"time"

	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/field"
)

// Order is a resting or incoming private order. Secret and nonce are
// retained alongside the order because the proof worker later needs them
// to rebuild the witness for the settlement circuit; they never leave the
// core over the wire.
type Order struct {
	ID             string
	Trader         string
	AssetAddress   string
	Side           commitment.Side
	Quantity       uint64
	Price          uint64
	Commitment     field.Element
	Secret         field.Element
	Nonce          field.Element
	Timestamp      int64
	Expiry         time.Time
	WhitelistIndex uint64
}

// Match is a claimed buy/sell pair emitted by a matching pass.
type Match struct {
	MatchID           string
	BuyOrder          *Order
	SellOrder         *Order
	ExecutionPrice    uint64
	ExecutionQuantity uint64
	Timestamp         int64
}
