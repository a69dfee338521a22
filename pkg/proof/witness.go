package proof

import (
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/orderbook"
	"github.com/duskpool/core/pkg/whitelist"
)

// Inputs is the witness object for one match, using the exact field names
// the settlement circuit expects. Private inputs (ids, Merkle paths,
// secrets, nonces) never leave this struct's lifetime; only the public
// fields surface in the proof's public signals.
type Inputs struct {
	BuyerIDHash       field.Element
	SellerIDHash      field.Element
	BuyerMerkleProof  whitelist.Proof
	SellerMerkleProof whitelist.Proof
	BuySecret         field.Element
	BuyNonce          field.Element
	SellSecret        field.Element
	SellNonce         field.Element
	BuyCommitment     field.Element
	SellCommitment    field.Element
	AssetHash         field.Element
	MatchedQuantity   uint64
	ExecutionPrice    uint64
	WhitelistRoot     field.Element
}

// BuildInputs assembles the witness object for a claimed match, given the
// whitelist snapshot's Merkle proofs for both traders and each trader's
// idHash leaf value.
func BuildInputs(m orderbook.Match, assetHash field.Element, buyerIDHash, sellerIDHash field.Element, buyerProof, sellerProof whitelist.Proof, whitelistRoot field.Element) Inputs {
	return Inputs{
		BuyerIDHash:       buyerIDHash,
		SellerIDHash:      sellerIDHash,
		BuyerMerkleProof:  buyerProof,
		SellerMerkleProof: sellerProof,
		BuySecret:         m.BuyOrder.Secret,
		BuyNonce:          m.BuyOrder.Nonce,
		SellSecret:        m.SellOrder.Secret,
		SellNonce:         m.SellOrder.Nonce,
		BuyCommitment:     m.BuyOrder.Commitment,
		SellCommitment:    m.SellOrder.Commitment,
		AssetHash:         assetHash,
		MatchedQuantity:   m.ExecutionQuantity,
		ExecutionPrice:    m.ExecutionPrice,
		WhitelistRoot:     whitelistRoot,
	}
}

// ToCircuitMap renders Inputs as the map[string]interface{} shape the WASM
// witness calculator consumes: field elements as decimal strings, Merkle
// proofs split into parallel sibling/index arrays.
func (in Inputs) ToCircuitMap() map[string]any {
	return map[string]any{
		"buyerIdHash":         in.BuyerIDHash.Decimal(),
		"sellerIdHash":        in.SellerIDHash.Decimal(),
		"buyerMerkleProof":    siblingsToDecimal(in.BuyerMerkleProof),
		"buyerMerkleIndices":  indicesToInt(in.BuyerMerkleProof),
		"sellerMerkleProof":   siblingsToDecimal(in.SellerMerkleProof),
		"sellerMerkleIndices": indicesToInt(in.SellerMerkleProof),
		"buySecret":           in.BuySecret.Decimal(),
		"buyNonce":            in.BuyNonce.Decimal(),
		"sellSecret":          in.SellSecret.Decimal(),
		"sellNonce":           in.SellNonce.Decimal(),
		"buyCommitment":       in.BuyCommitment.Decimal(),
		"sellCommitment":      in.SellCommitment.Decimal(),
		"assetHash":           in.AssetHash.Decimal(),
		"matchedQuantity":     in.MatchedQuantity,
		"executionPrice":      in.ExecutionPrice,
		"whitelistRoot":       in.WhitelistRoot.Decimal(),
	}
}

func siblingsToDecimal(p whitelist.Proof) []string {
	out := make([]string, len(p.Siblings))
	for i, s := range p.Siblings {
		out[i] = s.Decimal()
	}
	return out
}

func indicesToInt(p whitelist.Proof) []int {
	out := make([]int, len(p.Indices))
	for i, idx := range p.Indices {
		out[i] = int(idx)
	}
	return out
}
