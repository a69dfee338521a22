package sign

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain is the EIP-712 domain separator binding settlement-intent
// signatures to one deployment, preventing cross-chain/cross-contract
// replay.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// DefaultDomain returns the off-chain signing domain used when no verifier
// contract address is yet known.
func DefaultDomain() Domain {
	return Domain{
		Name:              "duskpool",
		Version:           "1",
		ChainID:           big.NewInt(1337),
		VerifyingContract: common.Address{},
	}
}

// SettlementIntent is the typed data structure each counterparty signs to
// authorize settlement of a specific match. Role distinguishes the buyer's
// and seller's signatures over the same match so the coordinator can bind
// each signature to the correct slot.
type SettlementIntent struct {
	MatchID           string
	NullifierHash     *big.Int
	ExecutionPrice    *big.Int
	ExecutionQuantity *big.Int
	Role              uint8 // 0 = buyer, 1 = seller
}

const (
	RoleBuyer  uint8 = 0
	RoleSeller uint8 = 1
)

// Signer712 hashes and signs SettlementIntent values under one domain.
type Signer712 struct {
	domain Domain
}

// NewSigner712 builds a typed-data signer for the given domain.
func NewSigner712(domain Domain) *Signer712 {
	return &Signer712{domain: domain}
}

func (e *Signer712) typedData(intent *SettlementIntent) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"SettlementIntent": []apitypes.Type{
				{Name: "matchId", Type: "string"},
				{Name: "nullifierHash", Type: "uint256"},
				{Name: "executionPrice", Type: "uint256"},
				{Name: "executionQuantity", Type: "uint256"},
				{Name: "role", Type: "uint8"},
			},
		},
		PrimaryType: "SettlementIntent",
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"matchId":           intent.MatchID,
			"nullifierHash":     intent.NullifierHash.String(),
			"executionPrice":    intent.ExecutionPrice.String(),
			"executionQuantity": intent.ExecutionQuantity.String(),
			"role":              fmt.Sprintf("%d", intent.Role),
		},
	}
}

// HashIntent computes the EIP-712 digest that must be signed.
func (e *Signer712) HashIntent(intent *SettlementIntent) ([]byte, error) {
	typedData := e.typedData(intent)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("sign: hashing domain: %w", err)
	}
	messageHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("sign: hashing message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(messageHash)))
	digest := crypto.Keccak256Hash(rawData)
	return digest.Bytes(), nil
}

// SignIntent hashes and signs a settlement intent with signer's key.
func (e *Signer712) SignIntent(signer *Signer, intent *SettlementIntent) ([]byte, error) {
	digest, err := e.HashIntent(intent)
	if err != nil {
		return nil, err
	}
	return signer.Sign(digest)
}

// RecoverIntentSigner recovers the address that produced signature over
// intent.
func (e *Signer712) RecoverIntentSigner(intent *SettlementIntent, signature []byte) (common.Address, error) {
	digest, err := e.HashIntent(intent)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverAddress(digest, signature)
}

// VerifyIntentSignature reports whether signature over intent was produced
// by expected.
func (e *Signer712) VerifyIntentSignature(intent *SettlementIntent, signature []byte, expected common.Address) (bool, error) {
	recovered, err := e.RecoverIntentSigner(intent, signature)
	if err != nil {
		return false, err
	}
	return recovered == expected, nil
}
