// Command commit-order demonstrates the client-side half of the order
// lifecycle: drawing a commitment's private entropy, printing the
// fields a trader must submit alongside the order, and signing a
// settlement intent the way a trader's wallet would once a match reaches
// the signature-rendezvous stage.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/duskpool/core/pkg/commitment"
	"github.com/duskpool/core/pkg/field"
	"github.com/duskpool/core/pkg/sign"
)

func main() {
	fmt.Println("Generating trader keypair...")
	signer, err := sign.GenerateKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Address: %s\n", signer.Address().Hex())
	fmt.Printf("Private Key: %s (KEEP SECRET!)\n\n", signer.PrivateKeyHex())

	const assetAddress = "C" + "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	assetHash, err := commitment.HashAsset(assetAddress)
	if err != nil {
		fmt.Printf("Error hashing asset: %v\n", err)
		os.Exit(1)
	}

	const (
		quantity uint64 = 1_000_0000000 // 1000.0000000 in 1e7 fixed point
		price    uint64 = 25_0000000    // 25.0000000 in 1e7 fixed point
	)

	oc, err := commitment.GenerateOrderCommitment(assetHash, commitment.Buy, quantity, price)
	if err != nil {
		fmt.Printf("Error generating commitment: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order commitment:")
	fmt.Printf("  Asset:      %s\n", assetAddress)
	fmt.Printf("  Side:       buy\n")
	fmt.Printf("  Quantity:   %d\n", quantity)
	fmt.Printf("  Price:      %d\n", price)
	fmt.Printf("  Commitment: %s\n", oc.Commitment.Hex())
	fmt.Printf("  Secret:     %s (keep private, needed to reveal a witness later)\n", oc.Secret.Hex())
	fmt.Printf("  Nonce:      %s (keep private)\n\n", oc.Nonce.Hex())

	submission := struct {
		Trader         string `json:"trader"`
		AssetAddress   string `json:"assetAddress"`
		Side           string `json:"side"`
		Quantity       string `json:"quantity"`
		Price          string `json:"price"`
		Expiry         int64  `json:"expiry"`
		Commitment     string `json:"commitment"`
		Secret         string `json:"secret"`
		Nonce          string `json:"nonce"`
		WhitelistIndex uint64 `json:"whitelistIndex"`
	}{
		Trader:         signer.Address().Hex(),
		AssetAddress:   assetAddress,
		Side:           "buy",
		Quantity:       fmt.Sprintf("%d", quantity),
		Price:          fmt.Sprintf("%d", price),
		Expiry:         time.Now().Add(time.Hour).Unix(),
		Commitment:     oc.Commitment.Decimal(),
		Secret:         oc.Secret.Decimal(),
		Nonce:          oc.Nonce.Decimal(),
		WhitelistIndex: 0,
	}
	payload, err := json.MarshalIndent(submission, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling submission: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("POST /api/v1/orders body:")
	fmt.Println(string(payload))
	fmt.Println()

	fmt.Println("Once matched, a trader signs a settlement intent like this:")
	intent := &sign.SettlementIntent{
		MatchID:           "demo-match-0001",
		NullifierHash:     field.FromUint64(123456789).BigInt(),
		ExecutionPrice:    new(big.Int).SetUint64(price),
		ExecutionQuantity: new(big.Int).SetUint64(quantity),
		Role:              sign.RoleBuyer,
	}

	signer712 := sign.NewSigner712(sign.DefaultDomain())
	signature, err := signer712.SignIntent(signer, intent)
	if err != nil {
		fmt.Printf("Error signing intent: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  Signature: 0x%x\n\n", signature)

	valid, err := signer712.VerifyIntentSignature(intent, signature, signer.Address())
	if err != nil {
		fmt.Printf("Error verifying intent signature: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("signature does not verify against the signer's own address")
		os.Exit(1)
	}
	fmt.Println("Signature verifies against the signer's address.")

	fmt.Println("\nTo submit this signature to duskpool:")
	fmt.Println("  POST http://localhost:8080/api/v1/settlements/demo-match-0001/signature")
	fmt.Println("  Content-Type: application/json")
	fmt.Printf("  Body: {\"matchId\":%q,\"role\":\"buyer\",\"signature\":\"0x%x\"}\n", intent.MatchID, signature)
}
