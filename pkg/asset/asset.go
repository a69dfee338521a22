// Package asset validates the tradable-asset identifiers and the
// decimal/integer scaling convention used throughout order submission.
package asset

import (
	"fmt"
	"strconv"
	"strings"
)

// ScalingFactor is the fixed-point scale applied to trader-facing decimal
// quantities and prices before they enter the core as integers.
const ScalingFactor = 1e7

// AddressLength is the fixed length of a compliance-whitelisted asset or
// trader address.
const AddressLength = 56

// MaxSymbolLength bounds a human-facing asset symbol.
const MaxSymbolLength = 12

// Asset identifies one tradable instrument by its compliance-whitelisted
// on-chain address and a short display symbol.
type Asset struct {
	Symbol  string
	Address string
}

// New validates and normalizes a symbol/address pair into an Asset. The
// symbol is uppercased server-side.
func New(symbol, address string) (Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := ValidateSymbol(symbol); err != nil {
		return Asset{}, err
	}
	if err := ValidateAddress(address); err != nil {
		return Asset{}, err
	}
	return Asset{Symbol: symbol, Address: address}, nil
}

// ValidateSymbol enforces the ≤12-character bound on display symbols.
func ValidateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("asset: symbol must not be empty")
	}
	if len(symbol) > MaxSymbolLength {
		return fmt.Errorf("asset: symbol %q exceeds %d characters", symbol, MaxSymbolLength)
	}
	return nil
}

// ValidateAddress enforces the compliance-whitelisted address format: 56
// characters beginning with 'C'.
func ValidateAddress(address string) error {
	if len(address) != AddressLength {
		return fmt.Errorf("asset: address must be %d characters, got %d", AddressLength, len(address))
	}
	if address[0] != 'C' {
		return fmt.Errorf("asset: address must begin with 'C'")
	}
	return nil
}

// ValidateQuantity enforces the order-book invariant quantity > 0.
func ValidateQuantity(quantity uint64) error {
	if quantity == 0 {
		return fmt.Errorf("asset: quantity must be greater than zero")
	}
	return nil
}

// ValidatePrice enforces the order-book invariant price > 0.
func ValidatePrice(price uint64) error {
	if price == 0 {
		return fmt.Errorf("asset: price must be greater than zero")
	}
	return nil
}

// ToScaledInteger converts a trader-facing decimal string (e.g. "1.5") into
// its scaled integer representation using ScalingFactor.
func ToScaledInteger(decimal string) (uint64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(decimal), 64)
	if err != nil {
		return 0, fmt.Errorf("asset: invalid decimal %q: %w", decimal, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("asset: decimal %q must be non-negative", decimal)
	}
	return uint64(f*ScalingFactor + 0.5), nil
}

// FromScaledInteger renders a scaled integer back into a trader-facing
// decimal string.
func FromScaledInteger(scaled uint64) string {
	whole := scaled / ScalingFactor
	frac := scaled % ScalingFactor
	return fmt.Sprintf("%d.%07d", whole, frac)
}
