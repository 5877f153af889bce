package domain

import "math/big"

// FeeData is a raw snapshot of network fee conditions as reported by the node.
type FeeData struct {
	GasPrice             *big.Int
	LastBaseFeePerGas    *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// DynamicMarket reports whether the network charges a base fee.
func (f FeeData) DynamicMarket() bool {
	return f.LastBaseFeePerGas != nil && f.LastBaseFeePerGas.Sign() > 0
}

type MarketType string

const (
	MarketLegacy  MarketType = "legacy"
	MarketDynamic MarketType = "dynamic"
)

// FeeQuote is a fee offer already scaled by the gas multiplier.
// It is either a LegacyQuote or a DynamicQuote.
type FeeQuote interface {
	Market() MarketType
	// PerGas returns the total price per unit of gas reserved by this quote.
	PerGas() *big.Int
	feeQuote()
}

// LegacyQuote is a single gas price offer.
type LegacyQuote struct {
	GasPrice *big.Int
}

func (LegacyQuote) Market() MarketType { return MarketLegacy }

func (q LegacyQuote) PerGas() *big.Int { return new(big.Int).Set(q.GasPrice) }

func (LegacyQuote) feeQuote() {}

// DynamicQuote is a base fee cap plus priority tip offer.
type DynamicQuote struct {
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

func (DynamicQuote) Market() MarketType { return MarketDynamic }

// PerGas returns maxFee + maxPriority, matching the reserve computation.
func (q DynamicQuote) PerGas() *big.Int {
	return new(big.Int).Add(q.MaxFeePerGas, q.MaxPriorityFeePerGas)
}

func (DynamicQuote) feeQuote() {}
