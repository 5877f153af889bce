// Package fee turns a node fee snapshot into a scaled fee offer and the
// amount of balance that must be held back to pay for it.
package fee

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/vietddude/sweeper/internal/core/domain"
)

// Estimate scales the snapshot by multiplier and returns the quote together
// with its reserve, gasLimit * per-gas price.
//
// A positive base fee selects the dynamic market; otherwise the legacy gas
// price is used. Scaling is exact decimal arithmetic; a fractional product is
// rounded up to the next base unit so the reserve always covers the quote.
func Estimate(data *domain.FeeData, multiplier decimal.Decimal, gasLimit uint64) (domain.FeeQuote, *big.Int, error) {
	if data == nil {
		return nil, nil, domain.ErrFeeUnavailable
	}
	if !multiplier.IsPositive() {
		return nil, nil, fmt.Errorf("gas multiplier must be positive, got %s", multiplier)
	}

	limit := new(big.Int).SetUint64(gasLimit)

	if data.DynamicMarket() {
		if data.MaxFeePerGas == nil || data.MaxPriorityFeePerGas == nil {
			return nil, nil, fmt.Errorf("%w: dynamic market without fee caps", domain.ErrFeeUnavailable)
		}

		quote := domain.DynamicQuote{
			MaxFeePerGas:         Scale(data.MaxFeePerGas, multiplier),
			MaxPriorityFeePerGas: Scale(data.MaxPriorityFeePerGas, multiplier),
		}
		return quote, new(big.Int).Mul(limit, quote.PerGas()), nil
	}

	if data.GasPrice == nil || data.GasPrice.Sign() <= 0 {
		return nil, nil, fmt.Errorf("%w: no gas price", domain.ErrFeeUnavailable)
	}

	quote := domain.LegacyQuote{GasPrice: Scale(data.GasPrice, multiplier)}
	return quote, new(big.Int).Mul(limit, quote.GasPrice), nil
}

// Scale multiplies v by m, rounding up to a whole base unit.
func Scale(v *big.Int, m decimal.Decimal) *big.Int {
	return decimal.NewFromBigInt(v, 0).Mul(m).Ceil().BigInt()
}

// FormatEther renders a wei amount in ether for logs.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -18).String()
}
