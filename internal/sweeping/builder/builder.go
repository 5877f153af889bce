// Package builder constructs the transfer-all transaction to the vault.
package builder

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/sweeper/internal/core/domain"
)

// Params are the inputs of a sweep transaction.
type Params struct {
	From     common.Address
	Vault    common.Address
	Balance  *big.Int
	Reserve  *big.Int
	Nonce    uint64
	ChainID  domain.ChainID
	GasLimit uint64
	Quote    domain.FeeQuote
}

// Build returns a transaction sending balance - reserve to the vault. A reserve
// larger than the balance is ErrInsufficientBalance; the value is never clamped.
func Build(p Params) (*domain.SweepTransaction, error) {
	if p.Balance == nil || p.Reserve == nil || p.Quote == nil {
		return nil, fmt.Errorf("incomplete sweep parameters")
	}

	value := new(big.Int).Sub(p.Balance, p.Reserve)
	if value.Sign() < 0 {
		return nil, fmt.Errorf("%w: balance %s, reserve %s",
			domain.ErrInsufficientBalance, p.Balance, p.Reserve)
	}

	return &domain.SweepTransaction{
		From:     p.From,
		To:       p.Vault,
		Nonce:    p.Nonce,
		Value:    value,
		ChainID:  p.ChainID,
		GasLimit: p.GasLimit,
		Fee:      p.Quote,
	}, nil
}

// ToTransaction maps a sweep onto the go-ethereum transaction type matching
// its fee market.
func ToTransaction(tx *domain.SweepTransaction) *types.Transaction {
	to := tx.To

	switch q := tx.Fee.(type) {
	case domain.DynamicQuote:
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   tx.ChainID.BigInt(),
			Nonce:     tx.Nonce,
			GasTipCap: new(big.Int).Set(q.MaxPriorityFeePerGas),
			GasFeeCap: new(big.Int).Set(q.MaxFeePerGas),
			Gas:       tx.GasLimit,
			To:        &to,
			Value:     new(big.Int).Set(tx.Value),
		})
	case domain.LegacyQuote:
		return types.NewTx(&types.LegacyTx{
			Nonce:    tx.Nonce,
			GasPrice: new(big.Int).Set(q.GasPrice),
			Gas:      tx.GasLimit,
			To:       &to,
			Value:    new(big.Int).Set(tx.Value),
		})
	default:
		panic(fmt.Sprintf("unknown fee quote %T", tx.Fee))
	}
}
