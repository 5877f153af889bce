package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PendingTransaction is a transaction body resolved from a pending identifier.
type PendingTransaction struct {
	Hash  string
	From  string
	To    string // empty for contract creation
	Value *big.Int
	Nonce uint64
}

// PendingDeposit is a pending transaction matched against the watched address.
type PendingDeposit struct {
	TxHash      string
	From        string
	To          string
	Amount      *big.Int
	Attempts    int
	MaxAttempts int
}

// Receipt is the inclusion record of a mined transaction.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	Status      TxStatus
}

type TxStatus string

const (
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
)

// SweepTransaction is the outbound transfer-all transaction to the vault.
type SweepTransaction struct {
	From     common.Address
	To       common.Address
	Nonce    uint64
	Value    *big.Int
	ChainID  ChainID
	GasLimit uint64
	Fee      FeeQuote
}

// MaxCost returns value plus the full fee reserve.
func (t *SweepTransaction) MaxCost() *big.Int {
	reserve := new(big.Int).Mul(new(big.Int).SetUint64(t.GasLimit), t.Fee.PerGas())
	return reserve.Add(reserve, t.Value)
}
