package domain

import "time"

// SweepEvent is emitted for every finished sweep attempt.
type SweepEvent struct {
	AttemptID   string      `json:"attempt_id"`
	ChainID     ChainID     `json:"chain_id"`
	Deposit     string      `json:"deposit_tx"`
	From        string      `json:"from"`
	Vault       string      `json:"vault"`
	Value       string      `json:"value"`
	FeeReserve  string      `json:"fee_reserve"`
	Market      MarketType  `json:"market"`
	Outcome     OutcomeKind `json:"outcome"`
	SweepTxHash string      `json:"sweep_tx,omitempty"`
	Error       string      `json:"error,omitempty"`
	EmittedAt   time.Time   `json:"emitted_at"`
}
