// Package sweeping moves a confirmed deposit's balance to the vault: fee
// estimate, transaction build, then dispatch.
package sweeping

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/sweeping/builder"
	"github.com/vietddude/sweeper/internal/sweeping/emitter"
	"github.com/vietddude/sweeper/internal/sweeping/fee"
	"github.com/vietddude/sweeper/internal/sweeping/metrics"
)

// Chain is the query interface a sweep reads balance, fees and nonce from.
type Chain interface {
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)
	GetFeeData(ctx context.Context) (*domain.FeeData, error)
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
}

// Dispatcher sends a built sweep transaction.
type Dispatcher interface {
	Dispatch(ctx context.Context, tx *domain.SweepTransaction, useRelay bool) domain.Outcome
}

// Config holds the read-only sweep settings.
type Config struct {
	Deposit    common.Address
	Vault      common.Address
	ChainID    domain.ChainID
	GasLimit   uint64
	Multiplier decimal.Decimal
	UseRelay   bool
}

// Sweeper runs the sweep pipeline. It holds no per-deposit state, so
// concurrent calls are safe; each re-reads balance and nonce.
type Sweeper struct {
	chain      Chain
	dispatcher Dispatcher
	emitter    emitter.Emitter
	config     Config
	log        logger.Logger
}

func NewSweeper(chain Chain, dispatcher Dispatcher, em emitter.Emitter, config Config) *Sweeper {
	if em == nil {
		em = emitter.NewLogEmitter()
	}
	return &Sweeper{
		chain:      chain,
		dispatcher: dispatcher,
		emitter:    em,
		config:     config,
		log:        *logger.Default(),
	}
}

// Sweep sends the whole balance minus the fee reserve to the vault.
//
// Query failures are wrapped in ErrConnectionFault and must be escalated by
// the caller. ErrFeeUnavailable and ErrInsufficientBalance abort this attempt
// only. A dispatch that fails is not an error here; it is reported in the
// result's Outcome.
func (s *Sweeper) Sweep(ctx context.Context, deposit *domain.PendingDeposit) (*domain.SweepResult, error) {
	attemptID := uuid.NewString()
	chain := s.config.ChainID.String()
	log := s.log.With("attempt", attemptID, "deposit", deposit.TxHash)

	balance, err := s.chain.GetBalance(ctx, s.config.Deposit)
	if err != nil {
		return nil, fmt.Errorf("%w: get balance: %w", domain.ErrConnectionFault, err)
	}

	feeData, err := s.chain.GetFeeData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: get fee data: %w", domain.ErrConnectionFault, err)
	}

	quote, reserve, err := fee.Estimate(feeData, s.config.Multiplier, s.config.GasLimit)
	if err != nil {
		s.abandon(ctx, log, attemptID, deposit, balance, nil, nil, err)
		return nil, err
	}

	// Fetched right before building so repeated sweeps never reuse a nonce.
	nonce, err := s.chain.GetTransactionCount(ctx, s.config.Deposit)
	if err != nil {
		return nil, fmt.Errorf("%w: get nonce: %w", domain.ErrConnectionFault, err)
	}

	tx, err := builder.Build(builder.Params{
		From:     s.config.Deposit,
		Vault:    s.config.Vault,
		Balance:  balance,
		Reserve:  reserve,
		Nonce:    nonce,
		ChainID:  s.config.ChainID,
		GasLimit: s.config.GasLimit,
		Quote:    quote,
	})
	if err != nil {
		s.abandon(ctx, log, attemptID, deposit, balance, reserve, quote, err)
		return nil, err
	}

	outcome := s.dispatcher.Dispatch(ctx, tx, s.config.UseRelay)
	metrics.SweepsTotal.WithLabelValues(chain, string(outcome.Kind)).Inc()

	if outcome.Kind == domain.OutcomeFailed {
		log.Error("Sweep dispatch failed", "error", outcome.Reason)
	} else {
		metrics.SweptWei.WithLabelValues(chain).Add(weiFloat(tx.Value))
		log.Info("Swept deposit to vault",
			"amount_eth", fee.FormatEther(tx.Value),
			"max_cost_eth", fee.FormatEther(tx.MaxCost()),
			"vault", s.config.Vault.Hex(),
			"tx", outcome.TxHash,
			"outcome", outcome.Kind,
			"market", quote.Market(),
		)
	}

	event := s.newEvent(attemptID, deposit, tx.Value, reserve, quote)
	event.Outcome = outcome.Kind
	event.SweepTxHash = outcome.TxHash
	if outcome.Reason != nil {
		event.Error = outcome.Reason.Error()
	}
	s.emit(ctx, log, event)

	return &domain.SweepResult{
		AttemptID:   attemptID,
		Transaction: tx,
		Reserve:     reserve,
		Outcome:     outcome,
	}, nil
}

// abandon records an attempt that stopped before dispatch.
func (s *Sweeper) abandon(
	ctx context.Context,
	log *logger.Logger,
	attemptID string,
	deposit *domain.PendingDeposit,
	balance, reserve *big.Int,
	quote domain.FeeQuote,
	reason error,
) {
	switch {
	case errors.Is(reason, domain.ErrInsufficientBalance):
		log.Warn("Balance does not cover fee reserve, skipping sweep",
			"balance_eth", fee.FormatEther(balance),
			"reserve_eth", fee.FormatEther(reserve),
		)
	default:
		log.Warn("Fee data unavailable, skipping sweep", "error", reason)
	}

	metrics.SweepsTotal.WithLabelValues(s.config.ChainID.String(), string(domain.OutcomeSkipped)).Inc()

	event := s.newEvent(attemptID, deposit, big.NewInt(0), reserve, quote)
	event.Outcome = domain.OutcomeSkipped
	event.Error = reason.Error()
	s.emit(ctx, log, event)
}

func (s *Sweeper) newEvent(
	attemptID string,
	deposit *domain.PendingDeposit,
	value, reserve *big.Int,
	quote domain.FeeQuote,
) *domain.SweepEvent {
	event := &domain.SweepEvent{
		AttemptID: attemptID,
		ChainID:   s.config.ChainID,
		Deposit:   deposit.TxHash,
		From:      s.config.Deposit.Hex(),
		Vault:     s.config.Vault.Hex(),
		Value:     value.String(),
		EmittedAt: time.Now().UTC(),
	}
	if reserve != nil {
		event.FeeReserve = reserve.String()
	}
	if quote != nil {
		event.Market = quote.Market()
	}
	return event
}

func (s *Sweeper) emit(ctx context.Context, log *logger.Logger, event *domain.SweepEvent) {
	if err := s.emitter.Emit(ctx, event); err != nil {
		log.Warn("Failed to emit sweep event", "error", err)
	}
}

func weiFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}
