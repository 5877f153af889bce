// Package watcher turns the pending-transaction feed of one connection into
// confirmed deposits and hands them to the sweep pipeline.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "log/slog"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/sweeping/metrics"
)

// Chain is the query interface of the active connection.
type Chain interface {
	GetTransaction(ctx context.Context, hash string) (*domain.PendingTransaction, error)
	WaitForConfirmations(
		ctx context.Context,
		hash string,
		depth uint64,
		poll time.Duration,
	) (*domain.Receipt, error)
}

// Sweeper runs the sweep pipeline for a confirmed deposit.
type Sweeper interface {
	Sweep(ctx context.Context, deposit *domain.PendingDeposit) (*domain.SweepResult, error)
}

// Config holds the watcher settings.
type Config struct {
	Watched             domain.WatchedAddress
	ChainID             domain.ChainID
	MaxAttempts         int
	ResolveInterval     time.Duration
	Confirmations       uint64
	ConfirmPollInterval time.Duration
}

// Watcher processes the feed of a single connection. It is not reused across
// connections.
type Watcher struct {
	chain   Chain
	sweeper Sweeper
	config  Config
	faults  chan error
	log     logger.Logger
}

func NewWatcher(chain Chain, sweeper Sweeper, config Config) *Watcher {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.Confirmations < 1 {
		config.Confirmations = 1
	}
	return &Watcher{
		chain:   chain,
		sweeper: sweeper,
		config:  config,
		faults:  make(chan error, 1),
		log:     *logger.Default(),
	}
}

// Run handles every hash from feed in its own goroutine until the first
// connection fault, which it returns. A closed feed is a fault too. In-flight
// work is cancelled and awaited before Run returns.
func (w *Watcher) Run(ctx context.Context, feed <-chan string) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-w.faults:
			return err
		case hash, ok := <-feed:
			if !ok {
				return fmt.Errorf("%w: pending feed closed", domain.ErrConnectionFault)
			}
			metrics.PendingSeen.WithLabelValues(w.config.ChainID.String()).Inc()

			wg.Add(1)
			go func() {
				defer wg.Done()
				w.handle(ctx, hash)
			}()
		}
	}
}

func (w *Watcher) handle(ctx context.Context, hash string) {
	chain := w.config.ChainID.String()

	deposit, err := w.resolve(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrResolutionExhausted) {
			metrics.PendingResolved.WithLabelValues(chain, "exhausted").Inc()
			w.log.Debug("Pending transaction never resolved", "tx", hash, "attempts", w.config.MaxAttempts)
			return
		}
		w.fault(ctx, err)
		return
	}
	if deposit == nil {
		metrics.PendingResolved.WithLabelValues(chain, "unmatched").Inc()
		return
	}
	metrics.PendingResolved.WithLabelValues(chain, "matched").Inc()

	w.log.Info("Incoming deposit detected",
		"tx", deposit.TxHash,
		"from", deposit.From,
		"amount", deposit.Amount.String(),
		"confirmations", w.config.Confirmations,
	)

	receipt, err := w.chain.WaitForConfirmations(ctx, deposit.TxHash, w.config.Confirmations, w.config.ConfirmPollInterval)
	if err != nil {
		w.fault(ctx, fmt.Errorf("%w: wait for confirmations: %w", domain.ErrConnectionFault, err))
		return
	}
	if receipt.Status == domain.TxStatusFailed {
		w.log.Warn("Deposit reverted on chain, not sweeping", "tx", deposit.TxHash, "block", receipt.BlockNumber)
		return
	}
	metrics.DepositsConfirmed.WithLabelValues(chain).Inc()
	w.log.Info("Deposit confirmed", "tx", deposit.TxHash, "block", receipt.BlockNumber)

	if _, err := w.sweeper.Sweep(ctx, deposit); err != nil {
		if errors.Is(err, domain.ErrConnectionFault) {
			w.fault(ctx, err)
			return
		}
		// fee and balance problems abort this attempt only
		w.log.Debug("Sweep attempt ended without dispatch", "tx", deposit.TxHash, "error", err)
	}
}

// resolve fetches the transaction body, retrying while the node does not know
// it yet. It returns nil, nil for a transaction that is not a deposit to the
// watched address.
func (w *Watcher) resolve(ctx context.Context, hash string) (*domain.PendingDeposit, error) {
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		tx, err := w.chain.GetTransaction(ctx, hash)
		if err != nil {
			return nil, fmt.Errorf("%w: get transaction: %w", domain.ErrConnectionFault, err)
		}

		if tx != nil {
			if !w.config.Watched.Matches(tx.To) {
				return nil, nil
			}
			return &domain.PendingDeposit{
				TxHash:      hash,
				From:        tx.From,
				To:          tx.To,
				Amount:      tx.Value,
				Attempts:    attempt,
				MaxAttempts: w.config.MaxAttempts,
			}, nil
		}

		if attempt == w.config.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(w.config.ResolveInterval):
		}
	}

	return nil, domain.ErrResolutionExhausted
}

// fault reports the first error of this connection; later ones are dropped.
func (w *Watcher) fault(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	select {
	case w.faults <- err:
	default:
	}
}
