// Package dispatch sends a built sweep either to the private relay or to the
// public mempool, never both.
package dispatch

import (
	"context"
	"fmt"
	"math/big"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/relay"
	"github.com/vietddude/sweeper/internal/sweeping/builder"
)

// TxSigner signs transactions with the deposit key.
type TxSigner interface {
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, []byte, error)
}

// Chain is the query interface used for broadcast and relay tracking.
type Chain interface {
	relay.ChainReader
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
}

// PrivateRelay accepts signed transactions bound to a block window.
type PrivateRelay interface {
	BlockWindow() uint64
	SendPrivateTransaction(
		ctx context.Context,
		txHash string,
		raw []byte,
		maxBlock uint64,
		reader relay.ChainReader,
	) (*relay.PendingTransaction, error)
}

// Dispatcher signs and sends sweep transactions.
type Dispatcher struct {
	signer TxSigner
	chain  Chain
	relay  PrivateRelay
	log    logger.Logger
}

// NewDispatcher creates a dispatcher. relay may be nil when private relay
// mode is disabled.
func NewDispatcher(signer TxSigner, chain Chain, relay PrivateRelay) *Dispatcher {
	return &Dispatcher{
		signer: signer,
		chain:  chain,
		relay:  relay,
		log:    *logger.Default(),
	}
}

// Dispatch signs tx and takes exactly one path. With useRelay it submits to
// the relay for the next BlockWindow blocks and waits for Included or
// Dropped; otherwise it broadcasts publicly and returns Submitted on
// acceptance. Every error is reported as a Failed outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, tx *domain.SweepTransaction, useRelay bool) domain.Outcome {
	signed, raw, err := d.signer.SignTx(builder.ToTransaction(tx), tx.ChainID.BigInt())
	if err != nil {
		return failed("", err)
	}
	hash := signed.Hash().Hex()

	if useRelay {
		return d.sendPrivate(ctx, hash, raw)
	}
	return d.broadcast(ctx, hash, raw)
}

func (d *Dispatcher) sendPrivate(ctx context.Context, hash string, raw []byte) domain.Outcome {
	if d.relay == nil {
		return failed(hash, fmt.Errorf("private relay not configured"))
	}

	height, err := d.chain.GetLatestBlock(ctx)
	if err != nil {
		return failed(hash, err)
	}
	maxBlock := height + d.relay.BlockWindow()

	pending, err := d.relay.SendPrivateTransaction(ctx, hash, raw, maxBlock, d.chain)
	if err != nil {
		return failed(hash, err)
	}
	d.log.Info("Sweep submitted to private relay", "tx", hash, "max_block", maxBlock)

	resolution, err := pending.Wait(ctx)
	if err != nil {
		return failed(hash, err)
	}

	switch resolution {
	case domain.RelayIncluded:
		return domain.Outcome{Kind: domain.OutcomeIncluded, TxHash: hash}
	default:
		return domain.Outcome{Kind: domain.OutcomeDropped, TxHash: hash}
	}
}

func (d *Dispatcher) broadcast(ctx context.Context, hash string, raw []byte) domain.Outcome {
	accepted, err := d.chain.SendRawTransaction(ctx, raw)
	if err != nil {
		return failed(hash, err)
	}
	if accepted != "" && accepted != hash {
		d.log.Warn("node reported different tx hash", "tx", hash, "node_hash", accepted)
	}
	return domain.Outcome{Kind: domain.OutcomeSubmitted, TxHash: hash}
}

func failed(hash string, err error) domain.Outcome {
	return domain.Outcome{
		Kind:   domain.OutcomeFailed,
		TxHash: hash,
		Reason: fmt.Errorf("%w: %w", domain.ErrBroadcastFailure, err),
	}
}
