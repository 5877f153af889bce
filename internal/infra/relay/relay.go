// Package relay submits signed transactions to a private relay instead of the
// public mempool, and tracks them until they are included or expire.
package relay

import (
	"context"
	"fmt"
	"time"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
)

// Networks maps the chains the relay serves to their default endpoint.
var Networks = map[domain.ChainID]string{
	domain.ChainIDEthereum: "https://relay.flashbots.net",
	domain.ChainIDGoerli:   "https://relay-goerli.flashbots.net",
	domain.ChainIDSepolia:  "https://relay-sepolia.flashbots.net",
}

const (
	DefaultBlockWindow  = 5
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 30 * time.Second
)

// CheckNetwork fails with ErrUnsupportedRelayNetwork when the relay is enabled
// for a chain it does not serve.
func CheckNetwork(chainID domain.ChainID, enabled bool) error {
	if !enabled {
		return nil
	}
	if _, ok := Networks[chainID]; !ok {
		return fmt.Errorf("%w: chain %s", domain.ErrUnsupportedRelayNetwork, chainID)
	}
	return nil
}

// Endpoint returns the relay URL for chainID, preferring an override.
func Endpoint(chainID domain.ChainID, overrides map[domain.ChainID]string) (string, error) {
	if url, ok := overrides[chainID]; ok && url != "" {
		return url, nil
	}
	if url, ok := Networks[chainID]; ok {
		return url, nil
	}
	return "", fmt.Errorf("%w: chain %s", domain.ErrUnsupportedRelayNetwork, chainID)
}

// ChainReader is the part of the chain query interface used to track a
// private submission.
type ChainReader interface {
	GetLatestBlock(ctx context.Context) (uint64, error)
	GetTransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error)
}

// Config configures a relay client.
type Config struct {
	// BlockWindow is how many blocks past the current head the relay may try
	// to include the transaction.
	BlockWindow  uint64
	PollInterval time.Duration
	// Retry defaults to SingleAttempt: a transport error fails the sweep.
	Retry rpc.RetryConfig
}

// SingleAttempt sends a relay request exactly once.
var SingleAttempt = rpc.RetryConfig{MaxAttempts: 1}

// RetryAttempts returns a retry policy for up to attempts submissions.
func RetryAttempts(attempts int) rpc.RetryConfig {
	if attempts <= 1 {
		return SingleAttempt
	}
	cfg := rpc.DefaultRetryConfig
	cfg.MaxAttempts = attempts
	return cfg
}

// Client is a session with a private relay.
type Client struct {
	caller rpc.Caller
	config Config
	log    logger.Logger
}

// NewClient creates a relay session over caller, which must sign requests
// (see evm.Signer.FlashbotsHeader).
func NewClient(caller rpc.Caller, config Config) *Client {
	if config.BlockWindow == 0 {
		config.BlockWindow = DefaultBlockWindow
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.Retry.MaxAttempts < 1 {
		config.Retry = SingleAttempt
	}
	return &Client{
		caller: caller,
		config: config,
		log:    *logger.Default(),
	}
}

// BlockWindow returns the configured validity window.
func (c *Client) BlockWindow() uint64 {
	return c.config.BlockWindow
}

// SendPrivateTransaction submits a signed transaction valid until maxBlock.
// It is sent once unless Config.Retry allows more attempts.
func (c *Client) SendPrivateTransaction(
	ctx context.Context,
	txHash string,
	raw []byte,
	maxBlock uint64,
	reader ChainReader,
) (*PendingTransaction, error) {
	params := []any{map[string]any{
		"tx":             hexutil.Encode(raw),
		"maxBlockNumber": hexutil.EncodeUint64(maxBlock),
	}}

	result, err := rpc.CallWithRetry(ctx, c.caller, "eth_sendPrivateTransaction", params, c.config.Retry)
	if err != nil {
		return nil, fmt.Errorf("eth_sendPrivateTransaction failed: %w", err)
	}

	if relayHash, ok := result.(string); ok && relayHash != "" && relayHash != txHash {
		c.log.Warn("relay returned unexpected hash", "tx", txHash, "relay_hash", relayHash)
	}

	return NewPendingTransaction(txHash, maxBlock, reader, c.config.PollInterval), nil
}

// PendingTransaction is a private submission awaiting resolution.
type PendingTransaction struct {
	TxHash   string
	MaxBlock uint64

	reader ChainReader
	poll   time.Duration
}

// NewPendingTransaction tracks txHash through reader until maxBlock passes.
func NewPendingTransaction(txHash string, maxBlock uint64, reader ChainReader, poll time.Duration) *PendingTransaction {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &PendingTransaction{
		TxHash:   txHash,
		MaxBlock: maxBlock,
		reader:   reader,
		poll:     poll,
	}
}

// Wait blocks until the transaction is mined (RelayIncluded) or the chain
// passes MaxBlock without it (RelayDropped).
func (p *PendingTransaction) Wait(ctx context.Context) (domain.RelayResolution, error) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for {
		receipt, err := p.reader.GetTransactionReceipt(ctx, p.TxHash)
		if err != nil {
			return 0, err
		}
		if receipt != nil {
			return domain.RelayIncluded, nil
		}

		height, err := p.reader.GetLatestBlock(ctx)
		if err != nil {
			return 0, err
		}
		if height > p.MaxBlock {
			return domain.RelayDropped, nil
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
		}
	}
}
