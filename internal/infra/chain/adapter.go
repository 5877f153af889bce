package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/sweeper/internal/core/domain"
)

// Adapter is the request/response query interface to a chain node. It is the
// boundary between the watcher and sweeper core and the RPC transport.
type Adapter interface {
	// GetLatestBlock returns the latest block number on the chain
	GetLatestBlock(ctx context.Context) (uint64, error)

	// GetBalance returns the latest balance of an address in base units
	GetBalance(ctx context.Context, address common.Address) (*big.Int, error)

	// GetFeeData returns the current legacy price and EIP-1559 fee fields
	GetFeeData(ctx context.Context) (*domain.FeeData, error)

	// GetTransaction resolves a transaction by hash. It returns nil, nil when
	// the node does not know the transaction yet.
	GetTransaction(ctx context.Context, hash string) (*domain.PendingTransaction, error)

	// GetTransactionCount returns the pending nonce of an address
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)

	// GetTransactionReceipt returns nil, nil while the transaction is unmined
	GetTransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error)

	// WaitForConfirmations blocks until the transaction has depth confirmations
	WaitForConfirmations(
		ctx context.Context,
		hash string,
		depth uint64,
		poll time.Duration,
	) (*domain.Receipt, error)

	// SendRawTransaction broadcasts a signed transaction to the public mempool
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)

	// GetChainID returns the chain identifier
	GetChainID() domain.ChainID
}
