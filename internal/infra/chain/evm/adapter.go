package evm

import (
	"context"
	"fmt"
	"math/big"
	"time"

	logger "log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/chain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
)

// DefaultPriorityFee is the tip used when the node cannot suggest one (1.5 gwei).
var DefaultPriorityFee = big.NewInt(1_500_000_000)

// DefaultConfirmPollInterval is the receipt poll period when none is given.
const DefaultConfirmPollInterval = 2 * time.Second

var _ chain.Adapter = (*EVMAdapter)(nil)

type EVMAdapter struct {
	chainID domain.ChainID
	client  rpc.Caller
	log     logger.Logger
}

func NewEVMAdapter(chainID domain.ChainID, client rpc.Caller) *EVMAdapter {
	return &EVMAdapter{
		chainID: chainID,
		client:  client,
		log:     *logger.Default(),
	}
}

func (a *EVMAdapter) GetChainID() domain.ChainID {
	return a.chainID
}

func (a *EVMAdapter) GetLatestBlock(ctx context.Context) (uint64, error) {
	result, err := a.client.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}

	blockHex, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid block number response")
	}

	return parseHexString(blockHex)
}

func (a *EVMAdapter) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	result, err := a.client.Call(ctx, "eth_getBalance", []any{address.Hex(), "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance failed: %w", err)
	}

	balanceHex, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("invalid balance response")
	}

	return parseHexToBigInt(balanceHex)
}

// GetFeeData derives fee fields the way common client libraries do: the
// legacy gas price, the latest block's base fee, and when a base fee exists
// maxFeePerGas = 2*baseFee + priority.
func (a *EVMAdapter) GetFeeData(ctx context.Context) (*domain.FeeData, error) {
	result, err := a.client.Call(ctx, "eth_gasPrice", nil)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice failed: %w", err)
	}

	fee := &domain.FeeData{}
	if priceHex, ok := result.(string); ok {
		if fee.GasPrice, err = parseHexToBigInt(priceHex); err != nil {
			return nil, err
		}
	}

	result, err = a.client.Call(ctx, "eth_getBlockByNumber", []any{"latest", false})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber failed: %w", err)
	}

	block, ok := result.(map[string]any)
	if !ok {
		return fee, nil
	}

	baseHex := getString(block["baseFeePerGas"])
	if baseHex == "" {
		return fee, nil
	}

	base, err := parseHexToBigInt(baseHex)
	if err != nil {
		return nil, err
	}
	fee.LastBaseFeePerGas = base

	priority := new(big.Int).Set(DefaultPriorityFee)
	if result, err := a.client.Call(ctx, "eth_maxPriorityFeePerGas", nil); err == nil {
		if tip, err := parseHexToBigInt(getString(result)); err == nil {
			priority = tip
		}
	} else {
		a.log.Debug("priority fee suggestion unavailable, using default", "error", err)
	}

	fee.MaxPriorityFeePerGas = priority
	fee.MaxFeePerGas = new(big.Int).Add(new(big.Int).Mul(base, big.NewInt(2)), priority)

	return fee, nil
}

func (a *EVMAdapter) GetTransaction(ctx context.Context, hash string) (*domain.PendingTransaction, error) {
	result, err := a.client.Call(ctx, "eth_getTransactionByHash", []any{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionByHash failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid transaction format")
	}

	return a.parseTransaction(raw), nil
}

func (a *EVMAdapter) parseTransaction(raw map[string]any) *domain.PendingTransaction {
	nonce, _ := parseHexString(getString(raw["nonce"]))

	value, err := parseHexToBigInt(getString(raw["value"]))
	if err != nil {
		value = new(big.Int)
	}

	return &domain.PendingTransaction{
		Hash:  getString(raw["hash"]),
		From:  getString(raw["from"]),
		To:    getString(raw["to"]),
		Value: value,
		Nonce: nonce,
	}
}

func (a *EVMAdapter) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	result, err := a.client.Call(ctx, "eth_getTransactionCount", []any{address.Hex(), "pending"})
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount failed: %w", err)
	}

	nonceHex, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid nonce response")
	}

	return parseHexString(nonceHex)
}

func (a *EVMAdapter) GetTransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error) {
	result, err := a.client.Call(ctx, "eth_getTransactionReceipt", []any{hash})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid receipt format")
	}

	blockNumber, err := parseHexString(getString(raw["blockNumber"]))
	if err != nil {
		// Some nodes return pending receipts without a block
		return nil, nil
	}

	status := domain.TxStatusSuccess
	if getString(raw["status"]) == "0x0" {
		status = domain.TxStatusFailed
	}

	return &domain.Receipt{
		TxHash:      hash,
		BlockNumber: blockNumber,
		Status:      status,
	}, nil
}

// WaitForConfirmations polls until the transaction is mined and the chain head
// is at least depth-1 blocks past its block. A depth below one is treated as one,
// a non-positive poll as DefaultConfirmPollInterval.
func (a *EVMAdapter) WaitForConfirmations(
	ctx context.Context,
	hash string,
	depth uint64,
	poll time.Duration,
) (*domain.Receipt, error) {
	if depth < 1 {
		depth = 1
	}
	if poll <= 0 {
		poll = DefaultConfirmPollInterval
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		receipt, err := a.GetTransactionReceipt(ctx, hash)
		if err != nil {
			return nil, err
		}

		if receipt != nil {
			latest, err := a.GetLatestBlock(ctx)
			if err != nil {
				return nil, err
			}
			if latest+1 >= receipt.BlockNumber+depth {
				return receipt, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (a *EVMAdapter) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	result, err := a.client.Call(ctx, "eth_sendRawTransaction", []any{hexutil.Encode(raw)})
	if err != nil {
		return "", fmt.Errorf("eth_sendRawTransaction failed: %w", err)
	}

	hash, ok := result.(string)
	if !ok {
		return "", fmt.Errorf("invalid transaction hash response")
	}
	return hash, nil
}

// parseHexToBigInt decodes a JSON-RPC quantity; the 0x prefix is required.
func parseHexToBigInt(hexStr string) (*big.Int, error) {
	n, err := hexutil.DecodeBig(hexStr)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", hexStr, err)
	}
	return n, nil
}

func parseHexString(hexStr string) (uint64, error) {
	n, err := hexutil.DecodeUint64(hexStr)
	if err != nil {
		return 0, fmt.Errorf("invalid hex %q: %w", hexStr, err)
	}
	return n, nil
}

func getString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
