package dispatch

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/chain/evm"
	"github.com/vietddude/sweeper/internal/infra/relay"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type mockChain struct {
	LatestFunc  func(ctx context.Context) (uint64, error)
	ReceiptFunc func(ctx context.Context, hash string) (*domain.Receipt, error)
	SendFunc    func(ctx context.Context, raw []byte) (string, error)
	sends       int
}

func (m *mockChain) GetLatestBlock(ctx context.Context) (uint64, error) {
	return m.LatestFunc(ctx)
}

func (m *mockChain) GetTransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error) {
	return m.ReceiptFunc(ctx, hash)
}

func (m *mockChain) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	m.sends++
	return m.SendFunc(ctx, raw)
}

type mockRelay struct {
	SendFunc func(txHash string, maxBlock uint64) error
	sends    int
	maxBlock uint64
}

func (m *mockRelay) BlockWindow() uint64 { return 5 }

func (m *mockRelay) SendPrivateTransaction(
	ctx context.Context,
	txHash string,
	raw []byte,
	maxBlock uint64,
	reader relay.ChainReader,
) (*relay.PendingTransaction, error) {
	m.sends++
	m.maxBlock = maxBlock
	if m.SendFunc != nil {
		if err := m.SendFunc(txHash, maxBlock); err != nil {
			return nil, err
		}
	}
	return relay.NewPendingTransaction(txHash, maxBlock, reader, time.Millisecond), nil
}

func sweepTx() *domain.SweepTransaction {
	return &domain.SweepTransaction{
		From:     common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		To:       common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		Nonce:    0,
		Value:    big.NewInt(1000),
		ChainID:  domain.ChainIDSepolia,
		GasLimit: 50000,
		Fee:      domain.LegacyQuote{GasPrice: big.NewInt(20_000_000_000)},
	}
}

func newSigner(t *testing.T) *evm.Signer {
	s, err := evm.NewSigner(testKey)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	return s
}

func TestDispatch_PublicBroadcast(t *testing.T) {
	chain := &mockChain{
		SendFunc: func(ctx context.Context, raw []byte) (string, error) { return "", nil },
	}
	rel := &mockRelay{}

	d := NewDispatcher(newSigner(t), chain, rel)
	out := d.Dispatch(context.Background(), sweepTx(), false)

	if out.Kind != domain.OutcomeSubmitted {
		t.Fatalf("expected submitted, got %s", out)
	}
	if out.TxHash == "" {
		t.Error("expected tx hash")
	}
	if chain.sends != 1 || rel.sends != 0 {
		t.Errorf("expected exactly one public send, got public=%d relay=%d", chain.sends, rel.sends)
	}
}

func TestDispatch_PublicBroadcastFailure(t *testing.T) {
	chain := &mockChain{
		SendFunc: func(ctx context.Context, raw []byte) (string, error) {
			return "", errors.New("nonce too low")
		},
	}

	d := NewDispatcher(newSigner(t), chain, nil)
	out := d.Dispatch(context.Background(), sweepTx(), false)

	if out.Kind != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out)
	}
	if !errors.Is(out.Reason, domain.ErrBroadcastFailure) {
		t.Errorf("expected ErrBroadcastFailure, got %v", out.Reason)
	}
}

func TestDispatch_RelayIncluded(t *testing.T) {
	receipts := 0
	chain := &mockChain{
		LatestFunc: func(ctx context.Context) (uint64, error) { return 100, nil },
		ReceiptFunc: func(ctx context.Context, hash string) (*domain.Receipt, error) {
			receipts++
			if receipts < 2 {
				return nil, nil
			}
			return &domain.Receipt{TxHash: hash, BlockNumber: 101}, nil
		},
		SendFunc: func(ctx context.Context, raw []byte) (string, error) {
			t.Error("public broadcast must not be used in relay mode")
			return "", nil
		},
	}
	rel := &mockRelay{}

	d := NewDispatcher(newSigner(t), chain, rel)
	out := d.Dispatch(context.Background(), sweepTx(), true)

	if out.Kind != domain.OutcomeIncluded {
		t.Fatalf("expected included, got %s", out)
	}
	if rel.sends != 1 || chain.sends != 0 {
		t.Errorf("expected exactly one relay send, got relay=%d public=%d", rel.sends, chain.sends)
	}
	if rel.maxBlock != 105 {
		t.Errorf("expected window up to block 105, got %d", rel.maxBlock)
	}
}

func TestDispatch_RelayDropped(t *testing.T) {
	height := uint64(100)
	chain := &mockChain{
		LatestFunc: func(ctx context.Context) (uint64, error) {
			h := height
			height += 2
			return h, nil
		},
		ReceiptFunc: func(ctx context.Context, hash string) (*domain.Receipt, error) { return nil, nil },
	}

	d := NewDispatcher(newSigner(t), chain, &mockRelay{})
	out := d.Dispatch(context.Background(), sweepTx(), true)

	if out.Kind != domain.OutcomeDropped {
		t.Fatalf("expected dropped, got %s", out)
	}
}

func TestDispatch_RelaySubmitError(t *testing.T) {
	chain := &mockChain{
		LatestFunc: func(ctx context.Context) (uint64, error) { return 100, nil },
	}
	rel := &mockRelay{
		SendFunc: func(txHash string, maxBlock uint64) error { return errors.New("relay unreachable") },
	}

	d := NewDispatcher(newSigner(t), chain, rel)
	out := d.Dispatch(context.Background(), sweepTx(), true)

	if out.Kind != domain.OutcomeFailed || !errors.Is(out.Reason, domain.ErrBroadcastFailure) {
		t.Fatalf("expected failed broadcast, got %s", out)
	}
}

func TestDispatch_RelayNotConfigured(t *testing.T) {
	d := NewDispatcher(newSigner(t), &mockChain{}, nil)
	out := d.Dispatch(context.Background(), sweepTx(), true)

	if out.Kind != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", out)
	}
}
