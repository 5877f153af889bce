package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
)

type mockReader struct {
	LatestFunc  func(ctx context.Context) (uint64, error)
	ReceiptFunc func(ctx context.Context, hash string) (*domain.Receipt, error)
}

func (m *mockReader) GetLatestBlock(ctx context.Context) (uint64, error) {
	return m.LatestFunc(ctx)
}

func (m *mockReader) GetTransactionReceipt(ctx context.Context, hash string) (*domain.Receipt, error) {
	return m.ReceiptFunc(ctx, hash)
}

func TestCheckNetwork(t *testing.T) {
	tests := []struct {
		chain   domain.ChainID
		enabled bool
		wantErr bool
	}{
		{domain.ChainIDEthereum, true, false},
		{domain.ChainIDGoerli, true, false},
		{domain.ChainIDSepolia, true, false},
		{domain.ChainID(137), true, true},
		{domain.ChainID(137), false, false},
	}

	for _, tt := range tests {
		err := CheckNetwork(tt.chain, tt.enabled)
		if tt.wantErr != (err != nil) {
			t.Errorf("CheckNetwork(%s, %v) = %v", tt.chain, tt.enabled, err)
		}
		if err != nil && !errors.Is(err, domain.ErrUnsupportedRelayNetwork) {
			t.Errorf("expected ErrUnsupportedRelayNetwork, got %v", err)
		}
	}
}

func TestEndpoint(t *testing.T) {
	url, err := Endpoint(domain.ChainIDEthereum, nil)
	if err != nil || url != "https://relay.flashbots.net" {
		t.Errorf("unexpected default endpoint %q, %v", url, err)
	}

	overrides := map[domain.ChainID]string{domain.ChainIDEthereum: "https://custom.relay"}
	url, _ = Endpoint(domain.ChainIDEthereum, overrides)
	if url != "https://custom.relay" {
		t.Errorf("expected override, got %q", url)
	}

	if _, err := Endpoint(domain.ChainID(56), nil); !errors.Is(err, domain.ErrUnsupportedRelayNetwork) {
		t.Errorf("expected ErrUnsupportedRelayNetwork, got %v", err)
	}
}

func TestClient_SendPrivateTransaction(t *testing.T) {
	var gotMethod string
	var gotParams []map[string]string
	var gotHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Flashbots-Signature")

		var req struct {
			Method string              `json:"method"`
			Params []map[string]string `json:"params"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		gotMethod = req.Method
		gotParams = req.Params

		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": 1, "result": "0xsweep"})
	}))
	defer server.Close()

	caller := rpc.NewHTTPProvider("relay", server.URL, time.Second).
		WithRequestSigner(func(body []byte) (map[string]string, error) {
			return map[string]string{"X-Flashbots-Signature": "0xaddr:0xsig"}, nil
		})

	client := NewClient(caller, Config{})
	pending, err := client.SendPrivateTransaction(context.Background(), "0xsweep", []byte{0xde, 0xad}, 105, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotMethod != "eth_sendPrivateTransaction" {
		t.Errorf("unexpected method %s", gotMethod)
	}
	if len(gotParams) != 1 || gotParams[0]["tx"] != "0xdead" || gotParams[0]["maxBlockNumber"] != "0x69" {
		t.Errorf("unexpected params %v", gotParams)
	}
	if gotHeader != "0xaddr:0xsig" {
		t.Errorf("expected signature header, got %q", gotHeader)
	}
	if pending.TxHash != "0xsweep" || pending.MaxBlock != 105 {
		t.Errorf("unexpected pending %+v", pending)
	}
}

func TestClient_SendPrivateTransaction_RelayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"error":   map[string]any{"code": -32602, "message": "invalid transaction"},
		})
	}))
	defer server.Close()

	client := NewClient(rpc.NewHTTPProvider("relay", server.URL, time.Second), Config{})
	if _, err := client.SendPrivateTransaction(context.Background(), "0x1", []byte{0x01}, 10, nil); err == nil {
		t.Fatal("expected error")
	}
}

type countingCaller struct {
	calls    int
	CallFunc func(call int) (any, error)
}

func (c *countingCaller) Call(ctx context.Context, method string, params []any) (any, error) {
	c.calls++
	return c.CallFunc(c.calls)
}

func TestClient_SendPrivateTransaction_SingleAttemptByDefault(t *testing.T) {
	caller := &countingCaller{CallFunc: func(int) (any, error) {
		return nil, errors.New("connection reset by peer")
	}}

	client := NewClient(caller, Config{})
	if _, err := client.SendPrivateTransaction(context.Background(), "0x1", []byte{0x01}, 10, nil); err == nil {
		t.Fatal("expected error")
	}
	if caller.calls != 1 {
		t.Errorf("expected a single submission, got %d", caller.calls)
	}
}

func TestClient_SendPrivateTransaction_RetryOptIn(t *testing.T) {
	caller := &countingCaller{CallFunc: func(call int) (any, error) {
		if call == 1 {
			return nil, errors.New("connection reset by peer")
		}
		return "0x1", nil
	}}

	retry := RetryAttempts(3)
	retry.InitialDelay = time.Millisecond
	client := NewClient(caller, Config{Retry: retry})
	if _, err := client.SendPrivateTransaction(context.Background(), "0x1", []byte{0x01}, 10, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if caller.calls != 2 {
		t.Errorf("expected 2 submissions, got %d", caller.calls)
	}
}

func TestRetryAttempts(t *testing.T) {
	if got := RetryAttempts(0).MaxAttempts; got != 1 {
		t.Errorf("expected 1 attempt, got %d", got)
	}
	if got := RetryAttempts(4).MaxAttempts; got != 4 {
		t.Errorf("expected 4 attempts, got %d", got)
	}
}

func TestPendingTransaction_WaitIncluded(t *testing.T) {
	calls := 0
	reader := &mockReader{
		LatestFunc: func(ctx context.Context) (uint64, error) { return 101, nil },
		ReceiptFunc: func(ctx context.Context, hash string) (*domain.Receipt, error) {
			calls++
			if calls < 3 {
				return nil, nil
			}
			return &domain.Receipt{TxHash: hash, BlockNumber: 102}, nil
		},
	}

	p := &PendingTransaction{TxHash: "0x1", MaxBlock: 105, reader: reader, poll: time.Millisecond}
	res, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != domain.RelayIncluded {
		t.Errorf("expected included, got %s", res)
	}
}

func TestPendingTransaction_WaitDropped(t *testing.T) {
	height := uint64(103)
	reader := &mockReader{
		LatestFunc: func(ctx context.Context) (uint64, error) {
			height++
			return height, nil
		},
		ReceiptFunc: func(ctx context.Context, hash string) (*domain.Receipt, error) { return nil, nil },
	}

	p := &PendingTransaction{TxHash: "0x1", MaxBlock: 105, reader: reader, poll: time.Millisecond}
	res, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != domain.RelayDropped {
		t.Errorf("expected dropped, got %s", res)
	}
	if height != 106 {
		t.Errorf("expected drop once head passed 105, head %d", height)
	}
}

func TestPendingTransaction_WaitQueryError(t *testing.T) {
	reader := &mockReader{
		LatestFunc: func(ctx context.Context) (uint64, error) { return 0, nil },
		ReceiptFunc: func(ctx context.Context, hash string) (*domain.Receipt, error) {
			return nil, errors.New("transport error")
		},
	}

	p := &PendingTransaction{TxHash: "0x1", MaxBlock: 105, reader: reader, poll: time.Millisecond}
	if _, err := p.Wait(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
