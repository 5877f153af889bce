package control

import (
	"context"
	"time"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
	"github.com/vietddude/sweeper/internal/sweeping/metrics"
)

// instrumentedCaller records latency and errors for every query sent over
// the current connection.
type instrumentedCaller struct {
	inner    rpc.Caller
	chain    string
	provider string
}

func newInstrumentedCaller(inner rpc.Caller, chainID domain.ChainID, provider string) *instrumentedCaller {
	return &instrumentedCaller{inner: inner, chain: chainID.String(), provider: provider}
}

func (c *instrumentedCaller) Call(ctx context.Context, method string, params []any) (any, error) {
	start := time.Now()
	result, err := c.inner.Call(ctx, method, params)
	metrics.RPCLatency.WithLabelValues(c.chain, c.provider, method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(c.chain, c.provider, method).Inc()
	}
	return result, err
}
