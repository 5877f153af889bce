// Package rpc provides the JSON-RPC plumbing for talking to EVM nodes.
//
// The package is organized into sub-packages:
//
//   - provider/ - transports (WSProvider for streaming, HTTPProvider for
//     relays) and health monitoring
//   - routing/  - endpoint rotation and retry logic
//
// The common types are re-exported at the root level for convenience.
package rpc

import (
	"context"
	"time"

	"github.com/vietddude/sweeper/internal/infra/rpc/provider"
	"github.com/vietddude/sweeper/internal/infra/rpc/routing"
)

// Caller makes single JSON-RPC requests.
type Caller = provider.Caller

// Provider is the core interface for RPC endpoints.
type Provider = provider.Provider

// WSProvider is a JSON-RPC connection over websocket.
type WSProvider = provider.WSProvider

// WSConfig configures websocket behavior.
type WSConfig = provider.WSConfig

// HTTPProvider implements Provider for JSON-RPC over HTTP.
type HTTPProvider = provider.HTTPProvider

// HealthStatus represents the health state of a provider.
type HealthStatus = provider.HealthStatus

// EndpointRotator walks an endpoint list round-robin.
type EndpointRotator = routing.EndpointRotator

// RetryConfig defines retry behavior.
type RetryConfig = routing.RetryConfig

// ErrConnectionClosed is returned by calls made on a dead websocket.
var ErrConnectionClosed = provider.ErrConnectionClosed

// DefaultRetryConfig provides retry defaults for single-endpoint calls.
var DefaultRetryConfig = routing.DefaultRetryConfig

// CallWithRetry executes an RPC call with exponential backoff.
var CallWithRetry = routing.CallWithRetry

// DialWS opens a websocket JSON-RPC connection.
func DialWS(ctx context.Context, name, endpoint string, config *WSConfig) (*WSProvider, error) {
	return provider.DialWS(ctx, name, endpoint, config)
}

// NewHTTPProvider creates a new HTTP-based RPC provider.
func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// NewEndpointRotator creates a rotator over the given endpoints.
func NewEndpointRotator(endpoints []string) (*EndpointRotator, error) {
	return routing.NewEndpointRotator(endpoints)
}
