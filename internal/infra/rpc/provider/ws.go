package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned by calls made after the websocket went away.
var ErrConnectionClosed = errors.New("websocket connection closed")

// WSConfig configures websocket provider behavior.
type WSConfig struct {
	// HandshakeTimeout bounds the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is extended on every message and pong.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// NotificationBuffer is the channel size per subscription.
	NotificationBuffer int
}

// DefaultWSConfig returns default websocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout:   10 * time.Second,
		PingInterval:       30 * time.Second,
		ReadTimeout:        90 * time.Second,
		WriteTimeout:       10 * time.Second,
		NotificationBuffer: 4096,
	}
}

// withDefaults replaces non-positive settings with their defaults.
func (c WSConfig) withDefaults() WSConfig {
	d := DefaultWSConfig()
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.PingInterval <= 0 {
		c.PingInterval = d.PingInterval
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.NotificationBuffer <= 0 {
		c.NotificationBuffer = d.NotificationBuffer
	}
	return c
}

// WSProvider speaks JSON-RPC over a single websocket. It serves both
// request/response calls and eth_subscribe notification streams. It does not
// reconnect: once the socket fails, Done is closed and Err reports why.
type WSProvider struct {
	name     string
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	requestID atomic.Uint64

	pending   map[uint64]*pendingCall
	pendingMu sync.Mutex

	subs       map[string]chan json.RawMessage
	subsClosed bool
	subsMu     sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	err       error
	errMu     sync.RWMutex
	wg        sync.WaitGroup

	mu     sync.RWMutex
	health HealthStatus

	Monitor *ProviderMonitor
}

type pendingCall struct {
	ch chan wsResponse
	// onResult runs on the read loop before the response is delivered.
	onResult func(result json.RawMessage)
}

// DialWS connects to a websocket JSON-RPC endpoint.
func DialWS(ctx context.Context, name, endpoint string, config *WSConfig) (*WSProvider, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = config.withDefaults()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	p := &WSProvider{
		name:     name,
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		pending:  make(map[uint64]*pendingCall),
		subs:     make(map[string]chan json.RawMessage),
		done:     make(chan struct{}),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}

	conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	})

	p.wg.Add(1)
	go p.readLoop()

	if cfg.PingInterval > 0 {
		p.wg.Add(1)
		go p.pingLoop()
	}

	return p, nil
}

// Call makes a single JSON-RPC request over the socket.
func (p *WSProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	raw, err := p.call(ctx, method, params, nil)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return result, nil
}

func (p *WSProvider) call(
	ctx context.Context,
	method string,
	params []any,
	onResult func(json.RawMessage),
) (json.RawMessage, error) {
	select {
	case <-p.done:
		return nil, p.closedError()
	default:
	}

	start := time.Now()
	if params == nil {
		params = []any{}
	}

	reqID := p.requestID.Add(1)
	pc := &pendingCall{ch: make(chan wsResponse, 1), onResult: onResult}

	p.pendingMu.Lock()
	p.pending[reqID] = pc
	p.pendingMu.Unlock()

	defer func() {
		p.pendingMu.Lock()
		delete(p.pending, reqID)
		p.pendingMu.Unlock()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  method,
		Params:  params,
	}

	p.writeMu.Lock()
	p.conn.SetWriteDeadline(time.Now().Add(p.config.WriteTimeout))
	err := p.conn.WriteJSON(req)
	p.writeMu.Unlock()
	if err != nil {
		p.recordFailure()
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp wsResponse
	select {
	case resp = <-pc.ch:
	case <-p.done:
		p.recordFailure()
		return nil, p.closedError()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if resp.Error != nil {
		p.recordFailure()
		if p.Monitor.DetectThrottlePattern(resp.Error.Message) {
			p.Monitor.RecordThrottle()
		}
		return nil, fmt.Errorf("rpc error: %w", resp.Error)
	}

	p.recordSuccess(time.Since(start))
	return resp.Result, nil
}

// Subscribe issues eth_subscribe and returns the notification stream. The
// channel is closed when the connection ends.
func (p *WSProvider) Subscribe(ctx context.Context, params ...any) (<-chan json.RawMessage, error) {
	ch := make(chan json.RawMessage, p.config.NotificationBuffer)

	// Register inside the read loop so notifications that follow the
	// subscription response immediately are not lost.
	register := func(result json.RawMessage) {
		var subID string
		if err := json.Unmarshal(result, &subID); err != nil || subID == "" {
			return
		}
		p.subsMu.Lock()
		defer p.subsMu.Unlock()
		if p.subsClosed {
			close(ch)
			return
		}
		p.subs[subID] = ch
	}

	raw, err := p.call(ctx, "eth_subscribe", params, register)
	if err != nil {
		return nil, fmt.Errorf("eth_subscribe failed: %w", err)
	}

	var subID string
	if err := json.Unmarshal(raw, &subID); err != nil || subID == "" {
		return nil, fmt.Errorf("invalid subscription id: %s", string(raw))
	}

	return ch, nil
}

// SubscribePendingTransactions streams hashes of transactions entering the
// node's pending pool.
func (p *WSProvider) SubscribePendingTransactions(ctx context.Context) (<-chan string, error) {
	raw, err := p.Subscribe(ctx, "newPendingTransactions")
	if err != nil {
		return nil, err
	}

	out := make(chan string, p.config.NotificationBuffer)
	go func() {
		defer close(out)
		for msg := range raw {
			var hash string
			if err := json.Unmarshal(msg, &hash); err != nil {
				continue
			}
			select {
			case out <- hash:
			case <-p.done:
				return
			}
		}
	}()

	return out, nil
}

// Done is closed once the connection has failed or been closed.
func (p *WSProvider) Done() <-chan struct{} {
	return p.done
}

// Err reports why the connection ended. It is nil while the connection is up.
func (p *WSProvider) Err() error {
	p.errMu.RLock()
	defer p.errMu.RUnlock()
	return p.err
}

// GetName returns the provider's name.
func (p *WSProvider) GetName() string {
	return p.name
}

// Endpoint returns the websocket URL.
func (p *WSProvider) Endpoint() string {
	return p.endpoint
}

// GetHealth returns the provider's health status.
func (p *WSProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	return h
}

// Close terminates the connection.
func (p *WSProvider) Close() error {
	p.writeMu.Lock()
	p.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	p.writeMu.Unlock()

	p.shutdown(ErrConnectionClosed)
	p.wg.Wait()
	return nil
}

func (p *WSProvider) shutdown(reason error) {
	p.closeOnce.Do(func() {
		p.errMu.Lock()
		p.err = reason
		p.errMu.Unlock()

		close(p.done)
		p.conn.Close()

		p.mu.Lock()
		p.health.Available = false
		p.health.LastFailureAt = time.Now()
		p.mu.Unlock()
	})
}

func (p *WSProvider) closedError() error {
	if err := p.Err(); err != nil && !errors.Is(err, ErrConnectionClosed) {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return ErrConnectionClosed
}

// readLoop reads messages and dispatches responses and notifications. It is
// the only writer to subscription channels and closes them on exit.
func (p *WSProvider) readLoop() {
	defer p.wg.Done()
	defer p.closeSubscriptions()

	for {
		_, message, err := p.conn.ReadMessage()
		if err != nil {
			p.shutdown(classifyReadError(err))
			return
		}
		p.conn.SetReadDeadline(time.Now().Add(p.config.ReadTimeout))
		p.handleMessage(message)
	}
}

func (p *WSProvider) closeSubscriptions() {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	for id, ch := range p.subs {
		close(ch)
		delete(p.subs, id)
	}
	p.subsClosed = true
}

// classifyReadError separates a remote close (which carries a code) from a
// transport error.
func classifyReadError(err error) error {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return fmt.Errorf("closed by remote (code %d): %w", closeErr.Code, err)
	}
	return fmt.Errorf("transport error: %w", err)
}

func (p *WSProvider) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	if msg.Method == "eth_subscription" && msg.Params != nil {
		p.handleNotification(msg.Params)
		return
	}

	if msg.ID == nil {
		return
	}

	p.pendingMu.Lock()
	pc, ok := p.pending[*msg.ID]
	p.pendingMu.Unlock()
	if !ok {
		return
	}

	if msg.Error == nil && pc.onResult != nil {
		pc.onResult(msg.Result)
	}

	select {
	case pc.ch <- wsResponse{Result: msg.Result, Error: msg.Error}:
	default:
	}
}

func (p *WSProvider) handleNotification(params *wsNotificationParams) {
	p.subsMu.Lock()
	ch, ok := p.subs[params.Subscription]
	p.subsMu.Unlock()
	if !ok {
		return
	}

	// Block until the consumer catches up; the buffer absorbs bursts.
	select {
	case ch <- params.Result:
	case <-p.done:
	}
}

// pingLoop sends periodic ping frames to keep connection alive.
func (p *WSProvider) pingLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.writeMu.Lock()
			err := p.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(p.config.WriteTimeout),
			)
			p.writeMu.Unlock()
			if err != nil {
				p.shutdown(fmt.Errorf("ping failed: %w", err))
				return
			}
		}
	}
}

func (p *WSProvider) recordSuccess(latency time.Duration) {
	p.Monitor.RecordRequest(latency)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.LastSuccessAt = time.Now()
	p.health.Latency = p.Monitor.GetAverageLatency()
	p.health.ErrorRate = errorRate(p.Monitor.GetStats())
}

func (p *WSProvider) recordFailure() {
	p.Monitor.RecordFailure()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = errorRate(p.Monitor.GetStats())
}

// WebSocket message types

type wsRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type wsResponse struct {
	Result json.RawMessage
	Error  *RPCError
}

type wsMessage struct {
	JSONRPC string                `json:"jsonrpc"`
	ID      *uint64               `json:"id"`
	Method  string                `json:"method"`
	Result  json.RawMessage       `json:"result"`
	Error   *RPCError             `json:"error"`
	Params  *wsNotificationParams `json:"params"`
}

type wsNotificationParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}
