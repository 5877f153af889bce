// Package supervisor owns the streaming connection. It runs one watch cycle
// at a time and, on any fault, rotates to the next endpoint and starts over.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
	"github.com/vietddude/sweeper/internal/sweeping/metrics"
)

// DefaultRotationDelay is the pause between a fault and the next connection
// attempt.
const DefaultRotationDelay = time.Second

// Connection is a live streaming connection that also answers queries.
type Connection interface {
	rpc.Caller
	SubscribePendingTransactions(ctx context.Context) (<-chan string, error)
	// Done is closed on transport error or remote close.
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Dialer opens a connection to endpoint.
type Dialer func(ctx context.Context, endpoint string) (Connection, error)

// Cycle consumes the feed of one connection until it faults.
type Cycle interface {
	Run(ctx context.Context, feed <-chan string) error
}

// CycleFactory builds a fresh watch cycle bound to conn.
type CycleFactory func(conn Connection) (Cycle, error)

// Config holds supervisor settings.
type Config struct {
	ChainID       domain.ChainID
	RotationDelay time.Duration
}

// Supervisor is the only owner of the connection state and the rotation
// index.
type Supervisor struct {
	rotator  *rpc.EndpointRotator
	dial     Dialer
	newCycle CycleFactory
	config   Config
	restart  chan string
	log      logger.Logger

	mu        sync.RWMutex
	state     domain.ConnectionState
	cycleID   string
	rotations uint64
}

func NewSupervisor(rotator *rpc.EndpointRotator, dial Dialer, newCycle CycleFactory, config Config) *Supervisor {
	if config.RotationDelay <= 0 {
		config.RotationDelay = DefaultRotationDelay
	}
	return &Supervisor{
		rotator:  rotator,
		dial:     dial,
		newCycle: newCycle,
		config:   config,
		restart:  make(chan string, 1),
		log:      *logger.Default(),
		state:    domain.ConnectionFaulted,
	}
}

// Run cycles through the endpoints until ctx is cancelled. It never gives up
// on unreachable endpoints.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		endpoint := s.rotator.Current()
		s.setState(domain.ConnectionConnecting)

		err := s.runCycle(ctx, endpoint)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.setState(domain.ConnectionFaulted)
		next := s.rotate()
		s.log.Warn("Connection faulted, rotating endpoint",
			"endpoint", endpoint,
			"next", next,
			"index", s.rotator.Index(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.RotationDelay):
		}
	}
}

// Restart ends the current watch cycle as if the connection had faulted.
func (s *Supervisor) Restart(reason string) {
	select {
	case s.restart <- reason:
	default:
	}
}

// State returns the current connection state.
func (s *Supervisor) State() domain.ConnectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Endpoint returns the endpoint of the current or next cycle.
func (s *Supervisor) Endpoint() string {
	return s.rotator.Current()
}

// RotationIndex returns the position in the endpoint list.
func (s *Supervisor) RotationIndex() int {
	return s.rotator.Index()
}

// Rotations returns how many times the supervisor has rotated.
func (s *Supervisor) Rotations() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rotations
}

// CycleID identifies the current watch cycle in logs.
func (s *Supervisor) CycleID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cycleID
}

// runCycle connects, subscribes and runs one cycle. It always returns an
// error describing why the cycle ended.
func (s *Supervisor) runCycle(ctx context.Context, endpoint string) error {
	cycleID := uuid.NewString()
	s.mu.Lock()
	s.cycleID = cycleID
	s.mu.Unlock()

	// drop restart requests aimed at a previous cycle
	select {
	case <-s.restart:
	default:
	}

	log := s.log.With("cycle", cycleID, "endpoint", endpoint)
	log.Info("Connecting to streaming endpoint")

	conn, err := s.dial(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: dial: %w", domain.ErrConnectionFault, err)
	}
	defer conn.Close()

	feed, err := conn.SubscribePendingTransactions(ctx)
	if err != nil {
		return fmt.Errorf("%w: subscribe: %w", domain.ErrConnectionFault, err)
	}

	cycle, err := s.newCycle(conn)
	if err != nil {
		return fmt.Errorf("build watch cycle: %w", err)
	}

	s.setState(domain.ConnectionActive)
	log.Info("Subscribed to pending transactions")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cycle.Run(gctx, feed)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-conn.Done():
			return fmt.Errorf("%w: %w", domain.ErrConnectionFault, conn.Err())
		case reason := <-s.restart:
			return fmt.Errorf("%w: restart requested: %s", domain.ErrConnectionFault, reason)
		}
	})

	err = g.Wait()
	if err == nil {
		err = errors.New("watch cycle ended")
	}
	return err
}

func (s *Supervisor) rotate() string {
	next := s.rotator.Advance()
	s.mu.Lock()
	s.rotations++
	s.mu.Unlock()
	metrics.Rotations.WithLabelValues(s.config.ChainID.String()).Inc()
	return next
}

func (s *Supervisor) setState(to domain.ConnectionState) {
	s.mu.Lock()
	from := s.state
	if !from.CanTransition(to) {
		s.log.Warn("Unexpected connection state transition", "from", from, "to", to)
	}
	s.state = to
	s.mu.Unlock()

	chain := s.config.ChainID.String()
	for _, st := range []domain.ConnectionState{
		domain.ConnectionConnecting,
		domain.ConnectionActive,
		domain.ConnectionFaulted,
	} {
		v := 0.0
		if st == to {
			v = 1
		}
		metrics.ConnectionState.WithLabelValues(chain, string(st)).Set(v)
	}
}
