package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vietddude/sweeper/internal/core/config"
	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/chain/evm"
	redisclient "github.com/vietddude/sweeper/internal/infra/redis"
	"github.com/vietddude/sweeper/internal/infra/relay"
	"github.com/vietddude/sweeper/internal/infra/rpc"
	"github.com/vietddude/sweeper/internal/sweeping"
	"github.com/vietddude/sweeper/internal/sweeping/dispatch"
	"github.com/vietddude/sweeper/internal/sweeping/emitter"
	"github.com/vietddude/sweeper/internal/watching/health"
	"github.com/vietddude/sweeper/internal/watching/supervisor"
	"github.com/vietddude/sweeper/internal/watching/watcher"
)

// Sweeper is the main application struct that wires the supervisor, the
// sweep pipeline and the health server.
type Sweeper struct {
	cfg          Config
	signer       *evm.Signer
	vault        domain.WatchedAddress
	multiplier   decimal.Decimal
	relayClient  *relay.Client
	emitter      emitter.Emitter
	supervisor   *supervisor.Supervisor
	healthMon    *health.Monitor
	healthServer *health.Server
	log          *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config holds the application configuration.
type Config struct {
	Port       int
	Chain      config.ChainConfig
	Sweep      config.SweepConfig
	Relay      config.RelayConfig
	Supervisor config.SupervisorConfig
	Redis      redisclient.Config

	// Dialer overrides how streaming connections are opened.
	Dialer supervisor.Dialer
}

// NewSweeper creates a new Sweeper with all dependencies initialized. Relay
// mode on a chain the relay does not serve fails here, before any
// connection is made.
func NewSweeper(cfg Config) (*Sweeper, error) {
	log := slog.Default()

	// 1. Startup checks
	if err := relay.CheckNetwork(cfg.Chain.ID, cfg.Relay.Enabled); err != nil {
		return nil, err
	}

	signer, err := evm.NewSigner(cfg.Sweep.PrivateKey)
	if err != nil {
		return nil, err
	}

	vaultAddr, ok := domain.ParseAddress(cfg.Sweep.VaultAddress)
	if !ok {
		return nil, fmt.Errorf("invalid vault address %q", cfg.Sweep.VaultAddress)
	}
	if domain.SameAddress(signer.Address().Hex(), cfg.Sweep.VaultAddress) {
		return nil, fmt.Errorf("vault address %s is the deposit address", vaultAddr.Hex())
	}

	multiplier, err := decimal.NewFromString(cfg.Sweep.GasMultiplier)
	if err != nil || !multiplier.IsPositive() {
		return nil, fmt.Errorf("invalid gas multiplier %q", cfg.Sweep.GasMultiplier)
	}

	rotator, err := rpc.NewEndpointRotator(cfg.Chain.Endpoints)
	if err != nil {
		return nil, err
	}

	s := &Sweeper{
		cfg:        cfg,
		signer:     signer,
		vault:      domain.NewWatchedAddress(vaultAddr),
		multiplier: multiplier,
		log:        log,
	}

	// 2. Private relay
	var relayProvider *rpc.HTTPProvider
	if cfg.Relay.Enabled {
		endpoint, err := relay.Endpoint(cfg.Chain.ID, cfg.Relay.Endpoints)
		if err != nil {
			return nil, err
		}
		relayProvider = rpc.NewHTTPProvider("relay", endpoint, relay.DefaultTimeout).
			WithRequestSigner(signer.FlashbotsHeader)
		s.relayClient = relay.NewClient(relayProvider, relay.Config{
			BlockWindow:  cfg.Relay.BlockWindow,
			PollInterval: cfg.Relay.PollInterval,
			Retry:        relay.RetryAttempts(cfg.Relay.SubmitAttempts),
		})
		log.Info("Private relay enabled", "chain", cfg.Chain.ID, "relay", endpoint)
	}

	// 3. Event emitters
	emitters := emitter.Multi{emitter.NewLogEmitter()}
	if cfg.Redis.URL != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, sweep events will only be logged", "error", err)
		} else {
			emitters = append(emitters, redisClient)
			log.Info("Publishing sweep events to Redis", "channel", redisClient.Channel())
		}
	}
	s.emitter = emitters

	// 4. Connection supervisor
	dial := cfg.Dialer
	if dial == nil {
		dial = dialWS
	}
	s.supervisor = supervisor.NewSupervisor(rotator, dial, s.newCycle, supervisor.Config{
		ChainID:       cfg.Chain.ID,
		RotationDelay: cfg.Supervisor.RotationDelay,
	})

	// 5. Health
	s.healthMon = health.NewMonitor(cfg.Chain.ID, s.supervisor)
	if relayProvider != nil {
		s.healthMon.AddProvider(relayProvider)
	}
	s.healthServer = health.NewServer(s.healthMon, cfg.Port)

	return s, nil
}

// newCycle builds the per-connection watcher and sweep pipeline.
func (s *Sweeper) newCycle(conn supervisor.Connection) (supervisor.Cycle, error) {
	name := "stream"
	if p, ok := conn.(interface{ GetName() string }); ok {
		name = p.GetName()
	}
	chain := evm.NewEVMAdapter(s.cfg.Chain.ID, newInstrumentedCaller(conn, s.cfg.Chain.ID, name))

	// a nil *relay.Client must not become a non-nil interface
	var privateRelay dispatch.PrivateRelay
	if s.relayClient != nil {
		privateRelay = s.relayClient
	}
	dispatcher := dispatch.NewDispatcher(s.signer, chain, privateRelay)

	sweeper := sweeping.NewSweeper(chain, dispatcher, s.emitter, sweeping.Config{
		Deposit:    s.signer.Address(),
		Vault:      s.vault.Address(),
		ChainID:    s.cfg.Chain.ID,
		GasLimit:   s.cfg.Sweep.GasLimit,
		Multiplier: s.multiplier,
		UseRelay:   s.cfg.Relay.Enabled,
	})

	return watcher.NewWatcher(chain, sweeper, watcher.Config{
		Watched:             domain.NewWatchedAddress(s.signer.Address()),
		ChainID:             s.cfg.Chain.ID,
		MaxAttempts:         s.cfg.Sweep.MaxAttempts,
		ResolveInterval:     s.cfg.Sweep.ResolveInterval,
		Confirmations:       s.cfg.Sweep.Confirmations,
		ConfirmPollInterval: s.cfg.Sweep.ConfirmPollInterval,
	}), nil
}

// Start starts the health server and the supervisor loop.
func (s *Sweeper) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.log.Info("Watching deposit address",
		"address", s.signer.Address().Hex(),
		"vault", s.vault.String(),
		"chain", s.cfg.Chain.ID,
		"endpoints", len(s.cfg.Chain.Endpoints),
		"relay", s.cfg.Relay.Enabled,
	)

	// Start Health Server
	go func() {
		if err := s.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Health server failed", "error", err)
		}
	}()

	// Start Supervisor
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.supervisor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("Supervisor stopped", "error", err)
		}
	}()

	return nil
}

// Supervisor exposes the connection supervisor, e.g. for Restart.
func (s *Sweeper) Supervisor() *supervisor.Supervisor {
	return s.supervisor
}

// Stop stops the supervisor, waits for in-flight work and closes resources.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.log.Info("Stopping Sweeper...")

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for supervisor to stop")
	}

	// Close emitters (Redis)
	if err := s.emitter.Close(); err != nil {
		s.log.Warn("Failed to close emitters", "error", err)
	}

	// Stop Health Server
	return s.healthServer.Stop(ctx)
}

func dialWS(ctx context.Context, endpoint string) (supervisor.Connection, error) {
	return rpc.DialWS(ctx, "stream", endpoint, nil)
}
