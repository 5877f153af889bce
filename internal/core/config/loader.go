package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/sweeper/internal/core/domain"
)

const (
	DefaultGasLimit            = 50000
	DefaultResolveInterval     = time.Second
	DefaultConfirmPollInterval = 2 * time.Second
	DefaultRelayBlockWindow    = 5
	DefaultRelayPollInterval   = 2 * time.Second
	DefaultRotationDelay       = time.Second
)

// LoadEnv loads .env files into the process environment. Missing files are
// not an error.
func LoadEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sweep.GasLimit == 0 {
		cfg.Sweep.GasLimit = DefaultGasLimit
	}
	if cfg.Sweep.Confirmations == 0 {
		cfg.Sweep.Confirmations = 1
	}
	if cfg.Sweep.GasMultiplier == "" {
		cfg.Sweep.GasMultiplier = "1"
	}
	if cfg.Sweep.ResolveInterval == 0 {
		cfg.Sweep.ResolveInterval = DefaultResolveInterval
	}
	if cfg.Sweep.ConfirmPollInterval == 0 {
		cfg.Sweep.ConfirmPollInterval = DefaultConfirmPollInterval
	}
	if cfg.Relay.BlockWindow == 0 {
		cfg.Relay.BlockWindow = DefaultRelayBlockWindow
	}
	if cfg.Relay.PollInterval == 0 {
		cfg.Relay.PollInterval = DefaultRelayPollInterval
	}
	if cfg.Supervisor.RotationDelay == 0 {
		cfg.Supervisor.RotationDelay = DefaultRotationDelay
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "sweeper:events"
	}
}

// Validate checks required fields. The relay network check is separate,
// see relay.CheckNetwork.
func (c *AppConfig) Validate() error {
	if c.Chain.ID == 0 {
		return errors.New("chain.id is required")
	}
	if len(c.Chain.Endpoints) == 0 {
		return errors.New("chain.endpoints must list at least one endpoint")
	}
	if c.Sweep.PrivateKey == "" {
		return errors.New("sweep.private_key is required")
	}
	if _, ok := domain.ParseAddress(c.Sweep.VaultAddress); !ok {
		return fmt.Errorf("sweep.vault_address is not a valid address: %q", c.Sweep.VaultAddress)
	}
	if c.Sweep.MaxAttempts <= 0 {
		return fmt.Errorf("sweep.max_attempts must be positive, got %d", c.Sweep.MaxAttempts)
	}
	if _, err := c.Multiplier(); err != nil {
		return err
	}
	intervals := []struct {
		name  string
		value time.Duration
	}{
		{"sweep.resolve_interval", c.Sweep.ResolveInterval},
		{"sweep.confirm_poll_interval", c.Sweep.ConfirmPollInterval},
		{"relay.poll_interval", c.Relay.PollInterval},
		{"supervisor.rotation_delay", c.Supervisor.RotationDelay},
	}
	for _, iv := range intervals {
		if iv.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", iv.name, iv.value)
		}
	}
	return nil
}

// Multiplier returns the gas multiplier as an exact decimal.
func (c *AppConfig) Multiplier() (decimal.Decimal, error) {
	m, err := decimal.NewFromString(c.Sweep.GasMultiplier)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sweep.gas_multiplier: %w", err)
	}
	if !m.IsPositive() {
		return decimal.Zero, fmt.Errorf("sweep.gas_multiplier must be positive, got %s", m)
	}
	return m, nil
}
