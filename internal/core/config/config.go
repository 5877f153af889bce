package config

import (
	"time"

	"github.com/vietddude/sweeper/internal/core/domain"
	redisclient "github.com/vietddude/sweeper/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server     ServerConfig       `yaml:"server"`
	Chain      ChainConfig        `yaml:"chain"`
	Sweep      SweepConfig        `yaml:"sweep"`
	Relay      RelayConfig        `yaml:"relay"`
	Supervisor SupervisorConfig   `yaml:"supervisor"`
	Redis      redisclient.Config `yaml:"redis"`
	Logging    LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ChainConfig holds the network and its streaming endpoints.
type ChainConfig struct {
	ID        domain.ChainID `yaml:"id"`
	Endpoints EndpointList   `yaml:"endpoints"`
}

// SweepConfig holds deposit detection and sweep settings.
type SweepConfig struct {
	PrivateKey          string        `yaml:"private_key"`
	VaultAddress        string        `yaml:"vault_address"`
	MaxAttempts         int           `yaml:"max_attempts"`
	GasMultiplier       string        `yaml:"gas_multiplier"` // decimal, e.g. "2" or "1.25"
	GasLimit            uint64        `yaml:"gas_limit"`
	Confirmations       uint64        `yaml:"confirmations"`
	ResolveInterval     time.Duration `yaml:"resolve_interval"`
	ConfirmPollInterval time.Duration `yaml:"confirm_poll_interval"`
}

// RelayConfig holds private relay settings.
type RelayConfig struct {
	Enabled      bool                      `yaml:"enabled"`
	Endpoints    map[domain.ChainID]string `yaml:"endpoints"` // overrides per chain id
	BlockWindow  uint64                    `yaml:"block_window"`
	PollInterval time.Duration             `yaml:"poll_interval"`

	// SubmitAttempts above one retries relay transport errors.
	SubmitAttempts int `yaml:"submit_attempts"`
}

// SupervisorConfig holds connection supervision settings.
type SupervisorConfig struct {
	RotationDelay time.Duration `yaml:"rotation_delay"`
}
