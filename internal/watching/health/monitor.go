package health

import (
	"net/url"
	"sync"

	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
)

// ConnectionSource exposes the supervisor's view of the connection.
type ConnectionSource interface {
	State() domain.ConnectionState
	Endpoint() string
	RotationIndex() int
	Rotations() uint64
	CycleID() string
}

// ProviderSource reports the health of an auxiliary endpoint such as the relay.
type ProviderSource interface {
	GetName() string
	GetHealth() rpc.HealthStatus
}

// Monitor aggregates health status from the supervisor and providers.
type Monitor struct {
	chainID    domain.ChainID
	connection ConnectionSource

	mu        sync.RWMutex
	providers []ProviderSource
}

// NewMonitor creates a new health monitor.
func NewMonitor(chainID domain.ChainID, connection ConnectionSource) *Monitor {
	return &Monitor{
		chainID:    chainID,
		connection: connection,
	}
}

// AddProvider includes a provider in the detailed report.
func (m *Monitor) AddProvider(p ProviderSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

// CheckHealth builds a report. Provider problems degrade the system status
// but never make it critical; only the streaming connection can.
func (m *Monitor) CheckHealth() HealthReport {
	state := m.connection.State()
	conn := ConnectionHealth{
		ChainID:       m.chainID.String(),
		Status:        StatusForState(state),
		State:         state,
		Endpoint:      redact(m.connection.Endpoint()),
		RotationIndex: m.connection.RotationIndex(),
		Rotations:     m.connection.Rotations(),
		CycleID:       m.connection.CycleID(),
	}

	report := HealthReport{
		SystemStatus: conn.Status,
		Connection:   conn,
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.providers) > 0 {
		report.Providers = make(map[string]rpc.HealthStatus, len(m.providers))
	}
	for _, p := range m.providers {
		h := p.GetHealth()
		report.Providers[p.GetName()] = h
		if !h.Available && report.SystemStatus == StatusHealthy {
			report.SystemStatus = StatusDegraded
		}
	}

	return report
}

// redact strips credentials and API keys carried in the endpoint path or query.
func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
