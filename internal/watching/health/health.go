// Package health provides system health monitoring and status reporting.
package health

import (
	"github.com/vietddude/sweeper/internal/core/domain"
	"github.com/vietddude/sweeper/internal/infra/rpc"
)

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// StatusForState maps a connection state to a health status.
func StatusForState(state domain.ConnectionState) SystemStatus {
	switch state {
	case domain.ConnectionActive:
		return StatusHealthy
	case domain.ConnectionConnecting:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// ConnectionHealth describes the streaming connection.
type ConnectionHealth struct {
	ChainID       string                 `json:"chain_id"`
	Status        SystemStatus           `json:"status"`
	State         domain.ConnectionState `json:"state"`
	Endpoint      string                 `json:"endpoint"`
	RotationIndex int                    `json:"rotation_index"`
	Rotations     uint64                 `json:"rotations"`
	CycleID       string                 `json:"cycle_id,omitempty"`
}

// HealthReport contains the full system health report.
type HealthReport struct {
	SystemStatus SystemStatus                `json:"system_status"`
	Connection   ConnectionHealth            `json:"connection"`
	Providers    map[string]rpc.HealthStatus `json:"providers,omitempty"`
}
