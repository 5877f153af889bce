package provider

import (
	"testing"
	"time"
)

func TestMonitor_Accumulation(t *testing.T) {
	m := NewProviderMonitor()

	m.RecordRequest(100 * time.Millisecond)

	stats := m.GetStats()
	if stats.Requests != 1 {
		t.Errorf("Expected 1 request, got %d", stats.Requests)
	}

	for i := 0; i < 100; i++ {
		m.RecordRequest(50 * time.Millisecond)
	}

	stats = m.GetStats()
	if stats.Requests != 101 {
		t.Errorf("Expected 101 requests, got %d", stats.Requests)
	}
	if stats.AverageLatency != 50*time.Millisecond {
		t.Errorf("Expected window average 50ms, got %v", stats.AverageLatency)
	}
	if stats.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", stats.Status)
	}
}

func TestMonitor_DegradedOnErrors(t *testing.T) {
	m := NewProviderMonitor()

	for i := 0; i < 5; i++ {
		m.RecordRequest(time.Millisecond)
	}
	for i := 0; i < 5; i++ {
		m.RecordFailure()
	}

	if status := m.CheckProviderStatus(); status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", status)
	}
}

func TestMonitor_Throttle(t *testing.T) {
	m := NewProviderMonitor()

	if !m.DetectThrottlePattern("Error: Too Many Requests") {
		t.Error("expected throttle pattern to match")
	}
	if m.DetectThrottlePattern("nonce too low") {
		t.Error("expected no throttle pattern")
	}

	m.RecordThrottle()
	if status := m.CheckProviderStatus(); status != StatusThrottled {
		t.Errorf("Expected throttled, got %s", status)
	}
}
