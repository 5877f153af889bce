package routing

import (
	"errors"
	"sync"
)

// ErrNoEndpoints is returned when a rotator is built from an empty list.
var ErrNoEndpoints = errors.New("no endpoints configured")

// EndpointRotator walks a fixed endpoint list round-robin. The index only
// moves on Advance, so every caller sees the same current endpoint until a
// fault is reported.
type EndpointRotator struct {
	mu        sync.RWMutex
	endpoints []string
	index     int
}

// NewEndpointRotator creates a rotator starting at the first endpoint.
func NewEndpointRotator(endpoints []string) (*EndpointRotator, error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	list := make([]string, len(endpoints))
	copy(list, endpoints)
	return &EndpointRotator{endpoints: list}, nil
}

// Current returns the endpoint at the rotation index.
func (r *EndpointRotator) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.endpoints[r.index]
}

// Advance moves to the next endpoint, wrapping at the end of the list, and
// returns it.
func (r *EndpointRotator) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.index = (r.index + 1) % len(r.endpoints)
	return r.endpoints[r.index]
}

// Index returns the current rotation index.
func (r *EndpointRotator) Index() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index
}

// Len returns the number of endpoints.
func (r *EndpointRotator) Len() int {
	return len(r.endpoints)
}
