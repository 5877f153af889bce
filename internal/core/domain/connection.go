package domain

// ConnectionState is the lifecycle state of the streaming connection.
type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionActive     ConnectionState = "active"
	ConnectionFaulted    ConnectionState = "faulted"
)

// connectionTransitions lists allowed next states. A connection never goes
// back to Connecting without passing through Faulted.
var connectionTransitions = map[ConnectionState][]ConnectionState{
	ConnectionConnecting: {ConnectionActive, ConnectionFaulted},
	ConnectionActive:     {ConnectionFaulted},
	ConnectionFaulted:    {ConnectionConnecting},
}

// CanTransition reports whether from -> to is a valid connection transition.
func (from ConnectionState) CanTransition(to ConnectionState) bool {
	for _, target := range connectionTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}
