package domain

import "errors"

var (
	// ErrFeeUnavailable means the node reported no usable price data.
	ErrFeeUnavailable = errors.New("fee data unavailable")

	// ErrInsufficientBalance means the fee reserve exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient balance for fee reserve")

	// ErrResolutionExhausted means a pending identifier never resolved within
	// the attempt budget. It is a miss, not a fault.
	ErrResolutionExhausted = errors.New("transaction resolution exhausted")

	// ErrConnectionFault is a transport or query failure on the active
	// connection. It ends the current watch cycle.
	ErrConnectionFault = errors.New("connection fault")

	// ErrUnsupportedRelayNetwork is fatal at startup.
	ErrUnsupportedRelayNetwork = errors.New("private relay does not support this network")

	// ErrBroadcastFailure covers signing, broadcast and relay submission errors.
	ErrBroadcastFailure = errors.New("broadcast failure")
)
