package domain

import (
	"fmt"
	"math/big"
)

// OutcomeKind is the result category of a dispatch.
type OutcomeKind string

const (
	OutcomeIncluded  OutcomeKind = "included"
	OutcomeDropped   OutcomeKind = "dropped"
	OutcomeSubmitted OutcomeKind = "submitted"
	OutcomeFailed    OutcomeKind = "failed"
	// OutcomeSkipped marks an attempt abandoned before dispatch.
	OutcomeSkipped   OutcomeKind = "skipped"
)

// Outcome reports what happened to a dispatched sweep transaction.
type Outcome struct {
	Kind   OutcomeKind
	TxHash string
	Reason error
}

func (o Outcome) String() string {
	if o.Kind == OutcomeFailed && o.Reason != nil {
		return fmt.Sprintf("%s: %v", o.Kind, o.Reason)
	}
	return string(o.Kind)
}

// RelayResolution is the final state of a private relay submission.
type RelayResolution int

const (
	RelayIncluded RelayResolution = iota
	RelayDropped
)

func (r RelayResolution) String() string {
	switch r {
	case RelayIncluded:
		return "included"
	case RelayDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// SweepResult is a finished sweep attempt that reached the dispatcher.
type SweepResult struct {
	AttemptID   string
	Transaction *SweepTransaction
	Reserve     *big.Int
	Outcome     Outcome
}
