// Package emitter publishes the result of every sweep attempt.
package emitter

import (
	"context"
	"errors"

	logger "log/slog"

	"github.com/vietddude/sweeper/internal/core/domain"
)

// Emitter defines the interface for publishing sweep events
type Emitter interface {
	// Emit sends a single event
	Emit(ctx context.Context, event *domain.SweepEvent) error

	// Close closes the emitter connection
	Close() error
}

// LogEmitter writes events to the structured log.
type LogEmitter struct {
	log logger.Logger
}

func NewLogEmitter() *LogEmitter {
	return &LogEmitter{log: *logger.Default()}
}

func (e *LogEmitter) Emit(ctx context.Context, event *domain.SweepEvent) error {
	attrs := []any{
		"attempt", event.AttemptID,
		"deposit", event.Deposit,
		"outcome", event.Outcome,
		"value", event.Value,
		"fee_reserve", event.FeeReserve,
		"market", event.Market,
	}
	if event.SweepTxHash != "" {
		attrs = append(attrs, "tx", event.SweepTxHash)
	}
	if event.Error != "" {
		attrs = append(attrs, "error", event.Error)
		e.log.Warn("Sweep event", attrs...)
		return nil
	}
	e.log.Info("Sweep event", attrs...)
	return nil
}

func (e *LogEmitter) Close() error { return nil }

// Multi fans an event out to several emitters. Every emitter is tried; the
// errors are joined.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, event *domain.SweepEvent) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, e := range m {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
