package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested client or entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks a raw stats report that cannot be iterated.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownStatsType is returned for a stats type outside the canonical set.
	ErrUnknownStatsType = errors.New("unknown stats type")
	// ErrUnknownCollector is returned when stats arrive for an unregistered collector.
	ErrUnknownCollector = errors.New("unknown collector")
	// ErrSenderClosed is returned by Send after the sender was closed.
	ErrSenderClosed = errors.New("sender closed")
	// ErrConfiguration marks a call that needs a sub-component which was not configured.
	ErrConfiguration = errors.New("configuration error")
	// ErrNoSender is returned by send attempts when no Sender is configured.
	ErrNoSender = fmt.Errorf("%w: no Sender configured", ErrConfiguration)
)

// TransportError reports a failed transmission of a sample batch.
type TransportError struct {
	Err        error
	StatusCode int
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
