package kioku

import (
	"errors"
	"fmt"
)

// Common errors returned by the kioku library.
var (
	// ErrNotFound is returned when a catalog item or card is not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRating is returned when a rating value or name is invalid.
	ErrInvalidRating = errors.New("invalid rating")

	// ErrUnknownLevel is returned when seeding a level with no catalog items.
	ErrUnknownLevel = errors.New("no catalog items for level")

	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrSessionCompleted is returned when grading a session that has
	// already consumed its queue.
	ErrSessionCompleted = errors.New("session is completed")

	// ErrSessionNotLoaded is returned when grading a session before its
	// queue has been built.
	ErrSessionNotLoaded = errors.New("session has no loaded queue")

	// ErrDispatcherClosed is returned when submitting an effect after the
	// dispatcher has shut down.
	ErrDispatcherClosed = errors.New("effect dispatcher is closed")

	// ErrOffline is returned when a sync operation is attempted without a
	// configured backend.
	ErrOffline = errors.New("operation unavailable in offline mode")
)

// ValidationError is returned when configuration or parameter validation
// fails. Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// SyncError is returned when a backend sync operation fails.
// Extractable via errors.As(). Supports Unwrap().
type SyncError struct {
	Operation  string
	StatusCode int
	Err        error
}

func (e *SyncError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("sync: %s failed (status %d): %v", e.Operation, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("sync: %s failed: %v", e.Operation, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
