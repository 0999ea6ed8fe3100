package event

import "errors"

var (
	// ErrSourceUnavailable indicates the event source cannot be reached.
	// This is fatal for a run: no partial writes may happen without the
	// shared event window.
	ErrSourceUnavailable = errors.New("event source unavailable")

	// ErrInvalidWindow indicates a window query with from >= to.
	ErrInvalidWindow = errors.New("invalid event window")
)
