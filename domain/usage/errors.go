package usage

import "errors"

var (
	// ErrRecordNotFound indicates no record exists for the pair.
	ErrRecordNotFound = errors.New("usage record not found")

	// ErrInvalidRecord indicates a record missing device or feature.
	ErrInvalidRecord = errors.New("invalid usage record")
)
