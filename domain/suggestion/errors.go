package suggestion

import "errors"

var (
	// ErrSuggestionNotFound indicates the suggestion was not found.
	ErrSuggestionNotFound = errors.New("suggestion not found")

	// ErrSuggestionExists indicates a suggestion with this ID exists.
	ErrSuggestionExists = errors.New("suggestion already exists")

	// ErrInvalidSuggestion indicates a suggestion missing required fields.
	ErrInvalidSuggestion = errors.New("invalid suggestion")

	// ErrInvalidTransition indicates an illegal status transition.
	ErrInvalidTransition = errors.New("invalid suggestion status transition")

	// ErrMissingExternalRef indicates a deploy without an external
	// reference; deployed status requires one.
	ErrMissingExternalRef = errors.New("deployed suggestion requires external ref")

	// ErrDuplicatePending indicates a pending suggestion already covers
	// the dedup key.
	ErrDuplicatePending = errors.New("pending suggestion exists for dedup key")
)
