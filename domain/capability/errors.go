package capability

import "errors"

var (
	// ErrParseFailure indicates a vendor descriptor lacks the minimum
	// required fields or is structurally malformed. The model is skipped
	// and logged; nothing is stored.
	ErrParseFailure = errors.New("capability descriptor parse failure")

	// ErrDefinitionNotFound indicates no definition exists for a key.
	// Expected result: the caller falls back to external research.
	ErrDefinitionNotFound = errors.New("capability definition not found")

	// ErrInvalidDefinition indicates a definition missing its key.
	ErrInvalidDefinition = errors.New("invalid capability definition")
)
