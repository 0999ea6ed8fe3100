package automation

import "errors"

var (
	// ErrDeployFailed indicates the runtime rejected a deploy call. The
	// suggestion stays approved and the call may be retried.
	ErrDeployFailed = errors.New("automation deploy failed")

	// ErrRemoveFailed indicates the runtime rejected a rollback call. The
	// suggestion stays deployed and the call may be retried.
	ErrRemoveFailed = errors.New("automation remove failed")

	// ErrGeneratorTimeout indicates the text generator did not answer in
	// time. The suggestion falls back to templated text.
	ErrGeneratorTimeout = errors.New("text generator timeout")
)
