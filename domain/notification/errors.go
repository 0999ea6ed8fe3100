package notification

import "errors"

var (
	// ErrNotifierClosed indicates the notifier has been closed.
	ErrNotifierClosed = errors.New("notifier closed")

	// ErrDeliveryFailed indicates the event could not be delivered to any
	// endpoint.
	ErrDeliveryFailed = errors.New("notification delivery failed")

	// ErrEndpointRejected indicates the endpoint answered with a client
	// error. Not retryable.
	ErrEndpointRejected = errors.New("endpoint rejected event")

	// ErrInvalidEndpoint indicates a misconfigured endpoint.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
)
