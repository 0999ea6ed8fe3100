// Package automation provides the interfaces to the external automation
// runtime and text generator.
package automation

import (
	"context"
	"encoding/json"
)

// Existing is an automation already deployed in the runtime, used to avoid
// suggesting duplicates.
type Existing struct {
	// ExternalRef is the runtime's identifier.
	ExternalRef string `json:"external_ref"`

	// Alias is the runtime's human-readable name.
	Alias string `json:"alias,omitempty"`

	// DedupKey is the suggestion dedup key recorded at deploy time, when
	// the runtime echoes it back.
	DedupKey string `json:"dedup_key,omitempty"`
}

// Runtime deploys and rolls back automations in the external home-automation
// system. Calls are synchronous and must be safe to retry: the runtime
// treats a repeated deploy of the same payload, and a repeated remove of the
// same reference, as idempotent.
type Runtime interface {
	// Deploy installs the payload and returns the external reference.
	Deploy(ctx context.Context, payload json.RawMessage) (string, error)

	// Remove rolls back a deployed automation by reference.
	Remove(ctx context.Context, externalRef string) error

	// ListExisting returns the automations currently deployed.
	ListExisting(ctx context.Context) ([]Existing, error)
}
