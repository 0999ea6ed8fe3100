package suggestion

import "time"

// Source tells which generator produced a suggestion.
type Source string

const (
	// SourcePattern marks suggestions derived from mined patterns.
	SourcePattern Source = "pattern"

	// SourceFeature marks suggestions derived from unconfigured features.
	SourceFeature Source = "feature"
)

// Status tracks the suggestion lifecycle.
type Status string

const (
	StatusPending  Status = "pending"  // Awaiting user decision
	StatusApproved Status = "approved" // User approved, not yet deployed
	StatusDeployed Status = "deployed" // Live in the automation runtime
	StatusRejected Status = "rejected" // Dismissed by the user (terminal)
	StatusRemoved  Status = "removed"  // Rolled back after deployment
)

// Transition is one audit log entry. Entries are append-only and never
// physically deleted.
type Transition struct {
	// SuggestionID identifies the suggestion.
	SuggestionID string `json:"suggestion_id"`

	// From and To are the statuses around the transition.
	From Status `json:"from"`
	To   Status `json:"to"`

	// Actor is who or what caused the transition ("user", "lifecycle").
	Actor string `json:"actor"`

	// At is when the transition happened.
	At time.Time `json:"at"`

	// Note carries optional context, e.g. a rejection reason or the
	// external reference assigned on deploy.
	Note string `json:"note,omitempty"`
}

// PatternDedupKey builds the dedup key for a pattern-sourced suggestion.
func PatternDedupKey(fingerprint string) string {
	return "pattern:" + fingerprint
}

// FeatureDedupKey builds the dedup key for a feature-sourced suggestion.
func FeatureDedupKey(deviceID, feature string) string {
	return "feature:" + deviceID + ":" + feature
}
