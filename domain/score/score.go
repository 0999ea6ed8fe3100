// Package score provides the derived utilization views over feature usage.
package score

import "time"

// Granularity is the aggregation level of a utilization value.
type Granularity string

const (
	GranularityDevice Granularity = "device"
	GranularityVendor Granularity = "vendor"
	GranularityGlobal Granularity = "global"
)

// Utilization is the ratio of configured to available features for one
// subject, as a percentage. Always within [0, 100].
type Utilization struct {
	// Subject is the device ID, vendor name, or "global".
	Subject string `json:"subject"`

	// Granularity is the aggregation level.
	Granularity Granularity `json:"granularity"`

	// Configured and Total are the underlying feature counts.
	Configured int `json:"configured"`
	Total      int `json:"total"`

	// Percent is (Configured / Total) * 100.
	Percent float64 `json:"percent"`
}

// Report is the non-persistent utilization view produced each run.
type Report struct {
	// Global is the whole-system utilization, the weighted average of the
	// per-device values.
	Global Utilization `json:"global"`

	// PerVendor and PerDevice break the score down.
	PerVendor []Utilization `json:"per_vendor"`
	PerDevice []Utilization `json:"per_device"`

	// Trend is the delta of the global percentage against the previous
	// run's snapshot. Nil when no prior snapshot exists: the trend is
	// unavailable, not zero.
	Trend *float64 `json:"trend,omitempty"`

	// GeneratedAt is when the report was computed.
	GeneratedAt time.Time `json:"generated_at"`
}
