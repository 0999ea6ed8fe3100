package pattern

// Type classifies patterns by the miner that produced them.
type Type string

const (
	// TypeTemporal marks a device acting at a consistent time of day.
	TypeTemporal Type = "temporal"

	// TypeCoOccurrence marks two devices repeatedly acting together.
	TypeCoOccurrence Type = "cooccurrence"

	// TypeAnomaly marks a highly regular manual action surfaced by the
	// regularity miner. The regular, non-anomalous behavior is the signal:
	// a habit the user performs by hand is an unmet automation need.
	TypeAnomaly Type = "anomaly"
)

// TemporalData captures the parameters of a temporal cluster.
type TemporalData struct {
	// Hour and Minute locate the cluster centroid.
	Hour   int `json:"hour"`
	Minute int `json:"minute"`

	// ClusterSize is the number of events in the cluster.
	ClusterSize int `json:"cluster_size"`

	// Spread is the centroid's spread in fractional hours.
	Spread float64 `json:"spread"`
}

// CoOccurrenceData captures a device pair acting together.
type CoOccurrenceData struct {
	// TriggerDevice acts first; PairedDevice follows within the window.
	TriggerDevice string `json:"trigger_device"`
	PairedDevice  string `json:"paired_device"`

	// WindowMinutes is the forward window the pair was counted in.
	WindowMinutes int `json:"window_minutes"`

	// JointCount and TriggerCount give the ratio reported as confidence.
	JointCount   int `json:"joint_count"`
	TriggerCount int `json:"trigger_count"`
}

// RegularityData captures a regular manual habit.
type RegularityData struct {
	// Hour is the hour of day the habit occurs in.
	Hour int `json:"hour"`

	// Weekdays are the days of week observed (0 = Sunday).
	Weekdays []int `json:"weekdays"`

	// InlierCount is the number of non-anomalous observations.
	InlierCount int `json:"inlier_count"`
}
