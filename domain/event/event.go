// Package event provides the immutable device event types consumed by the
// analysis pipeline. Events are produced by external systems and are
// read-only here.
package event

import (
	"time"
)

// Event is a single recorded state change of a device attribute.
type Event struct {
	// DeviceID identifies the device instance.
	DeviceID string `json:"device_id"`

	// Timestamp is when the change occurred, in UTC.
	Timestamp time.Time `json:"timestamp"`

	// Attribute is the name of the changed attribute.
	Attribute string `json:"attribute"`

	// Value is the recorded value, serialized as text.
	Value string `json:"value"`

	// Manual marks changes that look user-triggered rather than
	// automation-triggered.
	Manual bool `json:"manual"`
}

// HourOfDay returns the event's fractional hour of day (0.0 to <24.0).
func (e Event) HourOfDay() float64 {
	h, m, s := e.Timestamp.UTC().Clock()
	return float64(h) + float64(m)/60 + float64(s)/3600
}

// Weekday returns the event's day of week in UTC.
func (e Event) Weekday() time.Weekday {
	return e.Timestamp.UTC().Weekday()
}

// WindowDays is the size of the rolling analysis window.
const WindowDays = 30

// WindowBounds returns the rolling window ending at the given instant.
func WindowBounds(now time.Time) (from, to time.Time) {
	to = now.UTC()
	from = to.AddDate(0, 0, -WindowDays)
	return from, to
}

// ByDevice groups events by device ID, preserving order.
func ByDevice(events []Event) map[string][]Event {
	grouped := make(map[string][]Event)
	for _, e := range events {
		grouped[e.DeviceID] = append(grouped[e.DeviceID], e)
	}
	return grouped
}
