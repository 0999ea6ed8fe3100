package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/dwellsense/dwellsense/domain/pattern"
	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for pipeline logging.

// RunID adds a batch run ID field.
func RunID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("run_id", id)
	}
}

// DeviceID adds a device ID field.
func DeviceID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("device_id", id)
	}
}

// Feature adds a feature name field.
func Feature(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("feature", name)
	}
}

// Vendor adds a vendor field.
func Vendor(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("vendor", name)
	}
}

// Model adds a model field.
func Model(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("model", name)
	}
}

// PatternType adds a pattern type field.
func PatternType(t pattern.Type) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("pattern_type", string(t))
	}
}

// SuggestionID adds a suggestion ID field.
func SuggestionID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("suggestion_id", id)
	}
}

// Status adds a suggestion status field.
func Status(s suggestion.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Count adds a count field with a custom key.
func Count(key string, n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, n)
	}
}

// Confidence adds a confidence field.
func Confidence(c float64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Float64("confidence", c)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
