package memory

import (
	"context"
	"sync"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// AuditLog is an in-memory, append-only implementation of
// suggestion.AuditLog. Entries are never removed.
type AuditLog struct {
	mu      sync.RWMutex
	entries []suggestion.Transition
}

// NewAuditLog creates a new in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Append records a transition.
func (l *AuditLog) Append(ctx context.Context, tr suggestion.Transition) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, tr)
	return nil
}

// History returns a suggestion's transitions in append order.
func (l *AuditLog) History(ctx context.Context, suggestionID string) ([]suggestion.Transition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var history []suggestion.Transition
	for _, tr := range l.entries {
		if tr.SuggestionID == suggestionID {
			history = append(history, tr)
		}
	}
	return history, nil
}

var _ suggestion.AuditLog = (*AuditLog)(nil)
