package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/dwellsense/dwellsense/domain/automation"
	"github.com/dwellsense/dwellsense/domain/notification"
	"github.com/dwellsense/dwellsense/domain/suggestion"
	"github.com/dwellsense/dwellsense/infrastructure/logging"
)

// Manager executes lifecycle operations. Every status change is written to
// the append-only audit log; deploy and rollback additionally call the
// automation runtime, and only a confirmed runtime call moves the status.
type Manager struct {
	store    suggestion.Store
	audit    suggestion.AuditLog
	runtime  automation.Runtime
	notifier notification.Notifier
	checker  *checker
	now      func() time.Time
}

// Option configures the manager.
type Option func(*Manager)

// WithNotifier publishes deploy and rollback outcomes.
func WithNotifier(n notification.Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a lifecycle manager.
func NewManager(store suggestion.Store, audit suggestion.AuditLog, runtime automation.Runtime, opts ...Option) (*Manager, error) {
	chk, err := newChecker()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		store:   store,
		audit:   audit,
		runtime: runtime,
		checker: chk,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Approve records a user decision to deploy.
func (m *Manager) Approve(ctx context.Context, id, actor string) (*suggestion.Suggestion, error) {
	sug, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.checker.allowed(sug.Status, eventApprove) {
		return nil, fmt.Errorf("approving %s suggestion: %w", sug.Status, suggestion.ErrInvalidTransition)
	}

	from := sug.Status
	if err := sug.Approve(); err != nil {
		return nil, err
	}
	if err := m.store.Update(ctx, sug); err != nil {
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}
	m.record(ctx, sug.ID, from, sug.Status, actor, "")

	return sug, nil
}

// Reject records a user decision to dismiss. Terminal.
func (m *Manager) Reject(ctx context.Context, id, actor, reason string) (*suggestion.Suggestion, error) {
	sug, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.checker.allowed(sug.Status, eventReject) {
		return nil, fmt.Errorf("rejecting %s suggestion: %w", sug.Status, suggestion.ErrInvalidTransition)
	}

	from := sug.Status
	if err := sug.Reject(reason); err != nil {
		return nil, err
	}
	if err := m.store.Update(ctx, sug); err != nil {
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}
	m.record(ctx, sug.ID, from, sug.Status, actor, reason)

	return sug, nil
}

// Deploy installs an approved suggestion in the automation runtime. A failed
// runtime call leaves the suggestion approved so the user can retry.
func (m *Manager) Deploy(ctx context.Context, id, actor string) (*suggestion.Suggestion, error) {
	sug, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.checker.allowed(sug.Status, eventDeploy) {
		return nil, fmt.Errorf("deploying %s suggestion: %w", sug.Status, suggestion.ErrInvalidTransition)
	}

	externalRef, err := m.runtime.Deploy(ctx, sug.Payload)
	if err != nil {
		logging.Error().
			Add(logging.Component("lifecycle")).
			Add(logging.SuggestionID(sug.ID)).
			Add(logging.ErrorField(err)).
			Msg("runtime deploy failed, suggestion stays approved")
		m.notify(ctx, notification.EventDeployFailed, notification.DeployOutcome{
			SuggestionID: sug.ID,
			Error:        err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", automation.ErrDeployFailed, err)
	}

	from := sug.Status
	if err := sug.MarkDeployed(externalRef); err != nil {
		return nil, err
	}
	if err := m.store.Update(ctx, sug); err != nil {
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}
	m.record(ctx, sug.ID, from, sug.Status, actor, externalRef)
	m.notify(ctx, notification.EventSuggestionDeployed, notification.DeployOutcome{
		SuggestionID: sug.ID,
		ExternalRef:  externalRef,
	})

	logging.Info().
		Add(logging.Component("lifecycle")).
		Add(logging.SuggestionID(sug.ID)).
		Add(logging.Str("external_ref", externalRef)).
		Msg("suggestion deployed")

	return sug, nil
}

// Remove rolls a deployed suggestion back out of the runtime. A failed
// runtime call leaves the suggestion deployed.
func (m *Manager) Remove(ctx context.Context, id, actor string) (*suggestion.Suggestion, error) {
	sug, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !m.checker.allowed(sug.Status, eventRemove) {
		return nil, fmt.Errorf("removing %s suggestion: %w", sug.Status, suggestion.ErrInvalidTransition)
	}

	externalRef := sug.ExternalRef
	if err := m.runtime.Remove(ctx, externalRef); err != nil {
		logging.Error().
			Add(logging.Component("lifecycle")).
			Add(logging.SuggestionID(sug.ID)).
			Add(logging.ErrorField(err)).
			Msg("runtime remove failed, suggestion stays deployed")
		m.notify(ctx, notification.EventRemoveFailed, notification.DeployOutcome{
			SuggestionID: sug.ID,
			ExternalRef:  externalRef,
			Error:        err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", automation.ErrRemoveFailed, err)
	}

	from := sug.Status
	if err := sug.MarkRemoved(); err != nil {
		return nil, err
	}
	if err := m.store.Update(ctx, sug); err != nil {
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}
	m.record(ctx, sug.ID, from, sug.Status, actor, externalRef)
	m.notify(ctx, notification.EventSuggestionRemoved, notification.DeployOutcome{
		SuggestionID: sug.ID,
		ExternalRef:  externalRef,
	})

	return sug, nil
}

// History returns a suggestion's audit trail.
func (m *Manager) History(ctx context.Context, id string) ([]suggestion.Transition, error) {
	return m.audit.History(ctx, id)
}

// record appends an audit entry. The status change is already persisted; a
// failed append is logged loudly but does not undo the transition.
func (m *Manager) record(ctx context.Context, id string, from, to suggestion.Status, actor, note string) {
	err := m.audit.Append(ctx, suggestion.Transition{
		SuggestionID: id,
		From:         from,
		To:           to,
		Actor:        actor,
		At:           m.now().UTC(),
		Note:         note,
	})
	if err != nil {
		logging.Error().
			Add(logging.Component("lifecycle")).
			Add(logging.SuggestionID(id)).
			Add(logging.ErrorField(err)).
			Msg("audit append failed")
	}
}

func (m *Manager) notify(ctx context.Context, typ notification.EventType, payload any) {
	if m.notifier == nil {
		return
	}
	event, err := notification.NewEvent(typ, payload)
	if err != nil {
		return
	}
	if err := m.notifier.Notify(ctx, event); err != nil {
		logging.Warn().
			Add(logging.Component("lifecycle")).
			Add(logging.Str("event_type", string(typ))).
			Add(logging.ErrorField(err)).
			Msg("notification delivery failed")
	}
}
