// Package lifecycle drives suggestions through their status machine and
// keeps the audit log and the automation runtime in sync.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/dwellsense/dwellsense/domain/suggestion"
)

// machineContext carries the suggestion through the statechart.
type machineContext struct {
	Suggestion *suggestion.Suggestion
}

const machineID = "suggestion"

// State IDs mirror the domain statuses.
const (
	statePending  statekit.StateID = statekit.StateID(suggestion.StatusPending)
	stateApproved statekit.StateID = statekit.StateID(suggestion.StatusApproved)
	stateDeployed statekit.StateID = statekit.StateID(suggestion.StatusDeployed)
	stateRejected statekit.StateID = statekit.StateID(suggestion.StatusRejected)
	stateRemoved  statekit.StateID = statekit.StateID(suggestion.StatusRemoved)
)

// Events that move a suggestion between statuses.
const (
	eventApprove statekit.EventType = "APPROVE"
	eventReject  statekit.EventType = "REJECT"
	eventDeploy  statekit.EventType = "DEPLOY"
	eventRemove  statekit.EventType = "REMOVE"
)

// newSuggestionMachine builds the canonical suggestion statechart. Rejected
// and removed are terminal: a decided suggestion never comes back, a new one
// is generated instead.
func newSuggestionMachine() (*statekit.MachineConfig[*machineContext], error) {
	return statekit.NewMachine[*machineContext](machineID).
		WithInitial(statePending).
		WithContext(&machineContext{}).
		State(statePending).
			On(eventApprove).Target(stateApproved).
			On(eventReject).Target(stateRejected).
			Done().
		State(stateApproved).
			On(eventDeploy).Target(stateDeployed).
			Done().
		State(stateDeployed).
			On(eventRemove).Target(stateRemoved).
			Done().
		State(stateRejected).
			Final().
			Done().
		State(stateRemoved).
			Final().
			Done().
		Build()
}

// checker validates transitions against the statechart without mutating the
// stored suggestion.
type checker struct {
	machine *statekit.MachineConfig[*machineContext]
}

func newChecker() (*checker, error) {
	machine, err := newSuggestionMachine()
	if err != nil {
		return nil, fmt.Errorf("building suggestion machine: %w", err)
	}
	return &checker{machine: machine}, nil
}

// allowed reports whether firing the event from the given status reaches a
// new state.
func (c *checker) allowed(from suggestion.Status, event statekit.EventType) bool {
	interp := statekit.NewInterpreter(c.machine)
	interp.Start()
	defer interp.Stop()

	if err := interp.Restore(statekit.Snapshot[*machineContext]{
		MachineID:    machineID,
		CurrentState: statekit.StateID(from),
		Context:      &machineContext{},
		CreatedAt:    time.Now(),
	}); err != nil {
		return false
	}

	interp.Send(statekit.Event{Type: event})
	return interp.State().Value != statekit.StateID(from)
}
