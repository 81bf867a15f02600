package lifecycle

import "fmt"

// StateMachine tracks a current state and validates transitions against
// a fixed transition table. Fire is a silent no-op for events that are
// not permitted in the current state: it returns false and leaves the
// state unchanged, never an error.
type StateMachine struct {
	current     State
	transitions map[State]map[Trigger]State
}

// Builder assembles a transition table for state machines.
type Builder struct {
	transitions map[State]map[Trigger]State
}

// NewBuilder creates a new state machine builder
func NewBuilder() *Builder {
	return &Builder{
		transitions: make(map[State]map[Trigger]State),
	}
}

// Permit allows trigger to move the machine from one state to another
func (b *Builder) Permit(from State, trigger Trigger, to State) *Builder {
	if !from.IsValid() {
		panic(fmt.Sprintf("invalid source state: %s", from))
	}
	if !to.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", to))
	}

	row, ok := b.transitions[from]
	if !ok {
		row = make(map[Trigger]State)
		b.transitions[from] = row
	}
	row[trigger] = to
	return b
}

// Build creates a machine positioned at the given initial state.
// The transition table is copied so built machines are independent.
func (b *Builder) Build(initial State) *StateMachine {
	if !initial.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initial))
	}

	table := make(map[State]map[Trigger]State, len(b.transitions))
	for from, row := range b.transitions {
		rowCopy := make(map[Trigger]State, len(row))
		for trigger, to := range row {
			rowCopy[trigger] = to
		}
		table[from] = rowCopy
	}

	return &StateMachine{
		current:     initial,
		transitions: table,
	}
}

// State returns the current state
func (m *StateMachine) State() State {
	return m.current
}

// CanFire returns true if the trigger is permitted in the current state
func (m *StateMachine) CanFire(trigger Trigger) bool {
	row, ok := m.transitions[m.current]
	if !ok {
		return false
	}
	_, ok = row[trigger]
	return ok
}

// Fire attempts the trigger and returns whether the transition happened.
// Callers that need to know whether anything changed must check the
// return value; an invalid event is not an error.
func (m *StateMachine) Fire(trigger Trigger) bool {
	row, ok := m.transitions[m.current]
	if !ok {
		return false
	}
	to, ok := row[trigger]
	if !ok {
		return false
	}
	m.current = to
	return true
}

// PermittedTriggers returns all triggers that can fire in the current state
func (m *StateMachine) PermittedTriggers() []Trigger {
	row, ok := m.transitions[m.current]
	if !ok {
		return nil
	}
	triggers := make([]Trigger, 0, len(row))
	for trigger := range row {
		triggers = append(triggers, trigger)
	}
	return triggers
}
