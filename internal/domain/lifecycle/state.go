package lifecycle

// State represents a questionnaire response state
type State string

const (
	StateCreated    State = "created"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAnalyzed   State = "analyzed"
	StateCanceled   State = "canceled"
)

var validStates = map[State]bool{
	StateCreated:    true,
	StateInProgress: true,
	StateCompleted:  true,
	StateAnalyzed:   true,
	StateCanceled:   true,
}

var terminalStates = map[State]bool{
	StateAnalyzed: true,
	StateCanceled: true,
}

// IsTerminal returns true if no further transitions are allowed from the state
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsValid returns true if the state is a valid response state
func (s State) IsValid() bool {
	return validStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}
