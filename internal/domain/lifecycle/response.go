package lifecycle

// responseBuilder holds the canonical questionnaire response transition
// table. Analyzed and canceled are terminal: no row exists for them, so
// every event fired from those states is a no-op.
var responseBuilder = NewBuilder().
	Permit(StateCreated, TriggerAnswerQuestion, StateInProgress).
	Permit(StateCreated, TriggerCancel, StateCanceled).
	Permit(StateInProgress, TriggerAnswerQuestion, StateInProgress).
	Permit(StateInProgress, TriggerFinish, StateCompleted).
	Permit(StateInProgress, TriggerCancel, StateCanceled).
	Permit(StateCompleted, TriggerAnalyze, StateAnalyzed).
	Permit(StateCompleted, TriggerCancel, StateCanceled)

// NewResponseMachine creates a response state machine positioned at the
// given persisted state.
func NewResponseMachine(current State) *StateMachine {
	return responseBuilder.Build(current)
}
