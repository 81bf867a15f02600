package lifecycle

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerAnswerQuestion Trigger = "answer_question"
	TriggerFinish         Trigger = "finish"
	TriggerAnalyze        Trigger = "analyze"
	TriggerCancel         Trigger = "cancel"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
