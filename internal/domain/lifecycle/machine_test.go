package lifecycle

import "testing"

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateCreated, false},
		{StateInProgress, false},
		{StateCompleted, false},
		{StateAnalyzed, true},
		{StateCanceled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"valid state", StateCreated, true},
		{"valid terminal state", StateCanceled, true},
		{"invalid state", State("bogus"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuilder_PermitPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid state")
		}
	}()

	NewBuilder().Permit(State("bogus"), TriggerFinish, StateCompleted)
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("bogus"))
}

func TestStateMachine_Fire(t *testing.T) {
	machine := NewResponseMachine(StateCreated)

	if !machine.CanFire(TriggerAnswerQuestion) {
		t.Error("CanFire(answer_question) should be true in created")
	}
	if !machine.Fire(TriggerAnswerQuestion) {
		t.Error("Fire(answer_question) should fire from created")
	}
	if machine.State() != StateInProgress {
		t.Errorf("State() = %v, want %v", machine.State(), StateInProgress)
	}
}

func TestStateMachine_FireInvalidTriggerIsNoOp(t *testing.T) {
	machine := NewResponseMachine(StateCreated)

	if machine.Fire(TriggerAnalyze) {
		t.Error("Fire(analyze) should not fire from created")
	}
	if machine.State() != StateCreated {
		t.Errorf("State() = %v, want unchanged %v", machine.State(), StateCreated)
	}
}

func TestStateMachine_ResponseLifecycle(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
		fired   bool
		to      State
	}{
		{"answer from created", StateCreated, TriggerAnswerQuestion, true, StateInProgress},
		{"answer again in progress", StateInProgress, TriggerAnswerQuestion, true, StateInProgress},
		{"finish in progress", StateInProgress, TriggerFinish, true, StateCompleted},
		{"finish from created", StateCreated, TriggerFinish, false, StateCreated},
		{"analyze completed", StateCompleted, TriggerAnalyze, true, StateAnalyzed},
		{"analyze in progress", StateInProgress, TriggerAnalyze, false, StateInProgress},
		{"cancel created", StateCreated, TriggerCancel, true, StateCanceled},
		{"cancel in progress", StateInProgress, TriggerCancel, true, StateCanceled},
		{"cancel completed", StateCompleted, TriggerCancel, true, StateCanceled},
		{"cancel analyzed", StateAnalyzed, TriggerCancel, false, StateAnalyzed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := NewResponseMachine(tt.from)
			if fired := machine.Fire(tt.trigger); fired != tt.fired {
				t.Errorf("Fire(%s) = %v, want %v", tt.trigger, fired, tt.fired)
			}
			if machine.State() != tt.to {
				t.Errorf("State() = %v, want %v", machine.State(), tt.to)
			}
		})
	}
}

func TestStateMachine_TerminalStatesIgnoreEverything(t *testing.T) {
	triggers := []Trigger{TriggerAnswerQuestion, TriggerFinish, TriggerAnalyze, TriggerCancel}

	for _, terminal := range []State{StateCanceled, StateAnalyzed} {
		for _, trigger := range triggers {
			machine := NewResponseMachine(terminal)
			if machine.Fire(trigger) {
				t.Errorf("Fire(%s) from %s should be a no-op", trigger, terminal)
			}
			if machine.State() != terminal {
				t.Errorf("State() = %v, want unchanged %v", machine.State(), terminal)
			}
		}
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	machine := NewResponseMachine(StateAnalyzed)
	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("PermittedTriggers() in analyzed = %v, want none", got)
	}

	machine = NewResponseMachine(StateInProgress)
	if got := machine.PermittedTriggers(); len(got) != 3 {
		t.Errorf("PermittedTriggers() in in_progress = %v, want 3 triggers", got)
	}
}
