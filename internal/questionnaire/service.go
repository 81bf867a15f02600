package questionnaire

import (
	"context"
	"fmt"
	"time"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"github.com/pgoos/clark-app-sub007/internal/domain/lifecycle"
	"github.com/pgoos/clark-app-sub007/internal/notification"
	"go.uber.org/zap"
)

// ResponseRepository persists response state changes.
type ResponseRepository interface {
	UpdateState(ctx context.Context, id int64, state string) error
	SetFinishedAt(ctx context.Context, id int64, finishedAt time.Time) error
}

// AnswerRepository persists answers. Upsert must keep at most one row
// per (response, question).
type AnswerRepository interface {
	Upsert(ctx context.Context, answer *entity.Answer) error
	ListByResponse(ctx context.Context, responseID int64) ([]*entity.Answer, error)
}

// ProfileSync forwards answered values to the customer-profile system.
type ProfileSync interface {
	UpdateProfile(ctx context.Context, mandateID int64, questionIdent string, value string) error
}

// Subscriber is notified when a response is finished.
type Subscriber interface {
	NotifyResponseCompleted(ctx context.Context, response *entity.QuestionnaireResponse) error
}

// EventPublisher emits domain events for finished responses.
type EventPublisher interface {
	Publish(ctx context.Context, key, eventType string, payload interface{}) error
}

// Automator attempts offer automation for a completed response.
type Automator interface {
	TryAutomate(ctx context.Context, response *entity.QuestionnaireResponse) error
}

// Service owns the questionnaire response lifecycle. All transition
// methods return whether the transition fired; an event that is not
// permitted in the current state is a silent no-op.
type Service struct {
	responses  ResponseRepository
	answers    AnswerRepository
	profile    ProfileSync
	subscriber Subscriber
	events     EventPublisher
	automator  Automator
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates a new questionnaire response service
func NewService(
	responses ResponseRepository,
	answers AnswerRepository,
	profile ProfileSync,
	subscriber Subscriber,
	events EventPublisher,
	automator Automator,
	logger *zap.Logger,
) *Service {
	return &Service{
		responses:  responses,
		answers:    answers,
		profile:    profile,
		subscriber: subscriber,
		events:     events,
		automator:  automator,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service's time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateAnswer stores the answer for (response, question), overwriting
// any existing value in place, forwards it to profile sync and moves a
// fresh response into in_progress. Like every other event it is a
// silent no-op outside the states that accept answers: the boolean
// reports whether the answer was recorded.
func (s *Service) CreateAnswer(ctx context.Context, response *entity.QuestionnaireResponse, questionIdent string, values ...string) (bool, error) {
	state := lifecycle.State(response.State)
	if state != lifecycle.StateCreated && state != lifecycle.StateInProgress {
		s.logger.Debug("Answer ignored for non-answerable response",
			zap.Int64("response_id", response.ID),
			zap.String("state", response.State))
		return false, nil
	}

	answer := &entity.Answer{
		ResponseID:    response.ID,
		QuestionIdent: questionIdent,
		Values:        values,
		UpdatedAt:     s.now(),
	}
	if err := s.answers.Upsert(ctx, answer); err != nil {
		return false, fmt.Errorf("upsert answer: %w", err)
	}

	// Profile sync is best-effort; the answer is already persisted.
	if err := s.profile.UpdateProfile(ctx, response.MandateID, questionIdent, answer.Normalized()); err != nil {
		s.logger.Warn("Profile sync failed",
			zap.Int64("response_id", response.ID),
			zap.String("question", questionIdent),
			zap.Error(err))
	}

	if state == lifecycle.StateCreated {
		s.transition(ctx, response, lifecycle.TriggerAnswerQuestion)
	}
	return true, nil
}

// Finish completes the response, records finished_at, notifies
// subscribers and hands the response to offer automation. Automation
// failures never fail the transition. Returns whether it fired.
func (s *Service) Finish(ctx context.Context, response *entity.QuestionnaireResponse) bool {
	if !s.transition(ctx, response, lifecycle.TriggerFinish) {
		return false
	}

	finishedAt := s.now()
	if err := s.responses.SetFinishedAt(ctx, response.ID, finishedAt); err != nil {
		s.logger.Error("Failed to record finished_at",
			zap.Int64("response_id", response.ID),
			zap.Error(err))
	} else {
		response.FinishedAt = &finishedAt
	}

	if err := s.subscriber.NotifyResponseCompleted(ctx, response); err != nil {
		s.logger.Warn("Subscriber notification failed",
			zap.Int64("response_id", response.ID),
			zap.Error(err))
	}

	if err := s.events.Publish(ctx, fmt.Sprintf("response-%d", response.ID), notification.EventResponseCompleted, notification.ResponseCompletedEvent{
		ResponseID: response.ID,
		MandateID:  response.MandateID,
		Category:   response.Category,
		FinishedAt: response.FinishedAt,
	}); err != nil {
		s.logger.Warn("Event publish failed",
			zap.Int64("response_id", response.ID),
			zap.Error(err))
	}

	if err := s.automator.TryAutomate(ctx, response); err != nil {
		s.logger.Warn("Offer automation failed, response stays completed",
			zap.Int64("response_id", response.ID),
			zap.Error(err))
	}

	return true
}

// Analyze marks a completed response as analyzed. Returns whether it fired.
func (s *Service) Analyze(ctx context.Context, response *entity.QuestionnaireResponse) bool {
	return s.transition(ctx, response, lifecycle.TriggerAnalyze)
}

// Cancel cancels the response from any pre-terminal state. Returns
// whether it fired.
func (s *Service) Cancel(ctx context.Context, response *entity.QuestionnaireResponse) bool {
	return s.transition(ctx, response, lifecycle.TriggerCancel)
}

// transition fires the trigger against a machine positioned at the
// response's persisted state and writes the new state back on success.
func (s *Service) transition(ctx context.Context, response *entity.QuestionnaireResponse, trigger lifecycle.Trigger) bool {
	state := lifecycle.State(response.State)
	if !state.IsValid() {
		s.logger.Error("Response has invalid persisted state",
			zap.Int64("response_id", response.ID),
			zap.String("state", response.State))
		return false
	}

	machine := lifecycle.NewResponseMachine(state)
	if !machine.Fire(trigger) {
		s.logger.Debug("Transition not permitted",
			zap.Int64("response_id", response.ID),
			zap.String("state", response.State),
			zap.String("trigger", trigger.String()))
		return false
	}

	newState := machine.State()
	if err := s.responses.UpdateState(ctx, response.ID, newState.String()); err != nil {
		s.logger.Error("Failed to persist state transition",
			zap.Int64("response_id", response.ID),
			zap.String("from", response.State),
			zap.String("to", newState.String()),
			zap.Error(err))
		return false
	}

	response.State = newState.String()
	return true
}

// NormalizedAnswers maps each answered question to its canonical
// comparable value.
func NormalizedAnswers(answers []*entity.Answer) map[string]string {
	out := make(map[string]string, len(answers))
	for _, a := range answers {
		out[a.QuestionIdent] = a.Normalized()
	}
	return out
}
