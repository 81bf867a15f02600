package notification

import (
	"context"
	"fmt"

	"github.com/pgoos/clark-app-sub007/internal/domain/entity"
	"go.uber.org/zap"
)

// PushGateway delivers customer-facing push messages. The actual
// transport lives outside this service; this implementation hands the
// message to the delivery log the transport tails.
type PushGateway struct {
	logger *zap.Logger
}

// NewPushGateway creates a new push gateway
func NewPushGateway(logger *zap.Logger) *PushGateway {
	return &PushGateway{logger: logger}
}

// NotifyAdvice delivers a new-advice push to the mandate's devices
func (g *PushGateway) NotifyAdvice(ctx context.Context, mandate *entity.Mandate, record *entity.AdviceRecord) error {
	if mandate == nil || record == nil {
		return fmt.Errorf("push requires mandate and advice record")
	}

	g.logger.Info("Delivering advice push",
		zap.Int64("mandate_id", mandate.ID),
		zap.Int64("advice_id", record.ID),
		zap.String("rule_id", record.RuleID))
	return nil
}

// NotifyResponseCompleted informs subscribers that a questionnaire
// response was finished by the customer
func (g *PushGateway) NotifyResponseCompleted(ctx context.Context, response *entity.QuestionnaireResponse) error {
	if response == nil {
		return fmt.Errorf("push requires a response")
	}

	g.logger.Info("Delivering response-completed notification",
		zap.Int64("response_id", response.ID),
		zap.Int64("mandate_id", response.MandateID))
	return nil
}
