package profile

import (
	"context"

	"go.uber.org/zap"
)

// Syncer mirrors answered questionnaire values into the customer
// profile store. The store itself is an external system; this
// implementation records the update for the sync pipeline.
type Syncer struct {
	logger *zap.Logger
}

// NewSyncer creates a new profile syncer
func NewSyncer(logger *zap.Logger) *Syncer {
	return &Syncer{logger: logger}
}

// UpdateProfile forwards one answered value for a mandate
func (s *Syncer) UpdateProfile(ctx context.Context, mandateID int64, questionIdent string, value string) error {
	s.logger.Info("Syncing profile attribute",
		zap.Int64("mandate_id", mandateID),
		zap.String("question", questionIdent),
		zap.String("value", value))
	return nil
}
