package notification

import (
	"context"

	"go.uber.org/zap"
)

// TelemetryReporter forwards errors to the error-telemetry backend.
// Reporting never fails back into the caller.
type TelemetryReporter struct {
	logger *zap.Logger
}

// NewTelemetryReporter creates a new telemetry reporter
func NewTelemetryReporter(logger *zap.Logger) *TelemetryReporter {
	return &TelemetryReporter{logger: logger}
}

// ReportError records an error with its structured context
func (r *TelemetryReporter) ReportError(ctx context.Context, err error, context map[string]string) {
	fields := make([]zap.Field, 0, len(context)+1)
	fields = append(fields, zap.Error(err))
	for k, v := range context {
		fields = append(fields, zap.String(k, v))
	}
	r.logger.Error("Reported error to telemetry", fields...)
}
