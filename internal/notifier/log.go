package notifier

import (
	"context"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/pkg/logger"
	"github.com/jwalitptl/prescription-api/pkg/metrics"
)

// LogSink emits a structured log line per notification.
type LogSink struct {
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewLogSink(logger *logger.Logger, metrics *metrics.Metrics) *LogSink {
	return &LogSink{logger: logger, metrics: metrics}
}

func (s *LogSink) Notify(_ context.Context, eventType string, resp *model.PrescriptionResponse) error {
	s.logger.Info("prescription event",
		"event_type", eventType,
		"prescription_id", resp.ID,
		"patient_id", resp.PatientID,
		"doctor_name", resp.DoctorName,
		"medication", resp.Medication,
		"valid_until", resp.ValidUntil.String(),
	)
	s.metrics.NotificationsDelivered.WithLabelValues("log").Inc()
	return nil
}
