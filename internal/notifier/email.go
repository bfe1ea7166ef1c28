package notifier

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/pkg/metrics"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// EmailSink mails a summary of each created prescription to a
// configured pharmacy inbox.
type EmailSink struct {
	dialer  *gomail.Dialer
	from    string
	to      string
	metrics *metrics.Metrics
}

func NewEmailSink(cfg SMTPConfig, metrics *metrics.Metrics) *EmailSink {
	return &EmailSink{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		to:      cfg.To,
		metrics: metrics,
	}
}

func (s *EmailSink) Notify(_ context.Context, _ string, resp *model.PrescriptionResponse) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", fmt.Sprintf("Prescription #%d created", resp.ID))
	m.SetBody("text/plain", fmt.Sprintf(
		"Prescription %d for patient %d\nDoctor: %s\nMedication: %s (%s)\nIssued: %s\nValid until: %s\n",
		resp.ID, resp.PatientID, resp.DoctorName, resp.Medication, resp.Dosage,
		resp.IssueDate, resp.ValidUntil,
	))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send notification email: %w", err)
	}
	s.metrics.NotificationsDelivered.WithLabelValues("email").Inc()
	return nil
}
