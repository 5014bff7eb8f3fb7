// Package jobs holds the asynq task types and the background worker that
// processes them.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDocumentEmail sends a quote or invoice email to a customer.
	TaskTypeDocumentEmail = "document:email"
	// TaskTypeOverdueScan flags sent invoices past their due date.
	TaskTypeOverdueScan = "invoice:overdue_scan"
	// TaskTypeTotalsVerify recomputes stored document totals and reports drift.
	TaskTypeTotalsVerify = "finance:totals_verify"
)

// DocumentEmailPayload describes a customer-facing document notification.
type DocumentEmailPayload struct {
	Kind      string `json:"kind"` // quote or invoice
	DocNumber string `json:"doc_number"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// NewDocumentEmailTask constructs an Asynq task.
func NewDocumentEmailTask(payload DocumentEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDocumentEmail, data), nil
}

// NewOverdueScanTask constructs the periodic overdue scan task.
func NewOverdueScanTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOverdueScan, nil)
}

// NewTotalsVerifyTask constructs the periodic totals verification task.
func NewTotalsVerifyTask() *asynq.Task {
	return asynq.NewTask(TaskTypeTotalsVerify, nil)
}

// SMTPConfig carries the outbound mail settings.
type SMTPConfig struct {
	Host string
	Port int
	From string
}

// NewDocumentEmailHandler returns the handler that delivers document emails
// over SMTP.
func NewDocumentEmailHandler(cfg SMTPConfig, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DocumentEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}

		msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
			cfg.From, payload.To, payload.Subject, payload.Body)
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		if err := smtp.SendMail(addr, nil, cfg.From, []string{payload.To}, []byte(msg)); err != nil {
			logger.Error("send document email",
				slog.String("doc_number", payload.DocNumber),
				slog.Any("error", err))
			return err
		}
		logger.Info("document email sent",
			slog.String("kind", payload.Kind),
			slog.String("doc_number", payload.DocNumber))
		return nil
	}
}
