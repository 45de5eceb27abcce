package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-core/internal/config"
	"github.com/spec-kit/helpdesk-core/internal/events"
)

// NotificationService reacts to domain events with best-effort outbound
// signals. Delivery failures are logged and dropped; nothing here may block
// or fail the operation that produced the event.
type NotificationService struct {
	cfg    config.NotificationConfig
	client *http.Client
	logger *zap.Logger
}

// NewNotificationService constructs the service and registers its handlers
// on the dispatcher.
func NewNotificationService(cfg config.NotificationConfig, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	svc := &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
	dispatcher.Subscribe(events.EventMisuseReportCreated, svc.handleMisuseReportCreated)
	dispatcher.Subscribe(events.EventTicketClosed, svc.handleTicketClosed)
	dispatcher.Subscribe(events.EventViolationRecorded, svc.handleViolationRecorded)
	return svc
}

func (s *NotificationService) handleMisuseReportCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MisuseReportCreatedPayload)
	if !ok {
		s.logger.Warn("unexpected payload for misuse report event", zap.String("event_id", event.ID))
		return nil
	}
	if s.cfg.AdminWebhookURL == "" {
		s.logger.Info("admin notification skipped, no webhook configured",
			zap.String("report_id", payload.ReportID),
			zap.String("user_id", payload.UserID))
		return nil
	}
	if err := s.post(ctx, s.cfg.AdminWebhookURL, payload); err != nil {
		s.logger.Warn("admin notification delivery failed",
			zap.String("report_id", payload.ReportID),
			zap.Error(err))
		return nil
	}
	s.logger.Info("admin notified of misuse report",
		zap.String("report_id", payload.ReportID),
		zap.String("user_id", payload.UserID),
		zap.String("severity", string(payload.Severity)))
	return nil
}

func (s *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketClosedPayload)
	if !ok {
		s.logger.Warn("unexpected payload for ticket closed event", zap.String("event_id", event.ID))
		return nil
	}
	if s.cfg.SummarizerURL == "" {
		s.logger.Debug("summarization skipped, no endpoint configured", zap.String("ticket_id", payload.TicketID))
		return nil
	}
	if err := s.post(ctx, s.cfg.SummarizerURL, payload); err != nil {
		s.logger.Warn("summarization signal delivery failed",
			zap.String("ticket_id", payload.TicketID),
			zap.Error(err))
		return nil
	}
	s.logger.Info("closed ticket handed off for summarization", zap.String("ticket_id", payload.TicketID))
	return nil
}

func (s *NotificationService) handleViolationRecorded(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ViolationRecordedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("content violation recorded",
		zap.String("violation_id", payload.ViolationID),
		zap.String("user_id", payload.UserID),
		zap.String("category", string(payload.Category)),
		zap.String("severity", string(payload.Severity)))
	return nil
}

func (s *NotificationService) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
