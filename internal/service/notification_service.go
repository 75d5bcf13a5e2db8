package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/civic-report-service/internal/config"
	"github.com/spec-kit/civic-report-service/internal/events"
)

// NotificationService fans domain events out to interested parties. The
// primary channel is a Redis publish so connected display surfaces can
// refresh without polling; email and webhook delivery are stubbed out
// pending a mail provider decision.
type NotificationService struct {
	dispatcher events.Dispatcher
	redis      *redis.Client
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, redisClient *redis.Client, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		redis:      redisClient,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventReportCreated, n.handleReportCreated)
	n.dispatcher.Subscribe(events.EventReportStatusChanged, n.handleStatusChanged)
	n.dispatcher.Subscribe(events.EventReportPriorityChanged, n.handlePriorityChanged)
	n.dispatcher.Subscribe(events.EventReportAssigned, n.handleAssigned)
}

func (n *NotificationService) handleReportCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportCreated", zap.String("report_id", event.ReportID))
	n.publishToChannel(ctx, event)
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportStatusChanged", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	n.publishToChannel(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePriorityChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportPriorityChanged", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	n.publishToChannel(ctx, event)
	return nil
}

func (n *NotificationService) handleAssigned(ctx context.Context, event events.Event) error {
	n.logger.Info("ReportAssigned", zap.String("report_id", event.ReportID), zap.Any("payload", event.Payload))
	n.publishToChannel(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// publishToChannel pushes the event onto the Redis channel subscribed by
// display surfaces. Delivery failures are logged and swallowed so the
// originating write is never rolled back for a notification.
func (n *NotificationService) publishToChannel(ctx context.Context, event events.Event) {
	if n.redis == nil || strings.TrimSpace(n.cfg.Channel) == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("event marshal failed", zap.String("report_id", event.ReportID), zap.Error(err))
		return
	}
	if err := n.redis.Publish(ctx, n.cfg.Channel, payload).Err(); err != nil {
		n.logger.Warn("event publish failed", zap.String("channel", n.cfg.Channel), zap.Error(err))
	}
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("report_id", event.ReportID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("report_id", event.ReportID),
		zap.String("event_type", string(event.Type)))
}
