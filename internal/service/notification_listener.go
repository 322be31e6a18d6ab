package service

import (
	"context"
	"strings"

	"cadbridge/internal/domain"
	"cadbridge/internal/logger"
	queue "cadbridge/internal/queue/iface"
	source "cadbridge/internal/source/iface"
)

// NotificationListener exports one call per live notification. It implements
// queue.MessageProcessor: returning false leaves the notification for redelivery.
type NotificationListener struct {
	calls  ICallSync
	logger logger.Logger
}

var _ queue.MessageProcessor[domain.IncidentNotification] = (*NotificationListener)(nil)

func NewNotificationListener(calls ICallSync, log logger.Logger) *NotificationListener {
	return &NotificationListener{
		calls:  calls,
		logger: log.With(logger.String("component", "notification_listener")),
	}
}

// ProcessMessage acknowledges the notification once the export ran, whatever the sinks did;
// the next poll picks up a call whose delivery failed. Fetch failures and lock contention ask
// for redelivery. Notifications for calls the platform does not know are dropped.
func (l *NotificationListener) ProcessMessage(ctx context.Context, notification domain.IncidentNotification) bool {
	callID := strings.TrimSpace(notification.CallID)
	if callID == "" {
		l.logger.Warn("dropping notification without call id")
		return true
	}
	log := l.logger.With(logger.String("incident_id", callID))

	outcome, err := l.calls.ExportCall(ctx, callID)
	switch {
	case err == nil:
		log.Info("notification processed",
			logger.String("delivery", string(outcome.DeliveryStatus())),
			logger.Bool("sheet_failed", outcome.SheetFailed()))
		return true
	case source.IsIncidentNotFoundError(err):
		log.Warn("notified call does not exist, dropping notification")
		return true
	case IsWriterLockHeldError(err):
		log.Info("writer lock held elsewhere, leaving notification for redelivery")
		return false
	default:
		log.Error("failed to export notified call", logger.Error(err))
		return false
	}
}
