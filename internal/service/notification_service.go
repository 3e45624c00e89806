package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/events"
)

// PresenceNotifier reports presence transitions.
type PresenceNotifier struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewPresenceNotifier creates the notifier.
func NewPresenceNotifier(dispatcher events.Dispatcher, logger *zap.Logger) *PresenceNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceNotifier{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (n *PresenceNotifier) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPresenceChanged, n.handlePresenceChanged)
}

func (n *PresenceNotifier) handlePresenceChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.PresenceChangedPayload)
	if !ok {
		n.logger.Warn("PresenceChanged with unexpected payload", zap.String("event_id", event.ID))
		return nil
	}
	n.logger.Info("PresenceChanged",
		zap.String("user_id", event.UserID),
		zap.Bool("online", payload.Online),
		zap.String("reason", string(payload.Reason)),
		zap.Time("at", event.Timestamp))
	return nil
}
