package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPresenceChanged EventType = "presence_changed"
)

// PresenceReason explains a presence transition.
type PresenceReason string

const (
	ReasonHeartbeat PresenceReason = "heartbeat"
	ReasonExplicit  PresenceReason = "explicit"
	ReasonExpired   PresenceReason = "expired"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	UserID    string      `json:"user_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PresenceChangedPayload payload.
type PresenceChangedPayload struct {
	Online          bool           `json:"online"`
	Reason          PresenceReason `json:"reason"`
	LastHeartbeatAt time.Time      `json:"last_heartbeat_at"`
}

// NewPresenceChanged builds a presence transition event.
func NewPresenceChanged(userID string, at time.Time, payload PresenceChangedPayload) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventPresenceChanged,
		UserID:    userID,
		Timestamp: at,
		Payload:   payload,
	}
}
