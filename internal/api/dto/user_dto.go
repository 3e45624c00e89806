package dto

import (
	"time"

	"github.com/wans112/web-toko/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PresenceRequest is the body of the presence PATCH. IsOnline is a pointer
// so a missing field can be told apart from false.
type PresenceRequest struct {
	IsOnline *bool `json:"is_online"`
}

// PresenceResponse is the public view of a presence record.
type PresenceResponse struct {
	UserID          string     `json:"user_id"`
	IsOnline        bool       `json:"is_online"`
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at"`
}

// NewPresenceResponse converts a domain record.
func NewPresenceResponse(rec domain.PresenceRecord) PresenceResponse {
	resp := PresenceResponse{UserID: rec.UserID, IsOnline: rec.IsOnline}
	if !rec.LastHeartbeatAt.IsZero() {
		at := rec.LastHeartbeatAt.UTC()
		resp.LastHeartbeatAt = &at
	}
	return resp
}

// NewPresenceList converts a slice of domain records.
func NewPresenceList(records []domain.PresenceRecord) []PresenceResponse {
	out := make([]PresenceResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, NewPresenceResponse(rec))
	}
	return out
}
