package domain

import "time"

// PresenceRecord is the stored online flag for one user.
type PresenceRecord struct {
	UserID          string
	IsOnline        bool
	LastHeartbeatAt time.Time
}

// OnlineAt applies the staleness rule: a record is online at now only if its
// flag is set and the last heartbeat is younger than window.
func (p PresenceRecord) OnlineAt(now time.Time, window time.Duration) bool {
	if !p.IsOnline || p.LastHeartbeatAt.IsZero() {
		return false
	}
	return now.Before(p.LastHeartbeatAt.Add(window))
}

// Effective returns a copy with IsOnline replaced by OnlineAt(now, window).
func (p PresenceRecord) Effective(now time.Time, window time.Duration) PresenceRecord {
	p.IsOnline = p.OnlineAt(now, window)
	return p
}
