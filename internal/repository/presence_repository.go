package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wans112/web-toko/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("repository: not found")

// PresenceRepository stores per-user presence flags. Writes for different
// users are independent; writes for the same user are last-write-wins.
type PresenceRepository interface {
	// Set stores the flag and returns the record as it was before the write
	// (zero value if none). An online write refreshes LastHeartbeatAt to at;
	// an offline write keeps the previous LastHeartbeatAt.
	Set(ctx context.Context, userID string, online bool, at time.Time) (domain.PresenceRecord, error)

	// Get returns the stored record or ErrNotFound.
	Get(ctx context.Context, userID string) (domain.PresenceRecord, error)

	// ListOnline returns records whose stored flag is set, stale or not.
	ListOnline(ctx context.Context) ([]domain.PresenceRecord, error)

	// ExpireBefore clears the flag on every online record whose last
	// heartbeat is at or before cutoff and returns the affected user IDs.
	ExpireBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

type memoryPresenceRepository struct {
	mu      sync.RWMutex
	records map[string]domain.PresenceRecord
}

// NewMemoryPresenceRepository returns a process-local implementation.
func NewMemoryPresenceRepository() PresenceRepository {
	return &memoryPresenceRepository{records: make(map[string]domain.PresenceRecord)}
}

func (r *memoryPresenceRepository) Set(_ context.Context, userID string, online bool, at time.Time) (domain.PresenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.records[userID]
	next := domain.PresenceRecord{UserID: userID, IsOnline: online, LastHeartbeatAt: prev.LastHeartbeatAt}
	if online {
		next.LastHeartbeatAt = at
	}
	r.records[userID] = next
	return prev, nil
}

func (r *memoryPresenceRepository) Get(_ context.Context, userID string) (domain.PresenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID]
	if !ok {
		return domain.PresenceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *memoryPresenceRepository) ListOnline(_ context.Context) ([]domain.PresenceRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.PresenceRecord, 0, len(r.records))
	for _, rec := range r.records {
		if rec.IsOnline {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryPresenceRepository) ExpireBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for id, rec := range r.records {
		if rec.IsOnline && !rec.LastHeartbeatAt.After(cutoff) {
			rec.IsOnline = false
			r.records[id] = rec
			expired = append(expired, id)
		}
	}
	return expired, nil
}
