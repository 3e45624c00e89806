package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/domain"
	"github.com/wans112/web-toko/internal/events"
	"github.com/wans112/web-toko/internal/observability"
	"github.com/wans112/web-toko/internal/repository"
	apperrors "github.com/wans112/web-toko/pkg/util"
)

// DefaultStalenessWindow is how long an online flag survives without a
// heartbeat.
const DefaultStalenessWindow = 5 * time.Minute

// PresenceService applies presence policy on top of a PresenceRepository.
type PresenceService struct {
	repo       repository.PresenceRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	window     time.Duration
	now        func() time.Time
}

// PresenceDependencies bundles the service collaborators.
type PresenceDependencies struct {
	Repo       repository.PresenceRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Window     time.Duration
	Clock      func() time.Time
}

// NewPresenceService creates the service.
func NewPresenceService(deps PresenceDependencies) *PresenceService {
	s := &PresenceService{
		repo:       deps.Repo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		window:     deps.Window,
		now:        deps.Clock,
	}
	if s.window <= 0 {
		s.window = DefaultStalenessWindow
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Window returns the staleness window.
func (s *PresenceService) Window() time.Duration {
	return s.window
}

// SetPresence records the caller's flag. true refreshes the heartbeat
// timestamp; false keeps it. Repeating a write is harmless.
func (s *PresenceService) SetPresence(ctx context.Context, identity domain.Identity, online bool) (domain.PresenceRecord, error) {
	now := s.now().UTC()
	prev, err := s.repo.Set(ctx, identity.ID, online, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.PresenceRecord{}, apperrors.NewNotFound("user", map[string]any{"user_id": identity.ID})
		}
		return domain.PresenceRecord{}, apperrors.NewServiceUnavailable("presence store unavailable", err)
	}
	s.metrics.RecordHeartbeat(online)

	rec := domain.PresenceRecord{UserID: identity.ID, IsOnline: online, LastHeartbeatAt: prev.LastHeartbeatAt}
	if online {
		rec.LastHeartbeatAt = now
	}

	wasOnline := prev.OnlineAt(now, s.window)
	if wasOnline != online {
		reason := events.ReasonHeartbeat
		if !online {
			reason = events.ReasonExplicit
		}
		s.publish(ctx, identity.ID, now, events.PresenceChangedPayload{
			Online:          online,
			Reason:          reason,
			LastHeartbeatAt: rec.LastHeartbeatAt,
		})
	}
	return rec, nil
}

// Get returns the effective presence of a user. Unknown users are offline.
func (s *PresenceService) Get(ctx context.Context, userID string) (domain.PresenceRecord, error) {
	rec, err := s.repo.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.PresenceRecord{UserID: userID}, nil
	}
	if err != nil {
		return domain.PresenceRecord{}, apperrors.NewServiceUnavailable("presence store unavailable", err)
	}
	return rec.Effective(s.now(), s.window), nil
}

// ListOnline returns users that are online right now, stale flags excluded.
func (s *PresenceService) ListOnline(ctx context.Context) ([]domain.PresenceRecord, error) {
	records, err := s.repo.ListOnline(ctx)
	if err != nil {
		return nil, apperrors.NewServiceUnavailable("presence store unavailable", err)
	}
	now := s.now()
	out := make([]domain.PresenceRecord, 0, len(records))
	for _, rec := range records {
		if rec.OnlineAt(now, s.window) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Sweep persists the offline flag for every record whose last heartbeat is
// older than the window and returns how many were expired.
func (s *PresenceService) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.repo.ExpireBefore(ctx, now.Add(-s.window))
	if err != nil {
		return 0, err
	}
	for _, userID := range expired {
		s.publish(ctx, userID, now, events.PresenceChangedPayload{Online: false, Reason: events.ReasonExpired})
	}

	if online, err := s.repo.ListOnline(ctx); err == nil {
		s.metrics.SetOnlineUsers(len(online))
	}
	return len(expired), nil
}

func (s *PresenceService) publish(ctx context.Context, userID string, at time.Time, payload events.PresenceChangedPayload) {
	s.metrics.RecordTransition(string(payload.Reason))
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.NewPresenceChanged(userID, at, payload)); err != nil {
		s.logger.Warn("presence event handler failed", zap.String("user_id", userID), zap.Error(err))
	}
}
