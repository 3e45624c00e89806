package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/service"
)

// Sweeper is the part of the presence service the sweep loop drives.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// StartPresenceNotifier registers presence notification handlers.
func StartPresenceNotifier(notifier *service.PresenceNotifier) {
	if notifier == nil {
		return
	}
	notifier.RegisterHandlers()
}

// RunPresenceSweeper expires stale presence flags every interval until ctx
// is cancelled. A failed sweep is logged and retried on the next tick.
func RunPresenceSweeper(ctx context.Context, sweeper Sweeper, interval time.Duration, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("presence sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("presence sweeper stopped")
			return
		case <-ticker.C:
			n, err := sweeper.Sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("presence sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired stale presence", zap.Int("count", n))
			}
		}
	}
}
