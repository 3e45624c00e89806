package heartbeat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/domain"
)

const eventBuffer = 16

// Supervisor drives the heartbeat loop for one mounted client.
//
// Handle is not safe for concurrent use; producers should call Post and let
// Run apply events. Accessors may be called from any goroutine.
type Supervisor struct {
	checker        IdentityChecker
	presence       PresenceClient
	scheduler      Scheduler
	interval       time.Duration
	requestTimeout time.Duration
	onTransition   func(from, to Phase)
	logger         *zap.Logger

	mu       sync.RWMutex
	phase    Phase
	started  bool
	identity domain.Identity

	// timer is touched only by Handle.
	timer TimerID

	events  chan Event
	running atomic.Bool
	done    chan struct{}
}

// New creates a supervisor in PhaseIdle.
func New(cfg Config) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	defaults := DefaultConfig()
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaults.Interval
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaults.RequestTimeout
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = NewClockScheduler()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Supervisor{
		checker:        cfg.Checker,
		presence:       cfg.Presence,
		scheduler:      scheduler,
		interval:       interval,
		requestTimeout: timeout,
		onTransition:   cfg.OnTransition,
		logger:         logger.Named("heartbeat"),
		phase:          PhaseIdle,
		events:         make(chan Event, eventBuffer),
		done:           make(chan struct{}),
	}, nil
}

// Post queues an event for Run. It returns false once Run has exited.
func (s *Supervisor) Post(ev Event) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

// Run applies posted events until the supervisor stops. Cancelling ctx is
// treated as a teardown.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.running.Swap(true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			s.Handle(ctx, Teardown)
			return ctx.Err()
		case ev := <-s.events:
			s.Handle(ctx, ev)
			if s.Phase() == PhaseStopped {
				return nil
			}
		}
	}
}

// Done is closed when Run returns.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

// Handle applies one event to the state machine.
func (s *Supervisor) Handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventMount:
		s.mount(ctx)
	case EventHidden:
		s.hide()
	case EventVisible:
		s.show(ctx)
	case EventTimer:
		s.tick(ctx, ev.Timer)
	case EventTeardown:
		s.teardown()
	default:
		s.logger.Warn("unknown event ignored", zap.Int("kind", int(ev.Kind)))
	}
}

// Phase returns the current phase.
func (s *Supervisor) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Started reports whether the loop ever reached an Active phase.
func (s *Supervisor) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Listening reports whether visibility and teardown listeners are attached.
func (s *Supervisor) Listening() bool {
	return s.Phase().Active()
}

// Identity returns the identity confirmed at mount, if any.
func (s *Supervisor) Identity() (domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity, s.started
}

func (s *Supervisor) mount(ctx context.Context) {
	if s.Phase() != PhaseIdle {
		return
	}
	s.transition(PhaseChecking)

	checkCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	identity, err := s.checker.CheckIdentity(checkCtx)
	cancel()
	if err != nil {
		if errors.Is(err, ErrRejected) {
			s.logger.Info("identity rejected; heartbeat dormant")
		} else {
			s.logger.Warn("identity check failed; heartbeat dormant", zap.Error(err))
		}
		s.transition(PhaseRejected)
		return
	}

	s.mu.Lock()
	s.identity = identity
	s.started = true
	s.mu.Unlock()

	s.logger.Info("heartbeat started",
		zap.String("user_id", identity.ID),
		zap.Duration("interval", s.interval))
	s.transition(PhaseVisible)
	s.beat(ctx)
	s.arm()
}

func (s *Supervisor) hide() {
	if s.Phase() != PhaseVisible {
		return
	}
	s.disarm()
	s.transition(PhasePaused)
}

// show restarts the cycle from zero whether the supervisor was paused or
// already visible.
func (s *Supervisor) show(ctx context.Context) {
	if !s.Phase().Active() {
		return
	}
	s.disarm()
	s.transition(PhaseVisible)
	s.beat(ctx)
	s.arm()
}

func (s *Supervisor) tick(ctx context.Context, id TimerID) {
	if s.Phase() != PhaseVisible || id == 0 || id != s.timer {
		return
	}
	s.timer = 0
	s.beat(ctx)
	s.arm()
}

func (s *Supervisor) teardown() {
	phase := s.Phase()
	if phase == PhaseStopped {
		return
	}
	s.disarm()
	s.transition(PhaseStopped)

	if s.Started() {
		s.presence.Beacon(false)
		s.logger.Info("heartbeat stopped; offline beacon dispatched")
		return
	}
	s.logger.Debug("dormant heartbeat torn down", zap.Stringer("from", phase))
}

// beat sends one online assertion. A failure is logged and dropped; the next
// tick tries again.
func (s *Supervisor) beat(ctx context.Context) {
	beatCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()
	if err := s.presence.SetPresence(beatCtx, true); err != nil {
		s.logger.Debug("heartbeat dropped", zap.Error(err))
	}
}

// arm always clears the previous timer first so at most one is pending.
func (s *Supervisor) arm() {
	s.disarm()
	s.timer = s.scheduler.Schedule(s.interval, func(id TimerID) {
		s.Post(Event{Kind: EventTimer, Timer: id})
	})
}

func (s *Supervisor) disarm() {
	if s.timer != 0 {
		s.scheduler.Cancel(s.timer)
		s.timer = 0
	}
}

func (s *Supervisor) transition(to Phase) {
	s.mu.Lock()
	from := s.phase
	s.phase = to
	s.mu.Unlock()

	if from == to {
		return
	}
	s.logger.Debug("phase changed", zap.Stringer("from", from), zap.Stringer("to", to))
	if s.onTransition != nil {
		s.onTransition(from, to)
	}
}
