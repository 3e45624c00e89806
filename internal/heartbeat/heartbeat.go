package heartbeat

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/wans112/web-toko/internal/domain"
)

// Common errors.
var (
	ErrRejected       = errors.New("heartbeat: identity check rejected")
	ErrAlreadyRunning = errors.New("heartbeat: supervisor already running")
	ErrInvalidConfig  = errors.New("heartbeat: invalid configuration")
)

// DefaultInterval is the period between online assertions.
const DefaultInterval = 30 * time.Second

// IdentityChecker asks the server who the caller is.
type IdentityChecker interface {
	// CheckIdentity returns ErrRejected (possibly wrapped) when the server
	// denies the credential. Any error leaves the supervisor dormant.
	CheckIdentity(ctx context.Context) (domain.Identity, error)
}

// PresenceClient asserts presence to the server.
type PresenceClient interface {
	// SetPresence sends one assertion and waits for the result.
	SetPresence(ctx context.Context, online bool) error

	// Beacon hands an assertion off without waiting. The request must not
	// depend on the caller staying alive.
	Beacon(online bool)
}

// Config configures a Supervisor.
type Config struct {
	Checker  IdentityChecker
	Presence PresenceClient

	// Scheduler arms the heartbeat timer.
	// Default: a ClockScheduler
	Scheduler Scheduler

	// Interval between heartbeats.
	// Default: 30 seconds
	Interval time.Duration

	// RequestTimeout bounds the identity check and each heartbeat.
	// Default: 5 seconds
	RequestTimeout time.Duration

	// OnTransition, when set, is called after every phase change from the
	// goroutine applying the event.
	OnTransition func(from, to Phase)

	Logger *zap.Logger
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Checker == nil || c.Presence == nil {
		return ErrInvalidConfig
	}
	if c.Interval < 0 || c.RequestTimeout < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       DefaultInterval,
		RequestTimeout: 5 * time.Second,
	}
}

// Phase is the supervisor's state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseChecking
	PhaseRejected
	PhaseVisible
	PhasePaused
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseChecking:
		return "checking"
	case PhaseRejected:
		return "rejected"
	case PhaseVisible:
		return "active_visible"
	case PhasePaused:
		return "active_paused"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Active reports whether p is one of the Active sub-phases.
func (p Phase) Active() bool {
	return p == PhaseVisible || p == PhasePaused
}

// EventKind names an input to the state machine.
type EventKind int

const (
	EventMount EventKind = iota + 1
	EventHidden
	EventVisible
	EventTeardown
	EventTimer
)

func (k EventKind) String() string {
	switch k {
	case EventMount:
		return "mount"
	case EventHidden:
		return "hidden"
	case EventVisible:
		return "visible"
	case EventTeardown:
		return "teardown"
	case EventTimer:
		return "timer"
	default:
		return "unknown"
	}
}

// Event is one input to the state machine. Timer is set only for EventTimer.
type Event struct {
	Kind  EventKind
	Timer TimerID
}

// Convenience events.
var (
	Mount    = Event{Kind: EventMount}
	Hidden   = Event{Kind: EventHidden}
	Visible  = Event{Kind: EventVisible}
	Teardown = Event{Kind: EventTeardown}
)
