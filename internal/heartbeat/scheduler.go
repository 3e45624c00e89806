package heartbeat

import (
	"sync"
	"time"
)

// TimerID identifies one armed timer. IDs increase monotonically and are
// never reused; zero means "no timer".
type TimerID uint64

// Scheduler arms and cancels one-shot timers.
type Scheduler interface {
	// Schedule calls fn with the timer's ID once d has elapsed, unless the
	// timer is cancelled first.
	Schedule(d time.Duration, fn func(TimerID)) TimerID

	// Cancel disarms id. Cancelling an unknown or fired timer is a no-op.
	Cancel(id TimerID)
}

// ClockScheduler is a Scheduler backed by time.AfterFunc.
type ClockScheduler struct {
	mu     sync.Mutex
	next   TimerID
	timers map[TimerID]*time.Timer
}

// NewClockScheduler creates a wall-clock scheduler.
func NewClockScheduler() *ClockScheduler {
	return &ClockScheduler{timers: make(map[TimerID]*time.Timer)}
}

// Schedule arms a timer.
func (s *ClockScheduler) Schedule(d time.Duration, fn func(TimerID)) TimerID {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		_, live := s.timers[id]
		delete(s.timers, id)
		s.mu.Unlock()
		if live {
			fn(id)
		}
	})
	return id
}

// Cancel disarms a timer.
func (s *ClockScheduler) Cancel(id TimerID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending returns the number of armed timers.
func (s *ClockScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
