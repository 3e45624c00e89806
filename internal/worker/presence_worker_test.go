package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(context.Context) (int, error) {
	s.calls.Add(1)
	return 1, s.err
}

func TestRunPresenceSweeper_TicksUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunPresenceSweeper(ctx, sweeper, 5*time.Millisecond, zap.NewNop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestRunPresenceSweeper_SurvivesErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper := &countingSweeper{err: errors.New("redis down")}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunPresenceSweeper(ctx, sweeper, 5*time.Millisecond, nil)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestStartPresenceNotifier_Nil(t *testing.T) {
	assert.NotPanics(t, func() { StartPresenceNotifier(nil) })
}
