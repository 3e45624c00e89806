//go:build !windows

package main

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wans112/web-toko/internal/heartbeat"
)

func TestEventForSignal(t *testing.T) {
	tests := []struct {
		sig  syscall.Signal
		want heartbeat.EventKind
	}{
		{syscall.SIGUSR1, heartbeat.EventHidden},
		{syscall.SIGUSR2, heartbeat.EventVisible},
		{syscall.SIGINT, heartbeat.EventTeardown},
		{syscall.SIGTERM, heartbeat.EventTeardown},
	}
	for _, tt := range tests {
		ev, ok := eventForSignal(tt.sig)
		assert.True(t, ok, tt.sig.String())
		assert.Equal(t, tt.want, ev.Kind, tt.sig.String())
	}

	_, ok := eventForSignal(syscall.SIGHUP)
	assert.False(t, ok)
}
