//go:build !windows

package main

import (
	"os"
	"syscall"

	"github.com/wans112/web-toko/internal/heartbeat"
)

func watchedSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2}
}

func eventForSignal(sig os.Signal) (heartbeat.Event, bool) {
	switch sig {
	case syscall.SIGUSR1:
		return heartbeat.Hidden, true
	case syscall.SIGUSR2:
		return heartbeat.Visible, true
	case syscall.SIGINT, syscall.SIGTERM:
		return heartbeat.Teardown, true
	}
	return heartbeat.Event{}, false
}
