//go:build windows

package main

import (
	"os"
	"syscall"

	"github.com/wans112/web-toko/internal/heartbeat"
)

func watchedSignals() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

func eventForSignal(sig os.Signal) (heartbeat.Event, bool) {
	switch sig {
	case os.Interrupt, syscall.SIGTERM:
		return heartbeat.Teardown, true
	}
	return heartbeat.Event{}, false
}
