//go:build unix

package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/bft-labs/logtap/pkg/logtap"
)

func notifyHostSignals(ch chan<- os.Signal) {
	signal.Notify(ch, unix.SIGUSR1, unix.SIGUSR2)
}

// handleHostSignal maps SIGUSR1 and SIGUSR2 to background and foreground.
// It reports false for signals that should end the capture.
func handleHostSignal(tap *logtap.Tap, sig os.Signal) bool {
	switch sig {
	case unix.SIGUSR1:
		tap.OnBackground()
	case unix.SIGUSR2:
		tap.OnForeground()
	default:
		return false
	}
	return true
}
