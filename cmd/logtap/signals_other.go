//go:build !unix

package main

import (
	"os"

	"github.com/bft-labs/logtap/pkg/logtap"
)

func notifyHostSignals(ch chan<- os.Signal) {}

func handleHostSignal(tap *logtap.Tap, sig os.Signal) bool { return false }
