package session

import (
	"os"
	"syscall"
	"time"
)

// terminateSignal is the signal Shutdown sends before escalating to Kill.
func terminateSignal() os.Signal {
	return syscall.SIGTERM
}

// timeAfter is a thin wrapper so doShutdown's grace-period wait reads as
// plain control flow; kept as its own function rather than inlining
// time.After so the grace period is visibly the one tunable in this file.
func timeAfter(d time.Duration) <-chan time.Time {
	return time.After(d)
}
