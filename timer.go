package alarmclock

import (
	"time"
)

// Timer is a reusable one-shot timer bound to a callback at creation.
//
// Arm replaces any pending deadline. After Disarm returns, the callback of
// the previous arm doesn't run, except when it had already started.
type Timer interface {
	Arm(d time.Duration) error
	Disarm() error
	Armed() bool
	Close() error
}

// TimerFunc creates a Timer that calls callback when it expires. The callback
// runs on the timer's own goroutine and must return quickly.
type TimerFunc func(callback func()) (Timer, error)
