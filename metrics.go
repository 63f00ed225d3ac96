package alarmclock

import (
	"time"
)

// Metrics records scheduler activity.
type Metrics interface {
	// AlarmFired counts one fired alarm.
	AlarmFired(repeat bool)

	// TimerArmed records an armed deadline and its delay.
	TimerArmed(deadline time.Time, delay time.Duration)

	// TimerDisarmed records that no deadline is armed.
	TimerDisarmed()

	// TimerError counts a failed timer operation.
	TimerError(op string)

	// CommitError counts a failed settings commit.
	CommitError()

	// AlarmsLive records the size of the live set.
	AlarmsLive(n int)
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) AlarmFired(bool) {}
func (NoopMetrics) TimerArmed(time.Time, time.Duration) {}
func (NoopMetrics) TimerDisarmed() {}
func (NoopMetrics) TimerError(string) {}
func (NoopMetrics) CommitError() {}
func (NoopMetrics) AlarmsLive(int) {}
