package alarmclock

import (
	"time"
)

// Executor runs tasks outside the caller's context. Schedule must not block.
type Executor interface {
	Schedule(task func())
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func())

func (f ExecutorFunc) Schedule(task func()) { f(task) }

// goExecutor runs every task on a new goroutine.
type goExecutor struct{}

func (goExecutor) Schedule(task func()) { go task() }

// Display shows a transient notification.
type Display interface {
	ShowNotification(message string, d time.Duration)
}

// SoundPlayer plays an alarm clip.
type SoundPlayer interface {
	PlaySound(sound Sound)
}
