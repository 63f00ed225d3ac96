package mem

import (
	"errors"
	"sync"
	"time"

	"bsid.es/alarmclock"
)

var ErrTimerClosed = errors.New("mem: timer closed")

var _ alarmclock.Timer = (*Timer)(nil)

// Timer is a one-shot timer on top of time.AfterFunc.
//
// Every Arm starts a new generation; a callback only runs if its generation
// is still the armed one when it wakes up.
type Timer struct {
	callback func()

	mu     sync.Mutex
	timer  *time.Timer
	gen    uint64
	armed  bool
	closed bool
}

func NewTimer(callback func()) *Timer {
	return &Timer{callback: callback}
}

// TimerFunc creates Timers for alarmclock.WithTimer.
func TimerFunc(callback func()) (alarmclock.Timer, error) {
	return NewTimer(callback), nil
}

func (t *Timer) Arm(d time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTimerClosed
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.armed = true
	t.timer = time.AfterFunc(d, func() { t.fire(gen) })
	return nil
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if t.closed || !t.armed || t.gen != gen {
		t.mu.Unlock()
		return
	}
	t.armed = false
	t.mu.Unlock()

	t.callback()
}

func (t *Timer) Disarm() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTimerClosed
	}
	t.stop()
	return nil
}

func (t *Timer) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}

func (t *Timer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stop()
	t.closed = true
	return nil
}

func (t *Timer) stop() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
	t.armed = false
}
