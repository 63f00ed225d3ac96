package mem_test

import (
	"sync/atomic"
	"testing"
	"time"

	"bsid.es/alarmclock/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	timer := mem.NewTimer(func() { fired <- struct{}{} })
	defer timer.Close()

	require.NoError(t, timer.Arm(time.Millisecond))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, timer.Armed())
}

func TestTimerDisarm(t *testing.T) {
	var calls atomic.Int32
	timer := mem.NewTimer(func() { calls.Add(1) })
	defer timer.Close()

	require.NoError(t, timer.Arm(20*time.Millisecond))
	assert.True(t, timer.Armed())
	require.NoError(t, timer.Disarm())
	assert.False(t, timer.Armed())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestTimerRearmReplacesDeadline(t *testing.T) {
	var calls atomic.Int32
	fired := make(chan struct{}, 2)
	timer := mem.NewTimer(func() {
		calls.Add(1)
		fired <- struct{}{}
	})
	defer timer.Close()

	require.NoError(t, timer.Arm(time.Hour))
	require.NoError(t, timer.Arm(time.Millisecond))
	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("timer did not fire")
	}
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, calls.Load())
}

func TestTimerClose(t *testing.T) {
	var calls atomic.Int32
	timer := mem.NewTimer(func() { calls.Add(1) })

	require.NoError(t, timer.Arm(10*time.Millisecond))
	require.NoError(t, timer.Close())
	assert.ErrorIs(t, timer.Arm(time.Millisecond), mem.ErrTimerClosed)
	assert.ErrorIs(t, timer.Disarm(), mem.ErrTimerClosed)
	assert.NoError(t, timer.Close())

	time.Sleep(40 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestTimerCallbackMayRearm(t *testing.T) {
	fired := make(chan struct{}, 3)
	var timer *mem.Timer
	var calls atomic.Int32
	timer = mem.NewTimer(func() {
		if calls.Add(1) < 3 {
			timer.Arm(time.Millisecond)
		}
		fired <- struct{}{}
	})
	defer timer.Close()

	require.NoError(t, timer.Arm(time.Millisecond))
	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(5 * time.Second):
			t.Fatalf("fire %d missing", i+1)
		}
	}
}
