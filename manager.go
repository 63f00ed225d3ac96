package alarmclock

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

const (
	// minDelay keeps overdue alarms from being armed in the past.
	minDelay = time.Millisecond

	DefaultNotificationDuration = 5 * time.Second
)

// Manager owns the live alarm set and the shared scheduler timer.
//
// Every mutation persists through the Store and re-arms the timer so that it
// is armed iff the set is non-empty, for the earliest fire time.
type Manager struct {
	store    *Store
	now      func() time.Time
	logger   *slog.Logger
	metrics  Metrics
	executor Executor
	display  Display
	player   SoundPlayer
	newTimer TimerFunc
	showFor  time.Duration

	mu       sync.Mutex
	alarms   map[int]Alarm
	nextID   int
	timer    Timer
	deadline time.Time
	armed    bool
	notifier func(Alarm)
}

// Option customizes a Manager.
type Option func(*Manager)

// WithNow overrides the clock.
func WithNow(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		if metrics != nil {
			m.metrics = metrics
		}
	}
}

// WithExecutor sets where fire notifications run. By default each one runs on
// its own goroutine.
func WithExecutor(executor Executor) Option {
	return func(m *Manager) {
		if executor != nil {
			m.executor = executor
		}
	}
}

// WithDisplay sets the display that shows fired alarms.
func WithDisplay(display Display) Option {
	return func(m *Manager) {
		m.display = display
	}
}

// WithSoundPlayer sets the player for alarm sounds.
func WithSoundPlayer(player SoundPlayer) Option {
	return func(m *Manager) {
		m.player = player
	}
}

// WithTimer sets how the shared timer is created. Without it the Manager has
// no timer and alarms never fire.
func WithTimer(newTimer TimerFunc) Option {
	return func(m *Manager) {
		m.newTimer = newTimer
	}
}

// WithNotificationDuration sets how long the display shows a fired alarm.
func WithNotificationDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.showFor = d
		}
	}
}

// NewManager loads the alarms in store and arms the timer for the earliest
// one. A timer that can't be created is logged; the Manager then serves
// every operation but never fires.
func NewManager(store *Store, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		now:      time.Now,
		logger:   slog.Default(),
		metrics:  NoopMetrics{},
		executor: goExecutor{},
		showFor:  DefaultNotificationDuration,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.alarms, m.nextID = store.Load()
	m.logger.Info("loaded alarms", slog.Int("count", len(m.alarms)), slog.Int("next_id", m.nextID))

	if m.newTimer != nil {
		timer, err := m.newTimer(m.onTimer)
		if err != nil {
			m.logger.Error("failed to create scheduler timer", slog.String("error", err.Error()))
			m.metrics.TimerError("create")
		} else {
			m.timer = timer
		}
	} else {
		m.logger.Debug("no scheduler timer configured, alarms will not fire")
	}
	m.rearmLocked()
	return m
}

// Close disarms and releases the shared timer.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer == nil {
		return nil
	}
	err := m.timer.Close()
	m.timer = nil
	m.armed = false
	return err
}

// Add inserts a and returns its id. An id of zero or less is replaced by the
// next free one; a larger id is accepted as is and moves the allocator past
// it.
func (m *Manager) Add(a Alarm) (int, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	a.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID <= 0 {
		a.ID = m.nextID
		m.nextID++
	} else if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
	m.alarms[a.ID] = a

	// The record goes in before the index that references it.
	m.store.Persist(a)
	m.store.PersistIDs(m.idsLocked())
	m.store.PersistNextID(m.nextID)
	m.commitLocked()
	m.rearmLocked()

	m.logger.Info("alarm added", slog.Int("alarm_id", a.ID), slog.Time("fire_time", a.FireTime))
	return a.ID, nil
}

// Remove deletes the alarm with the given id. It reports false if there is
// no such alarm.
func (m *Manager) Remove(id int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alarms[id]; !ok {
		return false
	}
	delete(m.alarms, id)

	// The index drops the id before its keys go away.
	m.store.PersistIDs(m.idsLocked())
	m.store.Remove(id)
	m.commitLocked()
	m.rearmLocked()

	m.logger.Info("alarm removed", slog.Int("alarm_id", id))
	return true
}

// Update replaces the stored alarm with the same id. It reports false if
// there is no such alarm.
func (m *Manager) Update(a Alarm) (bool, error) {
	if err := a.Validate(); err != nil {
		return false, err
	}
	a.Normalize()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.alarms[a.ID]; !ok {
		return false, nil
	}
	m.alarms[a.ID] = a
	m.store.Persist(a)
	m.commitLocked()
	m.rearmLocked()

	m.logger.Info("alarm updated", slog.Int("alarm_id", a.ID), slog.Time("fire_time", a.FireTime))
	return true, nil
}

// Get returns the alarm with the given id.
func (m *Manager) Get(id int) (Alarm, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.alarms[id]
	return a, ok
}

// List returns every alarm ordered by id.
func (m *Manager) List() []Alarm {
	m.mu.Lock()
	defer m.mu.Unlock()
	alarms := make([]Alarm, 0, len(m.alarms))
	for _, id := range m.idsLocked() {
		alarms = append(alarms, m.alarms[id])
	}
	return alarms
}

// SetFireNotifier registers fn to receive every fired alarm, as it was before
// any repeat rescheduling. It replaces the previous notifier; nil removes it.
func (m *Manager) SetFireNotifier(fn func(Alarm)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifier = fn
}

// NextDeadline returns the deadline the timer is armed for. It reports false
// when no timer is armed.
func (m *Manager) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadline, m.armed
}

func (m *Manager) onTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var due []int
	for _, id := range m.idsLocked() {
		if !m.alarms[id].FireTime.After(now) {
			due = append(due, id)
		}
	}
	if len(due) == 0 {
		m.rearmLocked()
		return
	}

	changed := false
	var removed []int
	for _, id := range due {
		a := m.alarms[id]
		m.dispatchLocked(a)
		m.metrics.AlarmFired(a.Repeat)

		if next := a.Next(now); !next.IsZero() {
			a.FireTime = next
			m.alarms[id] = a
			m.store.Persist(a)
			changed = true
			m.logger.Info("alarm rescheduled", slog.Int("alarm_id", id), slog.Time("fire_time", next))
		} else {
			removed = append(removed, id)
		}
	}

	if len(removed) > 0 {
		for _, id := range removed {
			delete(m.alarms, id)
		}
		m.store.PersistIDs(m.idsLocked())
		for _, id := range removed {
			m.store.Remove(id)
		}
		changed = true
	}
	if changed {
		m.commitLocked()
	}
	m.rearmLocked()
}

// dispatchLocked hands the fire side effects of a to the executor.
func (m *Manager) dispatchLocked(a Alarm) {
	display, player, notifier, showFor := m.display, m.player, m.notifier, m.showFor
	logger := m.logger
	m.logger.Info("alarm fired", slog.Int("alarm_id", a.ID), slog.String("name", a.Label()))
	m.executor.Schedule(func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("fire notification panicked", slog.Int("alarm_id", a.ID), slog.Any("panic", r))
			}
		}()
		if display != nil {
			display.ShowNotification(a.Label(), showFor)
		}
		if player != nil {
			player.PlaySound(a.Sound)
		}
		if notifier != nil {
			notifier(a)
		}
	})
}

func (m *Manager) rearmLocked() {
	m.metrics.AlarmsLive(len(m.alarms))
	if m.timer == nil {
		return
	}
	if m.timer.Armed() {
		if err := m.timer.Disarm(); err != nil {
			m.logger.Error("failed to stop scheduler timer", slog.String("error", err.Error()))
			m.metrics.TimerError("disarm")
		}
	}
	m.armed = false
	m.deadline = time.Time{}

	if len(m.alarms) == 0 {
		m.metrics.TimerDisarmed()
		return
	}

	var next time.Time
	first := true
	for _, a := range m.alarms {
		if first || a.FireTime.Before(next) {
			next = a.FireTime
			first = false
		}
	}

	delay := next.Sub(m.now())
	if delay < minDelay {
		delay = minDelay
	}
	if err := m.timer.Arm(delay); err != nil {
		m.logger.Error("failed to start scheduler timer", slog.String("error", err.Error()))
		m.metrics.TimerError("arm")
		m.metrics.TimerDisarmed()
		return
	}
	m.armed = true
	m.deadline = next
	m.metrics.TimerArmed(next, delay)
	m.logger.Debug("scheduled next alarm", slog.Time("deadline", next), slog.Duration("delay", delay))
}

func (m *Manager) commitLocked() {
	if err := m.store.Commit(); err != nil {
		m.logger.Error("failed to commit alarms", slog.String("error", err.Error()))
		m.metrics.CommitError()
	}
}

func (m *Manager) idsLocked() []int {
	return sortedIDs(m.alarms)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
