package mem

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"bsid.es/alarmclock"
)

var _ alarmclock.Executor = (*Dispatcher)(nil)

// Dispatcher runs scheduled tasks one at a time on a worker goroutine, in
// the order they were scheduled. Schedule never blocks: the queue is
// unbounded.
type Dispatcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []func()
	started bool

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		cancel: func() {},
	}
}

// Run starts the worker. Tasks scheduled before Run are kept and run first.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return errors.New("mem: dispatcher already running")
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	go d.run(ctx)
	return nil
}

// Interrupt stops the worker after the task in progress and waits for it.
// Queued tasks are dropped.
func (d *Dispatcher) Interrupt() error {
	d.mu.Lock()
	started, cancel := d.started, d.cancel
	d.mu.Unlock()
	if !started {
		return nil
	}
	cancel()
	<-d.done
	return nil
}

func (d *Dispatcher) Schedule(task func()) {
	d.mu.Lock()
	d.queue = append(d.queue, task)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		for {
			if ctx.Err() != nil {
				return
			}
			task, ok := d.next()
			if !ok {
				break
			}
			d.runTask(task)
		}

		select {
		case <-ctx.Done():
			if n := d.Pending(); n > 0 {
				d.logger.Warn("dropping queued tasks", slog.Int("count", n))
			}
			return
		case <-d.wake:
		}
	}
}

func (d *Dispatcher) next() (func(), bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return nil, false
	}
	task := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	return task, true
}

func (d *Dispatcher) runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("task panicked", slog.Any("panic", r))
		}
	}()
	task()
}
