// Package eventloop runs tab events and their continuations one at a time
// on a single goroutine.
//
// A task may hand blocking work to Await. The work runs on its own
// goroutine and its continuation is queued as a new task, so events queued
// in the meantime (a tab removal, say) run before the continuation does.
package eventloop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"

	"github.com/entrhq/stylebot/pkg/logging"
)

var debugLog = logging.NewLogger("eventloop")

// ErrStopped is returned by Post once the loop is stopping.
var ErrStopped = errors.New("event loop stopped")

// Task is a unit of work run on the loop goroutine.
type Task func(ctx context.Context)

// Loop is a single-goroutine task queue. Tasks never run concurrently with
// each other.
type Loop struct {
	mu       sync.Mutex
	queue    []Task
	inflight int
	stopping bool
	running  bool

	wake chan struct{}
	done chan struct{}
}

// New creates a loop. Call Run to start processing.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post queues task. It never blocks.
func (l *Loop) Post(task Task) error {
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return ErrStopped
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()
	l.signal()
	return nil
}

// Await runs fn off the loop and queues cont with its result. It must be
// called from a task; cont runs on the loop even while the loop is
// draining for Stop.
func Await[T any](ctx context.Context, l *Loop, fn func(ctx context.Context) (T, error), cont func(ctx context.Context, value T, err error)) {
	l.mu.Lock()
	l.inflight++
	l.mu.Unlock()

	go func() {
		value, err := runAwaited(ctx, fn)

		l.mu.Lock()
		l.queue = append(l.queue, func(ctx context.Context) { cont(ctx, value, err) })
		l.inflight--
		l.mu.Unlock()
		l.signal()
	}()
}

func runAwaited[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			debugLog.Errorf("Awaited work panicked: %v\n%s", p, debug.Stack())
			err = errors.New("awaited work panicked")
		}
	}()
	return fn(ctx)
}

// Run processes tasks until Stop has been called and the queue and all
// awaited work have drained, or until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("event loop already running")
	}
	l.running = true
	l.mu.Unlock()
	defer close(l.done)

	for {
		task, ok := l.next()
		if ok {
			l.runTask(ctx, task)
			continue
		}

		l.mu.Lock()
		finished := l.stopping && l.inflight == 0 && len(l.queue) == 0
		l.mu.Unlock()
		if finished {
			debugLog.Debugf("Event loop drained")
			return nil
		}

		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stop rejects new posts and waits for Run to drain the queue. It returns
// immediately if the loop was never started.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopping = true
	running := l.running
	l.mu.Unlock()
	l.signal()

	if running {
		<-l.done
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) runTask(ctx context.Context, task Task) {
	defer func() {
		if p := recover(); p != nil {
			debugLog.Errorf("Task panicked: %v\n%s", p, debug.Stack())
		}
	}()
	task(ctx)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
