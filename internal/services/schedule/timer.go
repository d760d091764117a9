// Package schedule runs periodic tasks on independent fixed-delay cadences.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Task is one periodic job. The next run is armed Period after the previous
// run returned, so runs of one task never overlap.
type Task struct {
	Run    func(ctx context.Context) error
	Name   string
	Period time.Duration
}

type Timer struct {
	logger  *zap.Logger
	ctx     context.Context
	stop    chan struct{}
	tasks   []Task
	group   errgroup.Group
	mu      sync.Mutex
	started bool
	cleared bool
}

func New(logger *zap.Logger) *Timer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Timer{logger: logger, stop: make(chan struct{})}
}

// Add registers a task. Tasks without a positive period are ignored; tasks
// added after Start begin immediately.
func (t *Timer) Add(task Task) {
	if task.Period <= 0 || task.Run == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cleared {
		return
	}
	t.tasks = append(t.tasks, task)
	if t.started {
		t.spawn(task)
	}
}

func (t *Timer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}

// Start arms every task. Runs receive ctx; cancelling it stops the loops
// like Clear does. Start is a no-op on a started or cleared timer.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.cleared {
		return
	}
	t.started = true
	t.ctx = ctx
	for _, task := range t.tasks {
		t.spawn(task)
	}
}

// Clear cancels every pending firing. Runs already in progress finish.
func (t *Timer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cleared {
		return
	}
	t.cleared = true
	close(t.stop)
}

// Wait blocks until every task loop has exited.
func (t *Timer) Wait() error {
	return t.group.Wait()
}

func (t *Timer) spawn(task Task) {
	ctx := t.ctx
	t.logger.Debug("task armed", zap.Stringer("task", task))
	t.group.Go(func() error {
		t.loop(ctx, task)
		return nil
	})
}

func (t *Timer) loop(ctx context.Context, task Task) {
	timer := time.NewTimer(task.Period)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-timer.C:
		}
		// select picks randomly when stop and the timer are both ready.
		if t.stopped(ctx) {
			return
		}
		t.runOnce(ctx, task)
		if t.stopped(ctx) {
			return
		}
		timer.Reset(task.Period)
	}
}

func (t *Timer) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-t.stop:
		return true
	default:
		return false
	}
}

func (t *Timer) runOnce(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("scheduled task panicked", zap.String("task", task.Name), zap.Any("panic", r))
		}
	}()
	if err := task.Run(ctx); err != nil {
		t.logger.Warn("scheduled task failed", zap.String("task", task.Name), zap.Error(err))
	}
}

func (t Task) String() string {
	return fmt.Sprintf("%s every %s", t.Name, t.Period)
}
