// Package scheduler runs a single cooperative control loop: a set of tasks
// with independent fixed periods, executed one at a time on one goroutine.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/devon-brazier/rebalancer.v2/internal/logger"
)

// Task is one periodic job. Its period is a multiple of the loop's base tick
// and it re-arms from the scheduled fire time, not the completion time, so
// slow executions do not accumulate drift.
type Task struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context)

	next time.Time
	seq  int
}

// Loop is the timed-event queue. No preemption: a due task waits for the
// running one to finish. Registration order breaks ties when two tasks come
// due at the same instant.
type Loop struct {
	tick  time.Duration
	tasks []*Task

	nowFn   func() time.Time
	sleepFn func(ctx context.Context, d time.Duration) bool
}

func NewLoop(tick time.Duration) (*Loop, error) {
	if tick <= 0 {
		return nil, fmt.Errorf("scheduler: tick must be positive, got %s", tick)
	}
	return &Loop{
		tick:    tick,
		nowFn:   time.Now,
		sleepFn: sleepTimer,
	}, nil
}

// Add registers a task firing every `ticks` base ticks. First fire is one
// full period after Run starts.
func (l *Loop) Add(name string, ticks int, run func(ctx context.Context)) error {
	if ticks <= 0 {
		return fmt.Errorf("scheduler: task %s needs ticks >= 1, got %d", name, ticks)
	}
	if run == nil {
		return fmt.Errorf("scheduler: task %s has no body", name)
	}
	l.tasks = append(l.tasks, &Task{
		Name:   name,
		Period: time.Duration(ticks) * l.tick,
		Run:    run,
		seq:    len(l.tasks),
	})
	return nil
}

// Run drives the loop until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	if len(l.tasks) == 0 {
		return fmt.Errorf("scheduler: no tasks registered")
	}
	start := l.nowFn()
	for _, t := range l.tasks {
		t.next = start.Add(t.Period)
		logger.Infof("scheduler: task %s armed every=%s first=%s", t.Name, t.Period, t.next.Format(time.RFC3339))
	}

	for {
		task := l.nextDue()
		wait := task.next.Sub(l.nowFn())
		if wait > 0 {
			if !l.sleepFn(ctx, wait) {
				logger.Infof("scheduler: ctx done, exit")
				return ctx.Err()
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		started := l.nowFn()
		task.Run(ctx)
		elapsed := l.nowFn().Sub(started)
		if elapsed > task.Period {
			logger.Warnf("scheduler: task %s overran its period (%s > %s)", task.Name, elapsed, task.Period)
		}
		// Re-arm on the original grid. If the loop fell behind, the task
		// fires again promptly until it catches up.
		task.next = task.next.Add(task.Period)
	}
}

// nextDue picks the earliest-armed task; earlier registration wins ties.
func (l *Loop) nextDue() *Task {
	due := l.tasks[0]
	for _, t := range l.tasks[1:] {
		if t.next.Before(due.next) {
			due = t
		}
	}
	return due
}

func sleepTimer(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
