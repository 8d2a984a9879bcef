package statemachine

import (
	"context"
	"time"
)

// An action is one entry of an executor program: either a wait or a call.
type action struct {
	wait time.Duration
	do   func(ctx context.Context)
}

func call(do func(ctx context.Context)) action {
	return action{do: do}
}

func pause(d time.Duration) action {
	return action{wait: d}
}

// executor runs a program of calls separated by waits. It never blocks: each
// advance runs calls until it meets a wait that has not elapsed yet.
type executor struct {
	program  []action
	next     int
	resumeAt time.Time
}

func newExecutor(program []action) *executor {
	return &executor{program: program}
}

// advance runs the program as far as now allows and reports whether it is still running.
func (e *executor) advance(ctx context.Context, now time.Time) bool {
	if now.Before(e.resumeAt) {
		return true
	}
	for e.next < len(e.program) {
		a := e.program[e.next]
		e.next++
		if a.do != nil {
			a.do(ctx)
			continue
		}
		if a.wait > 0 {
			e.resumeAt = now.Add(a.wait)
			return true
		}
	}
	return false
}

// remaining returns the time left on the wait in progress.
func (e *executor) remaining(now time.Time) time.Duration {
	if now.Before(e.resumeAt) {
		return e.resumeAt.Sub(now)
	}
	return 0
}
