// Package navigator implements the motion controllers that drive the wheels
// every tick, and the authority deciding which one of them is in charge.
package navigator

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/logging"
)

// A Navigator turns its current setpoints into wheel duties once per tick.
type Navigator interface {
	Name() string
	// Operate writes one tick of output to the wheels.
	Operate(ctx context.Context)
	// Freeze forces zero output until Unfreeze.
	Freeze()
	Unfreeze()
	Frozen() bool
	SetPwmLR(cmd MotionCommand)
}

// Authority holds the navigator currently allowed to drive the wheels.
type Authority struct {
	mu     sync.Mutex
	active Navigator
	logger logging.Logger
}

// NewAuthority returns an authority with no active navigator.
func NewAuthority(logger logging.Logger) *Authority {
	return &Authority{logger: logger}
}

// HaveControl makes n the only navigator whose output reaches the wheels.
func (a *Authority) HaveControl(n Navigator) {
	a.mu.Lock()
	a.active = n
	a.mu.Unlock()
	a.logger.Infow("navigator has control", "navigator", n.Name())
}

// Release drops the active navigator.
func (a *Authority) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = nil
}

// Active returns the navigator in control, or nil.
func (a *Authority) Active() Navigator {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Operate runs one tick of the active navigator.
func (a *Authority) Operate(ctx context.Context) {
	if n := a.Active(); n != nil {
		n.Operate(ctx)
	}
}

// wheels is the shared output stage of every navigator.
type wheels struct {
	name   string
	left   motor.Motor
	right  motor.Motor
	logger logging.Logger
	frozen atomic.Bool
}

func (w *wheels) Name() string {
	return w.name
}

func (w *wheels) Frozen() bool {
	return w.frozen.Load()
}

func (w *wheels) drive(ctx context.Context, pwmL, pwmR int) {
	if err := w.left.SetPWM(ctx, motor.ClampPWM(pwmL)); err != nil {
		w.logger.Debugw("failed to set pwm", "motor", w.left.Name(), "error", err)
	}
	if err := w.right.SetPWM(ctx, motor.ClampPWM(pwmR)); err != nil {
		w.logger.Debugw("failed to set pwm", "motor", w.right.Name(), "error", err)
	}
}
