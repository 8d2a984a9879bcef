package navigator

import (
	"context"
	"sync"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/logging"
)

// BlindRunnerName is the name the blind runner reports.
const BlindRunnerName = "BlindRunner"

var _ Navigator = &BlindRunner{}

// A BlindRunner drives at constant duties without looking at the line.
type BlindRunner struct {
	wheels

	mu   sync.Mutex
	pwmL int
	pwmR int
}

// NewBlindRunner returns a blind runner that will drive at the given duty.
func NewBlindRunner(left, right motor.Motor, speed int, logger logging.Logger) *BlindRunner {
	return &BlindRunner{
		wheels: wheels{name: BlindRunnerName, left: left, right: right, logger: logger},
		pwmL:   speed,
		pwmR:   speed,
	}
}

// SetPwmLR sets the duties; ramping is not supported.
func (b *BlindRunner) SetPwmLR(cmd MotionCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pwmL, b.pwmR = int(cmd.Left), int(cmd.Right)
}

// Freeze holds the wheels still.
func (b *BlindRunner) Freeze() {
	b.frozen.Store(true)
}

// Unfreeze resumes the set duties.
func (b *BlindRunner) Unfreeze() {
	b.frozen.Store(false)
}

// Operate drives the wheels at the set duties, or zero while frozen.
func (b *BlindRunner) Operate(ctx context.Context) {
	if b.frozen.Load() {
		b.drive(ctx, 0, 0)
		return
	}
	b.mu.Lock()
	pwmL, pwmR := b.pwmL, b.pwmR
	b.mu.Unlock()
	b.drive(ctx, pwmL, pwmR)
}
