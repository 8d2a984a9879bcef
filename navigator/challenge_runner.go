package navigator

import (
	"context"
	"sync"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/utils"
)

// ChallengeRunnerName is the name the challenge runner reports.
const ChallengeRunnerName = "ChallengeRunner"

var _ Navigator = &ChallengeRunner{}

// A ChallengeRunner replays open-loop motion commands, ramping the duties by
// one every RampTicks ticks according to the command's mode.
type ChallengeRunner struct {
	wheels

	mu        sync.Mutex
	pwmL      int
	pwmR      int
	mode      RampMode
	procCount int
	count     int
}

// NewChallengeRunner returns a stopped challenge runner.
func NewChallengeRunner(left, right motor.Motor, logger logging.Logger) *ChallengeRunner {
	return &ChallengeRunner{
		wheels:    wheels{name: ChallengeRunnerName, left: left, right: right, logger: logger},
		mode:      Constant,
		procCount: 1,
	}
}

// SetPwmLR replaces the setpoints and restarts the ramp counter.
func (c *ChallengeRunner) SetPwmLR(cmd MotionCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pwmL = int(cmd.Left)
	c.pwmR = int(cmd.Right)
	c.mode = cmd.Mode
	c.procCount = cmd.RampTicks
	if c.procCount < 1 {
		c.procCount = 1
	}
	c.count = 0
	c.logger.Debugw("setPwmLR", "command", cmd.String())
}

// Freeze zeroes the setpoints and holds the wheels still.
func (c *ChallengeRunner) Freeze() {
	c.frozen.Store(true)
}

// Unfreeze resumes ramping from whatever the setpoints are now.
func (c *ChallengeRunner) Unfreeze() {
	c.frozen.Store(false)
}

// PWM returns the current left and right setpoints.
func (c *ChallengeRunner) PWM() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pwmL, c.pwmR
}

// Operate advances the ramp by one tick and drives the wheels.
func (c *ChallengeRunner) Operate(ctx context.Context) {
	c.mu.Lock()
	if c.frozen.Load() {
		c.pwmL, c.pwmR = 0, 0
	} else if c.mode != Constant {
		c.count++
		if c.count == c.procCount {
			dL, dR := c.mode.deltas()
			c.pwmL = utils.ClampInt(c.pwmL+dL, -motor.MaxPWM, motor.MaxPWM)
			c.pwmR = utils.ClampInt(c.pwmR+dR, -motor.MaxPWM, motor.MaxPWM)
			c.count = 0
		}
	}
	pwmL, pwmR := c.pwmL, c.pwmR
	c.mu.Unlock()
	c.drive(ctx, pwmL, pwmR)
}
