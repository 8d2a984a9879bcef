// Package fake implements a fake motor with a simulated encoder.
package fake

import (
	"context"
	"sync"
	"time"

	"go.viam.com/utils"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/logging"
)

// DefaultDegreesPerSecond is the shaft speed at full duty when none is configured.
const DefaultDegreesPerSecond = 900

var _ motor.Motor = &Motor{}

// A Motor integrates its PWM duty into an encoder count.
type Motor struct {
	name   string
	logger logging.Logger

	mu               sync.Mutex
	pwm              int
	position         float64
	degreesPerSecond float64

	activeBackgroundWorkers sync.WaitGroup
}

// NewMotor returns a stopped fake motor. degreesPerSecond is the shaft speed at
// full duty; zero selects DefaultDegreesPerSecond.
func NewMotor(name string, degreesPerSecond float64, logger logging.Logger) *Motor {
	if degreesPerSecond == 0 {
		degreesPerSecond = DefaultDegreesPerSecond
	}
	return &Motor{name: name, logger: logger, degreesPerSecond: degreesPerSecond}
}

// Name returns the motor name.
func (m *Motor) Name() string {
	return m.name
}

// Count returns the current encoder count.
func (m *Motor) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(m.position), nil
}

// Reset zeroes the duty and the encoder.
func (m *Motor) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pwm = 0
	m.position = 0
	return nil
}

// SetPWM sets the duty.
func (m *Motor) SetPWM(ctx context.Context, pwm int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pwm = motor.ClampPWM(pwm)
	return nil
}

// PWM returns the last duty set.
func (m *Motor) PWM() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pwm
}

// SetPosition overrides the encoder count.
func (m *Motor) SetPosition(position int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = float64(position)
}

// Advance integrates the current duty over dt.
func (m *Motor) Advance(dt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position += m.degreesPerSecond * float64(m.pwm) / motor.MaxPWM * dt.Seconds()
}

// Start runs a background loop that advances the encoder every updateRate
// until ctx is done. Stop waits for it.
func (m *Motor) Start(ctx context.Context, updateRate time.Duration) {
	if updateRate <= 0 {
		updateRate = 10 * time.Millisecond
	}
	m.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		for {
			if !utils.SelectContextOrWait(ctx, updateRate) {
				return
			}
			m.Advance(updateRate)
		}
	}, m.activeBackgroundWorkers.Done)
	m.logger.Debugw("fake motor started", "motor", m.name, "update_rate", updateRate)
}

// Stop waits for the background loop started by Start to return.
func (m *Motor) Stop() {
	m.activeBackgroundWorkers.Wait()
}
