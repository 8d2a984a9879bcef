// Package inject provides test doubles whose behavior is injected per method.
package inject

import (
	"context"

	"go.viam.com/coursebot/components/motor"
)

// Motor is an injected motor.
type Motor struct {
	motor.Motor
	name       string
	CountFunc  func(ctx context.Context) (int64, error)
	ResetFunc  func(ctx context.Context) error
	SetPWMFunc func(ctx context.Context, pwm int) error
}

// NewMotor returns a new injected motor.
func NewMotor(name string) *Motor {
	return &Motor{name: name}
}

// Name returns the name of the motor.
func (m *Motor) Name() string {
	return m.name
}

// Count calls the injected Count or the real version.
func (m *Motor) Count(ctx context.Context) (int64, error) {
	if m.CountFunc == nil {
		return m.Motor.Count(ctx)
	}
	return m.CountFunc(ctx)
}

// Reset calls the injected Reset or the real version.
func (m *Motor) Reset(ctx context.Context) error {
	if m.ResetFunc == nil {
		return m.Motor.Reset(ctx)
	}
	return m.ResetFunc(ctx)
}

// SetPWM calls the injected SetPWM or the real version.
func (m *Motor) SetPWM(ctx context.Context, pwm int) error {
	if m.SetPWMFunc == nil {
		return m.Motor.SetPWM(ctx, pwm)
	}
	return m.SetPWMFunc(ctx, pwm)
}
