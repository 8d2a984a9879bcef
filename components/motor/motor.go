// Package motor defines the encoded drive and arm motors of the robot.
package motor

import (
	"context"
)

// MaxPWM is the largest magnitude accepted by SetPWM.
const MaxPWM = 100

// A Motor is an encoded motor driven by a signed PWM duty.
type Motor interface {
	// Name returns the port name of the motor, used in log lines.
	Name() string

	// Count returns the encoder count in degrees of shaft rotation.
	Count(ctx context.Context) (int64, error)

	// Reset stops the motor and sets its encoder count back to zero.
	Reset(ctx context.Context) error

	// SetPWM sets the duty in [-MaxPWM, MaxPWM]; out of range values are clamped.
	SetPWM(ctx context.Context, pwm int) error
}

// ClampPWM clamps pwm into the accepted duty range.
func ClampPWM(pwm int) int {
	if pwm > MaxPWM {
		return MaxPWM
	}
	if pwm < -MaxPWM {
		return -MaxPWM
	}
	return pwm
}
