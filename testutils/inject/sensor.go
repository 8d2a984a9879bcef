package inject

import (
	"context"

	"go.viam.com/coursebot/components/sensor"
)

// Touch is an injected touch sensor or button.
type Touch struct {
	sensor.Touch
	IsPressedFunc func(ctx context.Context) (bool, error)
}

// IsPressed calls the injected IsPressed or the real version.
func (s *Touch) IsPressed(ctx context.Context) (bool, error) {
	if s.IsPressedFunc == nil {
		return s.Touch.IsPressed(ctx)
	}
	return s.IsPressedFunc(ctx)
}

// Sonar is an injected sonar.
type Sonar struct {
	sensor.Sonar
	DistanceFunc func(ctx context.Context) (int, error)
}

// Distance calls the injected Distance or the real version.
func (s *Sonar) Distance(ctx context.Context) (int, error) {
	if s.DistanceFunc == nil {
		return s.Sonar.Distance(ctx)
	}
	return s.DistanceFunc(ctx)
}

// Gyro is an injected gyro.
type Gyro struct {
	sensor.Gyro
	AngleFunc           func(ctx context.Context) (int, error)
	AngularVelocityFunc func(ctx context.Context) (int, error)
	SetOffsetFunc       func(ctx context.Context, offset int) error
	ResetFunc           func(ctx context.Context) error
}

// Angle calls the injected Angle or the real version.
func (g *Gyro) Angle(ctx context.Context) (int, error) {
	if g.AngleFunc == nil {
		return g.Gyro.Angle(ctx)
	}
	return g.AngleFunc(ctx)
}

// AngularVelocity calls the injected AngularVelocity or the real version.
func (g *Gyro) AngularVelocity(ctx context.Context) (int, error) {
	if g.AngularVelocityFunc == nil {
		return g.Gyro.AngularVelocity(ctx)
	}
	return g.AngularVelocityFunc(ctx)
}

// SetOffset calls the injected SetOffset or the real version.
func (g *Gyro) SetOffset(ctx context.Context, offset int) error {
	if g.SetOffsetFunc == nil {
		return g.Gyro.SetOffset(ctx, offset)
	}
	return g.SetOffsetFunc(ctx, offset)
}

// Reset calls the injected Reset or the real version.
func (g *Gyro) Reset(ctx context.Context) error {
	if g.ResetFunc == nil {
		return g.Gyro.Reset(ctx)
	}
	return g.ResetFunc(ctx)
}

// Color is an injected color sensor.
type Color struct {
	sensor.Color
	RawColorFunc   func(ctx context.Context) (sensor.RGB, error)
	BrightnessFunc func(ctx context.Context) (int, error)
}

// RawColor calls the injected RawColor or the real version.
func (c *Color) RawColor(ctx context.Context) (sensor.RGB, error) {
	if c.RawColorFunc == nil {
		return c.Color.RawColor(ctx)
	}
	return c.RawColorFunc(ctx)
}

// Brightness calls the injected Brightness or the real version.
func (c *Color) Brightness(ctx context.Context) (int, error) {
	if c.BrightnessFunc == nil {
		return c.Color.Brightness(ctx)
	}
	return c.BrightnessFunc(ctx)
}
