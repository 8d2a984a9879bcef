// Package sensor defines the touch, sonar, gyro, color and button sensors the
// observer reads every tick.
package sensor

import (
	"context"
)

// SonarOutOfRange is the distance reported when nothing is within sonar range.
const SonarOutOfRange = 255

// RGB is a raw or filtered color reading, each channel nominally in [0, 255].
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Sum returns r+g+b.
func (c RGB) Sum() int {
	return c.R + c.G + c.B
}

// A Touch sensor reports whether it is pressed.
type Touch interface {
	IsPressed(ctx context.Context) (bool, error)
}

// A Button is a hub button, reported the same way as a touch sensor.
type Button interface {
	IsPressed(ctx context.Context) (bool, error)
}

// A Sonar reports the distance to the nearest obstacle in cm. SonarOutOfRange
// means no obstacle.
type Sonar interface {
	Distance(ctx context.Context) (int, error)
}

// A Gyro reports the body tilt angle in degrees and angular velocity in degrees per second.
type Gyro interface {
	Angle(ctx context.Context) (int, error)
	AngularVelocity(ctx context.Context) (int, error)
	SetOffset(ctx context.Context, offset int) error
	Reset(ctx context.Context) error
}

// A Color sensor reports raw RGB and reflected brightness.
type Color interface {
	RawColor(ctx context.Context) (RGB, error)
	Brightness(ctx context.Context) (int, error)
}
