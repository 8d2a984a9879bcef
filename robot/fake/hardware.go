// Package fake assembles a complete simulated hardware set for a robot.
package fake

import (
	"context"
	"time"

	fakemotor "go.viam.com/coursebot/components/motor/fake"
	"go.viam.com/coursebot/components/sensor"
	fakesensor "go.viam.com/coursebot/components/sensor/fake"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/observer"
)

// Hardware holds the fakes behind an observer.Hardware so tests and the
// simulator can set sensor readings directly.
type Hardware struct {
	Left  *fakemotor.Motor
	Right *fakemotor.Motor
	Arm   *fakemotor.Motor
	Touch *fakesensor.Touch
	Back  *fakesensor.Touch
	Sonar *fakesensor.Sonar
	Gyro  *fakesensor.Gyro
	Color *fakesensor.Color
}

// NewHardware returns idle fakes on the usual ports, over a gray mat with nothing in sonar range.
func NewHardware(logger logging.Logger) *Hardware {
	hw := &Hardware{
		Left:  fakemotor.NewMotor("B", 0, logger.Sublogger("left")),
		Right: fakemotor.NewMotor("C", 0, logger.Sublogger("right")),
		Arm:   fakemotor.NewMotor("A", 0, logger.Sublogger("arm")),
		Touch: &fakesensor.Touch{},
		Back:  &fakesensor.Touch{},
		Sonar: fakesensor.NewSonar(),
		Gyro:  &fakesensor.Gyro{},
		Color: &fakesensor.Color{},
	}
	hw.Color.Set(sensor.RGB{R: 60, G: 60, B: 60})
	return hw
}

// Observer returns the hardware in the form the observer reads it.
func (hw *Hardware) Observer() observer.Hardware {
	return observer.Hardware{
		Left:  hw.Left,
		Right: hw.Right,
		Arm:   hw.Arm,
		Touch: hw.Touch,
		Sonar: hw.Sonar,
		Gyro:  hw.Gyro,
		Color: hw.Color,
		Back:  hw.Back,
	}
}

// Start moves the motor encoders along with their duties in real time.
func (hw *Hardware) Start(ctx context.Context, updateRate time.Duration) {
	for _, m := range []*fakemotor.Motor{hw.Left, hw.Right, hw.Arm} {
		m.Start(ctx, updateRate)
	}
}

// Stop waits for the encoder simulation to end. ctx passed to Start must be done first.
func (hw *Hardware) Stop() {
	for _, m := range []*fakemotor.Motor{hw.Left, hw.Right, hw.Arm} {
		m.Stop()
	}
}

// Advance moves every encoder by dt at its present duty.
func (hw *Hardware) Advance(dt time.Duration) {
	for _, m := range []*fakemotor.Motor{hw.Left, hw.Right, hw.Arm} {
		m.Advance(dt)
	}
}
