// Package fake implements settable in-memory sensors.
package fake

import (
	"context"
	"sync"

	"go.viam.com/coursebot/components/sensor"
)

var (
	_ = sensor.Touch(&Touch{})
	_ = sensor.Button(&Touch{})
	_ = sensor.Sonar(&Sonar{})
	_ = sensor.Gyro(&Gyro{})
	_ = sensor.Color(&Color{})
)

// Touch is a fake touch sensor or button.
type Touch struct {
	mu      sync.Mutex
	pressed bool
}

// IsPressed returns the last value set.
func (s *Touch) IsPressed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pressed, nil
}

// Set presses or releases the sensor.
func (s *Touch) Set(pressed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = pressed
}

// Sonar is a fake sonar. Queued readings are returned one per call, after which
// the last set distance is held.
type Sonar struct {
	mu       sync.Mutex
	distance int
	queue    []int
}

// NewSonar returns a sonar that sees nothing.
func NewSonar() *Sonar {
	return &Sonar{distance: sensor.SonarOutOfRange}
}

// Distance returns the next queued reading or the held distance.
func (s *Sonar) Distance(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) > 0 {
		s.distance = s.queue[0]
		s.queue = s.queue[1:]
	}
	return s.distance, nil
}

// Set holds distance, dropping any queued readings.
func (s *Sonar) Set(distance int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distance = distance
	s.queue = nil
}

// Queue appends readings to be returned in order.
func (s *Sonar) Queue(distances ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, distances...)
}

// Gyro is a fake gyro. The reported angle is the set angle minus the offset.
type Gyro struct {
	mu       sync.Mutex
	angle    int
	velocity int
	offset   int
	resets   int
}

// Angle returns the tilt angle.
func (g *Gyro) Angle(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.angle - g.offset, nil
}

// AngularVelocity returns the angular velocity.
func (g *Gyro) AngularVelocity(ctx context.Context) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.velocity, nil
}

// SetOffset sets the zero offset.
func (g *Gyro) SetOffset(ctx context.Context, offset int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offset = offset
	return nil
}

// Reset zeroes the angle and the velocity.
func (g *Gyro) Reset(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.angle, g.velocity = 0, 0
	g.resets++
	return nil
}

// Set sets the raw angle and velocity.
func (g *Gyro) Set(angle, velocity int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.angle, g.velocity = angle, velocity
}

// Resets returns how many times Reset was called.
func (g *Gyro) Resets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets
}

// Color is a fake color sensor.
type Color struct {
	mu         sync.Mutex
	rgb        sensor.RGB
	brightness int
}

// RawColor returns the set color.
func (c *Color) RawColor(ctx context.Context) (sensor.RGB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rgb, nil
}

// Brightness returns the set brightness.
func (c *Color) Brightness(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.brightness, nil
}

// Set sets the raw color.
func (c *Color) Set(rgb sensor.RGB) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rgb = rgb
}

// SetBrightness sets the reflected brightness.
func (c *Color) SetBrightness(brightness int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.brightness = brightness
}
