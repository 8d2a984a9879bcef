package fake

import (
	"context"
	"testing"

	"go.viam.com/test"

	"go.viam.com/coursebot/components/sensor"
)

func TestSonarQueue(t *testing.T) {
	ctx := context.Background()
	s := NewSonar()
	d, err := s.Distance(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldEqual, sensor.SonarOutOfRange)

	s.Queue(100, 5)
	d, _ = s.Distance(ctx)
	test.That(t, d, test.ShouldEqual, 100)
	d, _ = s.Distance(ctx)
	test.That(t, d, test.ShouldEqual, 5)
	// the last queued reading is held
	d, _ = s.Distance(ctx)
	test.That(t, d, test.ShouldEqual, 5)

	s.Queue(1, 2)
	s.Set(30)
	d, _ = s.Distance(ctx)
	test.That(t, d, test.ShouldEqual, 30)
}

func TestGyro(t *testing.T) {
	ctx := context.Background()
	g := &Gyro{}
	g.Set(12, -3)
	test.That(t, g.SetOffset(ctx, 2), test.ShouldBeNil)
	a, err := g.Angle(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, a, test.ShouldEqual, 10)
	v, err := g.AngularVelocity(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldEqual, -3)

	test.That(t, g.Reset(ctx), test.ShouldBeNil)
	test.That(t, g.Resets(), test.ShouldEqual, 1)
	a, _ = g.Angle(ctx)
	test.That(t, a, test.ShouldEqual, -2)
}

func TestColorAndTouch(t *testing.T) {
	ctx := context.Background()
	c := &Color{}
	c.Set(sensor.RGB{R: 10, G: 20, B: 30})
	c.SetBrightness(7)
	rgb, err := c.RawColor(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rgb.Sum(), test.ShouldEqual, 60)
	b, err := c.Brightness(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b, test.ShouldEqual, 7)

	ts := &Touch{}
	p, _ := ts.IsPressed(ctx)
	test.That(t, p, test.ShouldBeFalse)
	ts.Set(true)
	p, _ = ts.IsPressed(ctx)
	test.That(t, p, test.ShouldBeTrue)
}
