package fake

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/coursebot/logging"
)

func TestMotor(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewTestLogger(t)
	m := NewMotor("left", 360, logger)
	test.That(t, m.Name(), test.ShouldEqual, "left")

	t.Run("clamps pwm", func(t *testing.T) {
		test.That(t, m.SetPWM(ctx, 150), test.ShouldBeNil)
		test.That(t, m.PWM(), test.ShouldEqual, 100)
		test.That(t, m.SetPWM(ctx, -150), test.ShouldBeNil)
		test.That(t, m.PWM(), test.ShouldEqual, -100)
	})

	t.Run("advance integrates duty", func(t *testing.T) {
		test.That(t, m.Reset(ctx), test.ShouldBeNil)
		test.That(t, m.SetPWM(ctx, 50), test.ShouldBeNil)
		m.Advance(2 * time.Second)
		count, err := m.Count(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, count, test.ShouldEqual, 360)

		test.That(t, m.SetPWM(ctx, -25), test.ShouldBeNil)
		m.Advance(time.Second)
		count, err = m.Count(ctx)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, count, test.ShouldEqual, 270)
	})

	t.Run("reset", func(t *testing.T) {
		m.SetPosition(42)
		count, _ := m.Count(ctx)
		test.That(t, count, test.ShouldEqual, 42)
		test.That(t, m.Reset(ctx), test.ShouldBeNil)
		count, _ = m.Count(ctx)
		test.That(t, count, test.ShouldEqual, 0)
		test.That(t, m.PWM(), test.ShouldEqual, 0)
	})

	t.Run("background loop", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		test.That(t, m.SetPWM(ctx, 100), test.ShouldBeNil)
		m.Start(cancelCtx, time.Millisecond)
		testutils.WaitForAssertion(t, func(tb testing.TB) {
			tb.Helper()
			count, err := m.Count(ctx)
			test.That(tb, err, test.ShouldBeNil)
			test.That(tb, count, test.ShouldBeGreaterThan, 0)
		})
		cancel()
		m.Stop()
	})
}

func TestDefaultSpeed(t *testing.T) {
	m := NewMotor("arm", 0, logging.NewTestLogger(t))
	test.That(t, m.SetPWM(context.Background(), 100), test.ShouldBeNil)
	m.Advance(time.Second)
	count, err := m.Count(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, DefaultDegreesPerSecond)
}
