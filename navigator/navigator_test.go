package navigator

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/coursebot/components/motor/fake"
	"go.viam.com/coursebot/control"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/testutils/inject"
)

func newWheels(t *testing.T) (*fake.Motor, *fake.Motor, logging.Logger) {
	t.Helper()
	logger := logging.NewTestLogger(t)
	return fake.NewMotor("left", 0, logger), fake.NewMotor("right", 0, logger), logger
}

func TestChallengeRunnerRampModes(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		mode   RampMode
		dL, dR int
	}{
		{Constant, 0, 0},
		{IncreaseLeft, 1, 0},
		{DecreaseLeft, -1, 0},
		{IncreaseRight, 0, 1},
		{DecreaseRight, 0, -1},
		{IncreaseBoth, 1, 1},
		{DecreaseBoth, -1, -1},
		{IncreaseRightDecreaseLeft, -1, 1},
		{IncreaseLeftDecreaseRight, 1, -1},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			left, right, logger := newWheels(t)
			cr := NewChallengeRunner(left, right, logger)
			cr.SetPwmLR(Ramp(20, 20, tc.mode, 3))

			cr.Operate(ctx)
			cr.Operate(ctx)
			l, r := cr.PWM()
			test.That(t, l, test.ShouldEqual, 20)
			test.That(t, r, test.ShouldEqual, 20)

			cr.Operate(ctx)
			l, r = cr.PWM()
			test.That(t, l, test.ShouldEqual, 20+tc.dL)
			test.That(t, r, test.ShouldEqual, 20+tc.dR)
			test.That(t, left.PWM(), test.ShouldEqual, 20+tc.dL)
			test.That(t, right.PWM(), test.ShouldEqual, 20+tc.dR)

			for i := 0; i < 6; i++ {
				cr.Operate(ctx)
			}
			l, r = cr.PWM()
			test.That(t, l, test.ShouldEqual, 20+3*tc.dL)
			test.That(t, r, test.ShouldEqual, 20+3*tc.dR)
		})
	}
}

func TestChallengeRunnerClampAndReset(t *testing.T) {
	ctx := context.Background()
	left, right, logger := newWheels(t)
	cr := NewChallengeRunner(left, right, logger)
	test.That(t, cr.Name(), test.ShouldEqual, ChallengeRunnerName)

	cr.SetPwmLR(Ramp(99, -99, IncreaseLeftDecreaseRight, 1))
	for i := 0; i < 5; i++ {
		cr.Operate(ctx)
	}
	l, r := cr.PWM()
	test.That(t, l, test.ShouldEqual, 100)
	test.That(t, r, test.ShouldEqual, -100)

	// a new command restarts the counter
	cr.SetPwmLR(Ramp(10, 10, IncreaseBoth, 2))
	cr.Operate(ctx)
	cr.SetPwmLR(Ramp(10, 10, IncreaseBoth, 2))
	cr.Operate(ctx)
	l, _ = cr.PWM()
	test.That(t, l, test.ShouldEqual, 10)
	cr.Operate(ctx)
	l, _ = cr.PWM()
	test.That(t, l, test.ShouldEqual, 11)

	// zero or negative ramp ticks act as one
	cr.SetPwmLR(MotionCommand{Left: 0, Right: 0, Mode: IncreaseLeft})
	cr.Operate(ctx)
	l, _ = cr.PWM()
	test.That(t, l, test.ShouldEqual, 1)
}

func TestChallengeRunnerFreeze(t *testing.T) {
	ctx := context.Background()
	left, right, logger := newWheels(t)
	cr := NewChallengeRunner(left, right, logger)
	cr.SetPwmLR(Straight(30, 30))
	cr.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 30)

	cr.Freeze()
	test.That(t, cr.Frozen(), test.ShouldBeTrue)
	cr.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 0)
	test.That(t, right.PWM(), test.ShouldEqual, 0)

	// the setpoints were zeroed, not just masked
	cr.Unfreeze()
	cr.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 0)

	cr.SetPwmLR(Straight(15, -15))
	cr.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 15)
	test.That(t, right.PWM(), test.ShouldEqual, -15)
}

func TestChallengeRunnerSwallowsMotorErrors(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	left := inject.NewMotor("left")
	left.SetPWMFunc = func(ctx context.Context, pwm int) error { return errors.New("stalled") }
	right := inject.NewMotor("right")
	var gotR int
	right.SetPWMFunc = func(ctx context.Context, pwm int) error {
		gotR = pwm
		return nil
	}
	cr := NewChallengeRunner(left, right, logger)
	cr.SetPwmLR(Straight(5, 7))
	cr.Operate(context.Background())
	test.That(t, gotR, test.ShouldEqual, 7)
	test.That(t, logs.FilterMessage("failed to set pwm").Len(), test.ShouldEqual, 1)
}

func TestMirror(t *testing.T) {
	test.That(t, Ramp(7, 15, DecreaseLeft, 90).Mirror(), test.ShouldResemble, Ramp(15, 7, DecreaseRight, 90))
	test.That(t, Ramp(-10, 12, IncreaseLeftDecreaseRight, 100).Mirror(),
		test.ShouldResemble, Ramp(12, -10, IncreaseRightDecreaseLeft, 100))
	test.That(t, Ramp(43, 40, DecreaseBoth, 20).Mirror(), test.ShouldResemble, Ramp(40, 43, DecreaseBoth, 20))
	test.That(t, Straight(1, 2).String(), test.ShouldEqual, "(1, 2, constant, 1)")
	test.That(t, RampMode(42).String(), test.ShouldEqual, "ramp_mode(42)")
}

func TestAuthority(t *testing.T) {
	ctx := context.Background()
	left, right, logger := newWheels(t)
	a := NewAuthority(logger)
	test.That(t, a.Active(), test.ShouldBeNil)
	a.Operate(ctx)

	cr := NewChallengeRunner(left, right, logger)
	br := NewBlindRunner(left, right, 40, logger)
	cr.SetPwmLR(Straight(10, 10))

	a.HaveControl(br)
	test.That(t, a.Active(), test.ShouldEqual, br)
	a.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 40)

	a.HaveControl(cr)
	a.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 10)

	a.Release()
	test.That(t, a.Active(), test.ShouldBeNil)
}

func TestBlindRunner(t *testing.T) {
	ctx := context.Background()
	left, right, logger := newWheels(t)
	br := NewBlindRunner(left, right, 30, logger)
	test.That(t, br.Name(), test.ShouldEqual, BlindRunnerName)
	br.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 30)
	test.That(t, right.PWM(), test.ShouldEqual, 30)

	br.SetPwmLR(Straight(20, 25))
	br.Freeze()
	br.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 0)
	br.Unfreeze()
	br.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 20)
	test.That(t, right.PWM(), test.ShouldEqual, 25)
}

type staticLine struct {
	reading LineReading
}

func (s *staticLine) LineReading() LineReading {
	return s.reading
}

func tracerConfig() LineTracerConfig {
	return LineTracerConfig{
		Speed:            30,
		GrayScaleTarget:  50,
		BrightnessTarget: 20,
		BrightnessGain:   1,
		PID:              control.PIDConfig{Kp: 0.5, IntegralLimit: 10, OutputLimit: 20},
	}
}

func TestLineTracer(t *testing.T) {
	ctx := context.Background()
	left, right, logger := newWheels(t)
	line := &staticLine{reading: LineReading{GrayScale: 70, Brightness: 10}}

	_, err := NewLineTracer(left, right, line, tracerConfig(), 0, false, logger)
	test.That(t, err, test.ShouldNotBeNil)
	bad := tracerConfig()
	bad.Speed = 200
	_, err = NewLineTracer(left, right, line, bad, time.Millisecond, false, logger)
	test.That(t, err, test.ShouldNotBeNil)

	lt, err := NewLineTracer(left, right, line, tracerConfig(), 10*time.Millisecond, false, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, lt.Mode(), test.ShouldEqual, TracePID)

	// too white on the left edge steers right
	lt.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 40)
	test.That(t, right.PWM(), test.ShouldEqual, 20)

	lt.SetMode(TraceP)
	test.That(t, lt.Mode().String(), test.ShouldEqual, "p")
	lt.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 20)
	test.That(t, right.PWM(), test.ShouldEqual, 40)

	lt.SetPwmLR(Straight(10, 20))
	line.reading.Brightness = 20
	lt.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 15)
	test.That(t, right.PWM(), test.ShouldEqual, 15)

	lt.Freeze()
	lt.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 0)
	lt.Unfreeze()
	test.That(t, lt.Frozen(), test.ShouldBeFalse)

	mirrored, err := NewLineTracer(left, right, line, tracerConfig(), 10*time.Millisecond, true, logger)
	test.That(t, err, test.ShouldBeNil)
	mirrored.Operate(ctx)
	test.That(t, left.PWM(), test.ShouldEqual, 20)
	test.That(t, right.PWM(), test.ShouldEqual, 40)
}

func TestDefaultLineTracerConfig(t *testing.T) {
	test.That(t, DefaultLineTracerConfig().Validate(), test.ShouldBeNil)
}
