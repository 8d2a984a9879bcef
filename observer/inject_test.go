package observer

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"

	fakemotor "go.viam.com/coursebot/components/motor/fake"
	"go.viam.com/coursebot/components/sensor"
	fakesensor "go.viam.com/coursebot/components/sensor/fake"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/testutils/inject"
)

type injectedRig struct {
	left  *inject.Motor
	sonar *inject.Sonar
	gyro  *inject.Gyro
	color *inject.Color
	hw    Hardware
}

func newInjectedRig(logger logging.Logger) *injectedRig {
	left := inject.NewMotor("B")
	left.Motor = fakemotor.NewMotor("B", 0, logger)
	r := &injectedRig{
		left:  left,
		sonar: &inject.Sonar{Sonar: fakesensor.NewSonar()},
		gyro:  &inject.Gyro{Gyro: &fakesensor.Gyro{}},
		color: &inject.Color{Color: &fakesensor.Color{}},
	}
	r.hw = Hardware{
		Left:  r.left,
		Right: fakemotor.NewMotor("C", 0, logger),
		Arm:   fakemotor.NewMotor("A", 0, logger),
		Touch: &fakesensor.Touch{},
		Sonar: r.sonar,
		Gyro:  r.gyro,
		Color: r.color,
		Back:  &fakesensor.Touch{},
	}
	return r
}

func TestNewFailsOnGyroOffset(t *testing.T) {
	logger := logging.NewTestLogger(t)
	r := newInjectedRig(logger)
	r.gyro.SetOffsetFunc = func(ctx context.Context, offset int) error {
		return errors.New("gyro unplugged")
	}
	_, err := New(context.Background(), DefaultConfig(), r.hw, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to clear gyro offset")
	test.That(t, err.Error(), test.ShouldContainSubstring, "gyro unplugged")
}

func TestFailedReadsKeepLastValue(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	r := newInjectedRig(logger)
	clk := clock.NewMock()
	obs, err := New(context.Background(), DefaultConfig(), r.hw, clk, logger)
	test.That(t, err, test.ShouldBeNil)

	r.sonar.DistanceFunc = func(ctx context.Context) (int, error) { return 42, nil }
	r.gyro.AngleFunc = func(ctx context.Context) (int, error) { return 7, nil }
	r.left.CountFunc = func(ctx context.Context) (int64, error) { return 100, nil }
	clk.Add(10 * time.Millisecond)
	obs.Operate(context.Background())
	frame := obs.Frame()
	test.That(t, frame.Sonar, test.ShouldEqual, 42)
	test.That(t, frame.Angle, test.ShouldEqual, 7)

	fail := errors.New("bus timeout")
	r.sonar.DistanceFunc = func(ctx context.Context) (int, error) { return 0, fail }
	r.gyro.AngleFunc = func(ctx context.Context) (int, error) { return 0, fail }
	r.left.CountFunc = func(ctx context.Context) (int64, error) { return 0, fail }
	r.color.RawColorFunc = func(ctx context.Context) (sensor.RGB, error) { return sensor.RGB{}, fail }
	clk.Add(10 * time.Millisecond)
	obs.Operate(context.Background())

	after := obs.Frame()
	test.That(t, after.Sonar, test.ShouldEqual, 42)
	test.That(t, after.Angle, test.ShouldEqual, 7)
	test.That(t, after.RGB, test.ShouldResemble, frame.RGB)
	test.That(t, after.Pose, test.ShouldResemble, frame.Pose)
	test.That(t, logs.FilterMessage("failed to read sonar").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("failed to read gyro angle").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("failed to read encoder").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("failed to read color").Len(), test.ShouldEqual, 1)
}
