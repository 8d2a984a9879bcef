package observer

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	fakemotor "go.viam.com/coursebot/components/motor/fake"
	"go.viam.com/coursebot/components/sensor"
	fakesensor "go.viam.com/coursebot/components/sensor/fake"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/event"
	"go.viam.com/coursebot/logging"
)

type rig struct {
	t        *testing.T
	left     *fakemotor.Motor
	right    *fakemotor.Motor
	arm      *fakemotor.Motor
	touch    *fakesensor.Touch
	back     *fakesensor.Touch
	sonar    *fakesensor.Sonar
	gyro     *fakesensor.Gyro
	color    *fakesensor.Color
	clk      *clock.Mock
	obs      *Observer
	triggers []event.Trigger
}

func newRig(t *testing.T) *rig {
	t.Helper()
	logger := logging.NewTestLogger(t)
	r := &rig{
		t:     t,
		left:  fakemotor.NewMotor("B", 0, logger),
		right: fakemotor.NewMotor("C", 0, logger),
		arm:   fakemotor.NewMotor("A", 0, logger),
		touch: &fakesensor.Touch{},
		back:  &fakesensor.Touch{},
		sonar: fakesensor.NewSonar(),
		gyro:  &fakesensor.Gyro{},
		color: &fakesensor.Color{},
		clk:   clock.NewMock(),
	}
	hw := Hardware{
		Left:  r.left,
		Right: r.right,
		Arm:   r.arm,
		Touch: r.touch,
		Sonar: r.sonar,
		Gyro:  r.gyro,
		Color: r.color,
		Back:  r.back,
	}
	obs, err := New(context.Background(), DefaultConfig(), hw, r.clk, logger)
	test.That(t, err, test.ShouldBeNil)
	obs.SetSink(event.SinkFunc(func(ctx context.Context, trigger event.Trigger) {
		r.triggers = append(r.triggers, trigger)
	}))
	r.obs = obs
	return r
}

// tick advances the clock one period and runs the observer, returning the triggers it raised.
func (r *rig) tick() []event.Trigger {
	r.clk.Add(10 * time.Millisecond)
	before := len(r.triggers)
	r.obs.Operate(context.Background())
	return r.triggers[before:]
}

func (r *rig) ticks(n int) []event.Trigger {
	var out []event.Trigger
	for i := 0; i < n; i++ {
		out = append(out, r.tick()...)
	}
	return out
}

// settle holds color long enough for the filter to converge.
func (r *rig) settle(rgb sensor.RGB) {
	r.color.Set(rgb)
	r.ticks(2 * r.obs.FilterOrder())
}

func only(triggers []event.Trigger, events ...event.Event) []event.Trigger {
	var out []event.Trigger
	for _, t := range triggers {
		for _, e := range events {
			if t.Event == e {
				out = append(out, t)
			}
		}
	}
	return out
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := New(context.Background(), DefaultConfig(), Hardware{}, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing back button")

	cfg := DefaultConfig()
	cfg.Period = 0
	_, err = New(context.Background(), cfg, Hardware{}, clock.NewMock(), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "period")
}

func TestSonarEdges(t *testing.T) {
	r := newRig(t)
	r.sonar.Queue(100, 100, 5, 5, 100)
	var got [][]event.Trigger
	for i := 0; i < 5; i++ {
		got = append(got, only(r.tick(), event.SonarOn, event.SonarOff))
	}
	test.That(t, got[0], test.ShouldBeEmpty)
	test.That(t, got[1], test.ShouldBeEmpty)
	test.That(t, got[2], test.ShouldHaveLength, 1)
	test.That(t, got[2][0].Event, test.ShouldEqual, event.SonarOn)
	test.That(t, got[3], test.ShouldBeEmpty)
	test.That(t, got[4], test.ShouldHaveLength, 1)
	test.That(t, got[4][0].Event, test.ShouldEqual, event.SonarOff)

	// a narrower band no longer sees 100 cm as clear
	r.obs.CheckSonar(&Band{From: 50, To: 150})
	test.That(t, only(r.tick(), event.SonarOn), test.ShouldHaveLength, 1)
	r.obs.CheckSonar(nil)
	test.That(t, only(r.tick(), event.SonarOff), test.ShouldHaveLength, 1)
}

func TestEdgesAlternate(t *testing.T) {
	r := newRig(t)
	rnd := rand.New(rand.NewSource(7))
	var last event.Event
	seen := 0
	for i := 0; i < 500; i++ {
		r.touch.Set(rnd.Intn(3) == 0)
		for _, trig := range only(r.tick(), event.TouchOn, event.TouchOff) {
			if seen == 0 {
				test.That(t, trig.Event, test.ShouldEqual, event.TouchOn)
			} else {
				test.That(t, trig.Event, test.ShouldNotEqual, last)
			}
			last = trig.Event
			seen++
		}
	}
	test.That(t, seen, test.ShouldBeGreaterThan, 10)
}

func TestBackButton(t *testing.T) {
	r := newRig(t)
	r.back.Set(true)
	r.obs.WatchBackButton(context.Background())
	test.That(t, r.triggers, test.ShouldHaveLength, 1)
	test.That(t, r.triggers[0].Event, test.ShouldEqual, event.BackButtonOn)
	test.That(t, only(r.tick(), event.BackButtonOn, event.BackButtonOff), test.ShouldBeEmpty)
	r.back.Set(false)
	test.That(t, only(r.tick(), event.BackButtonOff), test.ShouldHaveLength, 1)
}

func TestColorPhase(t *testing.T) {
	c, err := newColorPhase(DefaultConfig().ColorPhase, 10)
	test.That(t, err, test.ShouldBeNil)
	now := time.Unix(0, 0)
	feed := func(gs, blueMinusRed int) (event.Event, bool) {
		now = now.Add(10 * time.Millisecond)
		return c.update(gs, sensor.RGB{R: 10, B: 10 + blueMinusRed}, now)
	}

	_, ok := feed(100, 70)
	test.That(t, ok, test.ShouldBeFalse)
	ev, ok := feed(120, 70)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ev, test.ShouldEqual, event.BlackToBlue)
	// still rising, already blue
	_, ok = feed(140, 70)
	test.That(t, ok, test.ShouldBeFalse)

	for _, gs := range []int{120, 100, 80} {
		// falling fast but not red enough to leave blue
		_, ok = feed(gs, 50)
		test.That(t, ok, test.ShouldBeFalse)
	}
	ev, ok = feed(60, 30)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, ev, test.ShouldEqual, event.BlueToBlack)
	_, ok = feed(40, 30)
	test.That(t, ok, test.ShouldBeFalse)
}

// wobble is a grayscale walk of 20-tick rising and falling runs whose steps of 1
// or 2 per 10ms keep the smoothed slope near 150 per second either way.
func wobble(rnd *rand.Rand, runs int) (gs []int, rising []bool) {
	level := 128
	for i := 0; i < runs; i++ {
		dir := 1
		if i%2 == 1 {
			dir = -1
		}
		for j := 0; j < 20; j++ {
			level += dir * (1 + rnd.Intn(2))
			gs = append(gs, level)
			rising = append(rising, dir > 0)
		}
	}
	return gs, rising
}

func TestColorPhaseHoldsBetweenMargins(t *testing.T) {
	cfg := DefaultConfig().ColorPhase
	c, err := newColorPhase(cfg, 10)
	test.That(t, err, test.ShouldBeNil)
	rnd := rand.New(rand.NewSource(3))
	now := time.Unix(0, 0)
	feed := func(gs, blueMinusRed int) (event.Event, bool) {
		now = now.Add(10 * time.Millisecond)
		return c.update(gs, sensor.RGB{R: 10, B: 10 + blueMinusRed}, now)
	}
	between := func() int {
		return cfg.ExitBlueMinusRed + 1 + rnd.Intn(cfg.EnterBlueMinusRed-cfg.ExitBlueMinusRed-1)
	}

	gs, _ := wobble(rnd, 40)
	for _, v := range gs {
		_, ok := feed(v, between())
		test.That(t, ok, test.ShouldBeFalse)
	}

	// a steep rise well into blue
	level := gs[len(gs)-1]
	entered := false
	for i := 0; i < 20 && !entered; i++ {
		level += 4
		var ev event.Event
		ev, entered = feed(level, cfg.EnterBlueMinusRed+10)
		if entered {
			test.That(t, ev, test.ShouldEqual, event.BlackToBlue)
		}
	}
	test.That(t, entered, test.ShouldBeTrue)

	gs, _ = wobble(rnd, 40)
	for _, v := range gs {
		_, ok := feed(v-128+level, between())
		test.That(t, ok, test.ShouldBeFalse)
	}

	// the same walk does toggle once the color leaves the band
	c, err = newColorPhase(cfg, 10)
	test.That(t, err, test.ShouldBeNil)
	gs, rising := wobble(rand.New(rand.NewSource(3)), 40)
	toggles := 0
	for i, v := range gs {
		bmr := cfg.ExitBlueMinusRed - 10
		if rising[i] {
			bmr = cfg.EnterBlueMinusRed + 10
		}
		if _, ok := feed(v, bmr); ok {
			toggles++
		}
	}
	test.That(t, toggles, test.ShouldBeGreaterThan, 1)
}

func TestColorPhaseAlternates(t *testing.T) {
	c, err := newColorPhase(DefaultConfig().ColorPhase, 10)
	test.That(t, err, test.ShouldBeNil)
	rnd := rand.New(rand.NewSource(42))
	now := time.Unix(0, 0)
	want := event.BlackToBlue
	seen := 0
	for i := 0; i < 5000; i++ {
		now = now.Add(10 * time.Millisecond)
		rgb := sensor.RGB{R: rnd.Intn(100), G: rnd.Intn(100), B: rnd.Intn(200)}
		if ev, ok := c.update(rnd.Intn(256), rgb, now); ok {
			test.That(t, ev, test.ShouldEqual, want)
			if want == event.BlackToBlue {
				want = event.BlueToBlack
			} else {
				want = event.BlackToBlue
			}
			seen++
		}
	}
	test.That(t, seen, test.ShouldBeGreaterThan, 0)
}

func TestFreezeSuppressesLineEvents(t *testing.T) {
	r := newRig(t)
	r.obs.Freeze()
	test.That(t, r.obs.Frozen(), test.ShouldBeTrue)
	r.color.Set(sensor.RGB{R: 200, G: 200, B: 200})
	test.That(t, only(r.ticks(30), event.LineLost, event.LineFound), test.ShouldBeEmpty)
	test.That(t, r.obs.Frame().GrayScale, test.ShouldBeGreaterThan, 90)

	r.obs.Unfreeze()
	lost := only(r.tick(), event.LineLost)
	test.That(t, lost, test.ShouldHaveLength, 1)
	test.That(t, lost[0].Step, test.ShouldEqual, int(course.StepApproach))

	r.settle(sensor.RGB{R: 20, G: 20, B: 20})
	test.That(t, only(r.triggers, event.LineFound), test.ShouldHaveLength, 1)
}

func TestNotifyOfDistance(t *testing.T) {
	r := newRig(t)
	r.obs.NotifyOfDistance(100)
	move := func(count int64) []event.Trigger {
		r.left.SetPosition(count)
		r.right.SetPosition(count)
		return only(r.tick(), event.DistReached)
	}
	test.That(t, move(100), test.ShouldBeEmpty)
	test.That(t, move(200), test.ShouldHaveLength, 1)
	test.That(t, move(300), test.ShouldBeEmpty)
	test.That(t, r.obs.Frame().Pose.DistanceMM(), test.ShouldEqual, 212)

	r.obs.NotifyOfDistance(50)
	r.obs.Reset(context.Background())
	test.That(t, r.obs.Frame().Pose.Distance, test.ShouldEqual, 0)
	// reset disarms, and the pose restarts from the present counts
	test.That(t, move(500), test.ShouldBeEmpty)
	test.That(t, r.obs.Frame().Pose.DistanceMM(), test.ShouldEqual, 141)
}

func TestResetAfterEncoderReset(t *testing.T) {
	r := newRig(t)
	ctx := context.Background()
	r.left.SetPosition(720)
	r.right.SetPosition(720)
	r.tick()
	test.That(t, r.obs.Frame().Pose.Distance, test.ShouldBeGreaterThan, 0)

	test.That(t, r.left.Reset(ctx), test.ShouldBeNil)
	test.That(t, r.right.Reset(ctx), test.ShouldBeNil)
	r.obs.Reset(ctx)
	r.tick()
	test.That(t, r.obs.Frame().Pose.Distance, test.ShouldEqual, 0)

	r.left.SetPosition(100)
	r.right.SetPosition(100)
	r.tick()
	test.That(t, r.obs.Frame().Pose.DistanceMM(), test.ShouldEqual, 70)
}

func TestUnmetPredicateHolds(t *testing.T) {
	r := newRig(t)
	r.obs.challenge.slalom = true
	r.obs.challenge.step = course.StepSpinLeft
	triggers := r.ticks(1000)
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepSpinLeft)
	test.That(t, only(triggers, event.SlalomChallenge), test.ShouldBeEmpty)
}

func TestSequencerApproach(t *testing.T) {
	r := newRig(t)
	r.left.SetPosition(400)
	r.right.SetPosition(400)
	r.settle(sensor.RGB{R: 20, G: 20, B: 20})
	test.That(t, r.obs.Frame().Pose.Distance, test.ShouldBeGreaterThan, 0)

	r.sonar.Set(5)
	got := only(r.tick(), event.SlalomReached)
	test.That(t, got, test.ShouldResemble, []event.Trigger{{Event: event.SlalomReached, Step: int(course.StepApproach)}})
	test.That(t, r.arm.PWM(), test.ShouldEqual, -50)
	test.That(t, r.obs.Frame().Pose.Distance, test.ShouldEqual, 0)
	count, err := r.left.Count(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 0)

	got = only(r.tick(), event.SlalomReached)
	test.That(t, got, test.ShouldResemble, []event.Trigger{{Event: event.SlalomReached, Step: int(course.StepBackOff)}})
	test.That(t, r.arm.PWM(), test.ShouldEqual, 80)
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepFindLine)

	// backing off does not repeat, and the slalom rules wait for the tilt
	r.ticks(5)
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepFindLine)

	r.sonar.Set(sensor.SonarOutOfRange)
	r.gyro.Set(-12, 0)
	r.tick()
	r.gyro.Set(0, 0)
	r.tick()
	test.That(t, r.obs.challenge.slalom, test.ShouldBeTrue)
	test.That(t, r.arm.PWM(), test.ShouldEqual, -100)

	// 60 degrees on both wheels is about 42 mm of travel, over black
	r.left.SetPosition(60)
	r.right.SetPosition(60)
	r.tick()
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepOnLine)
	got = only(r.tick(), event.SlalomChallenge)
	test.That(t, got, test.ShouldResemble, []event.Trigger{{Event: event.SlalomChallenge, Step: int(course.StepOnLine)}})
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepSpinLeft)
}

func TestSequencerGarageEntry(t *testing.T) {
	r := newRig(t)
	r.obs.challenge.slalom = true
	r.obs.challenge.step = course.StepGarageEntry
	r.left.SetPosition(500)
	r.right.SetPosition(500)
	r.tick()
	test.That(t, r.obs.challenge.garage, test.ShouldBeFalse)

	r.gyro.Set(7, 0)
	r.tick()
	test.That(t, r.obs.challenge.garage, test.ShouldBeTrue)
	test.That(t, r.obs.challenge.slalom, test.ShouldBeFalse)
	test.That(t, r.arm.PWM(), test.ShouldEqual, 0)
	count, err := r.right.Count(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, 0)

	r.left.SetPosition(80)
	r.right.SetPosition(80)
	r.tick()
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepGarageSettle)
}

func TestSequencerHold(t *testing.T) {
	r := newRig(t)
	r.settle(sensor.RGB{R: 10, G: 10, B: 10})
	r.obs.challenge.garage = true
	r.obs.challenge.step = course.StepHeadToGrid
	r.obs.challenge.prevDegree = 40

	got := only(r.tick(), event.BlockChallenge)
	test.That(t, got, test.ShouldResemble, []event.Trigger{{Event: event.BlockChallenge, Step: int(course.StepHeadToGrid)}})
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepGridCross)

	// black is under the sensor but the hold keeps the grid rule from running
	r.ticks(50)
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepGridCross)
	r.back.Set(true)
	test.That(t, only(r.tick(), event.BackButtonOn), test.ShouldHaveLength, 1)

	r.clk.Add(time.Second)
	got = only(r.tick(), event.BlockChallenge)
	test.That(t, got, test.ShouldResemble, []event.Trigger{{Event: event.BlockChallenge, Step: int(course.StepBlackCross)}})
	test.That(t, r.obs.Step(), test.ShouldEqual, course.StepBlackTrace)

	got = only(r.tick(), event.LineOnPControl)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, r.obs.challenge.rootsNo, test.ShouldEqual, 1)
}

func TestSequencerFinish(t *testing.T) {
	r := newRig(t)
	r.obs.challenge.garage = true
	r.obs.challenge.step = course.StepFinish
	r.tick()
	test.That(t, r.obs.Finished(), test.ShouldBeFalse)
	r.sonar.Set(12)
	got := only(r.tick(), event.BlockChallenge)
	test.That(t, got, test.ShouldHaveLength, 1)
	test.That(t, r.obs.Finished(), test.ShouldBeTrue)
	test.That(t, only(r.ticks(10), event.BlockChallenge), test.ShouldBeEmpty)
}

func TestCourseGraph(t *testing.T) {
	g := CourseGraph()
	test.That(t, course.Validate(g, course.Actions(course.Left)), test.ShouldBeNil)
	test.That(t, course.Validate(g, course.Actions(course.Right)), test.ShouldBeNil)
	test.That(t, g.Reachable(course.StepApproach)[course.StepFinish], test.ShouldBeTrue)
}

func TestGrayScale(t *testing.T) {
	test.That(t, GrayScale(sensor.RGB{R: 255, G: 255, B: 255}), test.ShouldEqual, 255)
	test.That(t, GrayScale(sensor.RGB{}), test.ShouldEqual, 0)
	blue := sensor.RGB{R: 0, G: 100, B: 200}
	test.That(t, GrayScale(blue), test.ShouldEqual, 81)
	test.That(t, GrayScaleBlueless(blue), test.ShouldEqual, 69)
	hsv := ToHSV(sensor.RGB{R: 0, G: 0, B: 255})
	test.That(t, hsv.H, test.ShouldAlmostEqual, 240)
	test.That(t, hsv.S, test.ShouldAlmostEqual, 1)
	test.That(t, hsv.V, test.ShouldAlmostEqual, 1)
}
