// Package observer fuses the robot's sensors into one frame per tick, detects
// the edge events the state machine reacts to, and sequences the challenge
// course by watching for the landmarks of each step.
package observer

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/components/sensor"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/event"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/navigator"
	"go.viam.com/coursebot/odometry"
)

// Hardware is the set of devices the observer reads. The arm motor is only
// written, by the challenge sequencer.
type Hardware struct {
	Left  motor.Motor
	Right motor.Motor
	Arm   motor.Motor
	Touch sensor.Touch
	Sonar sensor.Sonar
	Gyro  sensor.Gyro
	Color sensor.Color
	Back  sensor.Button
}

// Validate returns an error naming every missing device.
func (hw Hardware) Validate() error {
	var err error
	check := func(ok bool, name string) {
		if !ok {
			err = multierr.Append(err, errors.Errorf("missing %s", name))
		}
	}
	check(hw.Left != nil, "left motor")
	check(hw.Right != nil, "right motor")
	check(hw.Arm != nil, "arm motor")
	check(hw.Touch != nil, "touch sensor")
	check(hw.Sonar != nil, "sonar")
	check(hw.Gyro != nil, "gyro")
	check(hw.Color != nil, "color sensor")
	check(hw.Back != nil, "back button")
	return err
}

var _ navigator.LineSensor = &Observer{}

// An Observer is ticked once per period. Triggers it raises are delivered to
// its sink after its own lock is released, so the sink may call back into it.
type Observer struct {
	cfg    Config
	hw     Hardware
	clk    clock.Clock
	logger logging.Logger

	mu         sync.Mutex
	sink       event.Sink
	frame      Frame
	rgb        *rgbFilter
	color      *colorPhase
	touch      *edge
	sonar      *edge
	back       *edge
	lost       *edge
	sonarBand  Band
	integrator *odometry.Integrator
	countL     int64
	countR     int64
	frozen     bool
	distArmed  bool
	// distTarget is the odometry distance in mm past which dist_reached fires.
	distTarget float64
	holdUntil  time.Time
	lastTrace  time.Time
	challenge  challengeState
}

// New returns an observer reading hw. The gyro offset is cleared.
func New(ctx context.Context, cfg Config, hw Hardware, clk clock.Clock, logger logging.Logger) (*Observer, error) {
	if err := cfg.Validate("observer"); err != nil {
		return nil, err
	}
	if err := hw.Validate(); err != nil {
		return nil, errors.Wrap(err, "incomplete hardware")
	}
	rgb, err := newRGBFilter(cfg.FIRCoefficients)
	if err != nil {
		return nil, err
	}
	color, err := newColorPhase(cfg.ColorPhase, cfg.MovingAverageCapacity)
	if err != nil {
		return nil, err
	}
	if err := hw.Gyro.SetOffset(ctx, 0); err != nil {
		return nil, errors.Wrap(err, "failed to clear gyro offset")
	}
	return &Observer{
		cfg:        cfg,
		hw:         hw,
		clk:        clk,
		logger:     logger,
		rgb:        rgb,
		color:      color,
		touch:      newEdge(event.TouchOn, event.TouchOff),
		sonar:      newEdge(event.SonarOn, event.SonarOff),
		back:       newEdge(event.BackButtonOn, event.BackButtonOff),
		lost:       newEdge(event.LineLost, event.LineFound),
		sonarBand:  cfg.SonarAlert,
		integrator: odometry.NewIntegrator(cfg.Geometry),
		challenge:  newChallengeState(),
		frame:      Frame{Sonar: sensor.SonarOutOfRange},
	}, nil
}

// SetSink sets where triggers are delivered.
func (o *Observer) SetSink(sink event.Sink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sink = sink
}

// FilterOrder returns the number of samples the color filter needs to settle.
func (o *Observer) FilterOrder() int {
	return o.rgb.order()
}

// Operate runs one tick: sample every sensor, update the pose, detect edges
// and advance the challenge sequencer.
func (o *Observer) Operate(ctx context.Context) {
	o.mu.Lock()
	triggers, sink := o.operate(ctx), o.sink
	o.mu.Unlock()
	o.deliver(ctx, sink, triggers)
}

// WatchBackButton only samples the back button. It runs instead of Operate
// while a maneuver owns the tick.
func (o *Observer) WatchBackButton(ctx context.Context) {
	o.mu.Lock()
	triggers, sink := o.watchBack(ctx, nil), o.sink
	o.mu.Unlock()
	o.deliver(ctx, sink, triggers)
}

func (o *Observer) deliver(ctx context.Context, sink event.Sink, triggers []event.Trigger) {
	for _, t := range triggers {
		o.logger.Infow("event", "event", t.Event, "step", t.Step)
		if sink != nil {
			sink.SendTrigger(ctx, t)
		}
	}
}

func (o *Observer) trigger(out []event.Trigger, ev event.Event) []event.Trigger {
	return append(out, event.Trigger{Event: ev, Step: int(o.challenge.step)})
}

func (o *Observer) watchBack(ctx context.Context, out []event.Trigger) []event.Trigger {
	pressed, err := o.hw.Back.IsPressed(ctx)
	if err != nil {
		o.logger.Debugw("failed to read back button", "error", err)
		pressed = o.frame.BackButton
	}
	o.frame.BackButton = pressed
	if ev, ok := o.back.update(pressed); ok {
		out = o.trigger(out, ev)
	}
	return out
}

func (o *Observer) operate(ctx context.Context) []event.Trigger {
	now := o.clk.Now()
	if now.Before(o.holdUntil) {
		return o.watchBack(ctx, nil)
	}
	f := &o.frame
	f.Time = now

	if raw, err := o.hw.Color.RawColor(ctx); err != nil {
		o.logger.Debugw("failed to read color", "error", err)
	} else {
		f.RGB = o.rgb.next(raw)
	}
	f.HSV = ToHSV(f.RGB)
	f.GrayScale = GrayScale(f.RGB)
	f.GrayScaleBlueless = GrayScaleBlueless(f.RGB)

	if angle, err := o.hw.Gyro.Angle(ctx); err != nil {
		o.logger.Debugw("failed to read gyro angle", "error", err)
	} else {
		f.Angle = angle
	}
	if velocity, err := o.hw.Gyro.AngularVelocity(ctx); err != nil {
		o.logger.Debugw("failed to read gyro rate", "error", err)
	} else {
		f.AngularVelocity = velocity
	}

	o.readCounts(ctx)
	f.Pose = o.integrator.Update(o.countL, o.countR)

	var out []event.Trigger
	if o.distArmed && f.Pose.Distance > o.distTarget {
		o.distArmed = false
		out = o.trigger(out, event.DistReached)
	}

	if pressed, err := o.hw.Touch.IsPressed(ctx); err != nil {
		o.logger.Debugw("failed to read touch sensor", "error", err)
	} else {
		f.Touch = pressed
	}
	if ev, ok := o.touch.update(f.Touch); ok {
		out = o.trigger(out, ev)
	}
	if distance, err := o.hw.Sonar.Distance(ctx); err != nil {
		o.logger.Debugw("failed to read sonar", "error", err)
	} else {
		f.Sonar = distance
	}
	if ev, ok := o.sonar.update(o.sonarBand.Contains(f.Sonar)); ok {
		out = o.trigger(out, ev)
	}
	out = o.watchBack(ctx, out)

	if !o.frozen {
		if ev, ok := o.lost.update(f.GrayScale > o.cfg.LostGrayScale); ok {
			out = o.trigger(out, ev)
		}
		if ev, ok := o.color.update(f.GrayScale, f.RGB, now); ok {
			out = o.trigger(out, ev)
		}
	}

	out = o.runChallenge(ctx, now, out)
	f.Step = o.challenge.step

	if o.cfg.TraceInterval > 0 && now.Sub(o.lastTrace) >= o.cfg.TraceInterval {
		o.lastTrace = now
		o.logger.Debugw("frame",
			"step", f.Step,
			"rgb", f.RGB,
			"grayscale", f.GrayScale,
			"sonar", f.Sonar,
			"angle", f.Angle,
			"distance", f.Pose.DistanceMM(),
			"azimuth", f.Pose.AzimuthDegrees(),
			"x", f.Pose.LocX(),
			"y", f.Pose.LocY(),
		)
	}
	return out
}

// Reset zeroes the pose, taking the present encoder counts as the origin, and
// disarms the distance notification. The counts are read from the motors, so a
// hardware encoder reset just before is picked up.
func (o *Observer) Reset(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.readCounts(ctx)
	o.integrator.Reset(o.countL, o.countR)
	o.frame.Pose = odometry.Pose{}
	o.distArmed = false
}

// Freeze suppresses the line lost and color phase events.
func (o *Observer) Freeze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frozen = true
}

// Unfreeze lets line events through again.
func (o *Observer) Unfreeze() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.frozen = false
}

// Frozen reports whether line events are suppressed.
func (o *Observer) Frozen() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frozen
}

// NotifyOfDistance arms a single dist_reached once the robot has travelled
// delta mm further. It replaces any notification still pending.
func (o *Observer) NotifyOfDistance(delta float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.distTarget = o.integrator.Pose().Distance + delta
	o.distArmed = true
}

// CheckSonar sets the band that raises sonar_on; nil restores the configured band.
func (o *Observer) CheckSonar(band *Band) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if band == nil {
		o.sonarBand = o.cfg.SonarAlert
		return
	}
	o.sonarBand = *band
}

// Frame returns a copy of the latest frame.
func (o *Observer) Frame() Frame {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frame
}

// LineReading returns what the line tracer steers by.
func (o *Observer) LineReading() navigator.LineReading {
	o.mu.Lock()
	defer o.mu.Unlock()
	return navigator.LineReading{GrayScale: o.frame.GrayScale, Brightness: o.frame.Brightness}
}

// Step returns the current challenge step.
func (o *Observer) Step() course.Step {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.challenge.step
}

// Finished reports whether the robot has parked in the garage.
func (o *Observer) Finished() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.challenge.finished
}

func (o *Observer) setArm(ctx context.Context, pwm int) {
	if err := o.hw.Arm.SetPWM(ctx, pwm); err != nil {
		o.logger.Debugw("failed to set arm pwm", "pwm", pwm, "error", err)
	}
}

// readCounts refreshes the cached encoder counts. A failed read keeps the last count.
func (o *Observer) readCounts(ctx context.Context) {
	if count, err := o.hw.Left.Count(ctx); err != nil {
		o.logger.Debugw("failed to read encoder", "motor", o.hw.Left.Name(), "error", err)
	} else {
		o.countL = count
	}
	if count, err := o.hw.Right.Count(ctx); err != nil {
		o.logger.Debugw("failed to read encoder", "motor", o.hw.Right.Name(), "error", err)
	} else {
		o.countR = count
	}
}

// resetOdometry zeroes the encoders along with the pose.
func (o *Observer) resetOdometry(ctx context.Context) {
	for _, m := range []motor.Motor{o.hw.Left, o.hw.Right} {
		if err := m.Reset(ctx); err != nil {
			o.logger.Warnw("failed to reset encoder", "motor", m.Name(), "error", err)
		}
	}
	o.countL, o.countR = 0, 0
	o.integrator.Reset(0, 0)
	o.frame.Pose = odometry.Pose{}
}

// runChallenge evaluates at most one sequencer rule and then the section
// changes that happen outside the table.
func (o *Observer) runChallenge(ctx context.Context, now time.Time, out []event.Trigger) []event.Trigger {
	st := &o.challenge
	if st.finished {
		return out
	}
	f := &o.frame
	t := &tick{
		st:     st,
		rgb:    f.RGB,
		sum:    f.RGB.Sum(),
		sonar:  f.Sonar,
		degree: f.Pose.Degree(),
		pose:   f.Pose,
	}

	if f.RGB.B-f.RGB.R > 60 && f.Sonar < 50 {
		st.blue2 = true
	}

	evaluated := false
	if st.blue2 && !st.slalom && !st.garage {
		out, evaluated = o.evaluate(ctx, now, t, approachPhase, out)
		o.detectTilt(ctx)
	}
	if st.slalom && !st.garage {
		if !evaluated {
			t.pose = f.Pose
			out, evaluated = o.evaluate(ctx, now, t, slalomPhase, out)
		}
		if f.Angle > 6 && st.step == course.StepGarageEntry {
			o.enterGarage(ctx)
		}
	}
	if st.garage && !st.slalom && !evaluated {
		t.pose = f.Pose
		out, _ = o.evaluate(ctx, now, t, garagePhase, out)
	}

	if st.step == course.StepClearFourth || st.garage {
		if brightness, err := o.hw.Color.Brightness(ctx); err != nil {
			o.logger.Debugw("failed to read brightness", "error", err)
		} else {
			f.Brightness = brightness
		}
	}
	return out
}

func (o *Observer) evaluate(
	ctx context.Context,
	now time.Time,
	t *tick,
	p phase,
	out []event.Trigger,
) ([]event.Trigger, bool) {
	st := t.st
	r, ok := challengeTable[st.step]
	if !ok || r.phase != p {
		return out, false
	}
	b := r.evaluate(t)
	for _, pwm := range t.arm {
		o.setArm(ctx, pwm)
	}
	t.arm = nil
	if t.resetOdometry {
		t.resetOdometry = false
		o.resetOdometry(ctx)
	}
	if b == nil {
		return out, true
	}
	from := st.step
	st.step = b.next
	if b.raise {
		out = append(out, event.Trigger{Event: b.event, Step: int(b.reportAt)})
	}
	if b.hold > 0 {
		o.holdUntil = now.Add(b.hold)
	}
	if from != b.next {
		o.logger.Infow("challenge step", "from", from, "to", b.next)
	}
	return out, true
}

// detectTilt notices the robot tipping up onto the slalom board and then
// leveling out on top of it.
func (o *Observer) detectTilt(ctx context.Context) {
	st := &o.challenge
	f := &o.frame
	st.curAngle = f.Angle
	if st.curAngle < -9 {
		st.prevAngle = st.curAngle
	}
	if st.prevAngle < -9 && st.curAngle >= 0 {
		st.slalom = true
		st.curAngle, st.prevAngle = 0, 0
		st.prevDis = f.Pose.Distance
		st.prevDisY = f.Pose.Y
		st.prevDegree = f.Pose.Degree()
		o.setArm(ctx, -100)
		o.logger.Infow("on the slalom board", "step", st.step)
	}
}

// enterGarage leaves the slalom for the garage section with a fresh pose.
func (o *Observer) enterGarage(ctx context.Context) {
	st := &o.challenge
	st.slalom = false
	st.garage = true
	st.curAngle, st.prevAngle = 0, 0
	o.setArm(ctx, 0)
	o.resetOdometry(ctx)
	o.logger.Infow("entering the garage", "step", st.step)
}
