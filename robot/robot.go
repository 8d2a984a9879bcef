// Package robot wires the observer, the state machine and the navigators into
// one periodic loop.
package robot

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/config"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/event"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/navigator"
	"go.viam.com/coursebot/observer"
	"go.viam.com/coursebot/statemachine"
	"go.viam.com/coursebot/utils"
)

// A Robot runs one course. Each tick advances the running maneuver, lets the
// observer sample unless a maneuver owns the tick, and drives the wheels with
// the navigator in control.
type Robot struct {
	cfg    *config.Config
	hw     observer.Hardware
	clk    clock.Clock
	logger logging.Logger

	observer  *observer.Observer
	sm        *statemachine.StateMachine
	authority *navigator.Authority
	tracer    *navigator.LineTracer
	blind     *navigator.BlindRunner
	runner    *navigator.ChallengeRunner

	ticks atomic.Int64

	mu      sync.Mutex
	workers utils.StoppableWorkers
}

var _ event.Sink = &Robot{}

// New builds a robot on hw from cfg. The course table is checked against the
// maneuvers of the configured side before anything is built.
func New(ctx context.Context, cfg *config.Config, hw observer.Hardware, clk clock.Clock, logger logging.Logger) (*Robot, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	side, err := cfg.Side()
	if err != nil {
		return nil, err
	}
	if err := course.Validate(observer.CourseGraph(), course.Actions(side)); err != nil {
		return nil, errors.Wrap(err, "invalid course table")
	}
	logger = logger.WithFields("course", side.String())

	obs, err := observer.New(ctx, cfg.Observer, hw, clk, logger.Sublogger("observer"))
	if err != nil {
		return nil, err
	}
	period := cfg.Observer.Period
	tracer, err := navigator.NewLineTracer(hw.Left, hw.Right, obs, cfg.Tracer, period, cfg.RightEdge, logger.Sublogger("tracer"))
	if err != nil {
		return nil, err
	}
	r := &Robot{
		cfg:       cfg,
		hw:        hw,
		clk:       clk,
		logger:    logger,
		observer:  obs,
		authority: navigator.NewAuthority(logger.Sublogger("navigator")),
		tracer:    tracer,
		blind:     navigator.NewBlindRunner(hw.Left, hw.Right, cfg.BlindSpeed, logger.Sublogger("blind")),
		runner:    navigator.NewChallengeRunner(hw.Left, hw.Right, logger.Sublogger("challenge")),
	}
	r.sm, err = statemachine.New(statemachine.Config{
		Side:              side,
		Period:            period,
		DepartureDistance: cfg.DepartureDistance,
		FinalApproach:     cfg.FinalApproach,
	}, statemachine.Collaborators{
		Observer:  obs,
		Authority: r.authority,
		Tracer:    tracer,
		Blind:     r.blind,
		Runner:    r.runner,
		Left:      hw.Left,
		Right:     hw.Right,
		Arm:       hw.Arm,
		Gyro:      hw.Gyro,
	}, clk, logger.Sublogger("statemachine"))
	if err != nil {
		return nil, err
	}
	obs.SetSink(r.sm)
	return r, nil
}

// SendTrigger injects a trigger from outside the observer, such as a start command.
func (r *Robot) SendTrigger(ctx context.Context, trigger event.Trigger) {
	r.sm.SendTrigger(ctx, trigger)
}

// Start sends the start command for the configured course side.
func (r *Robot) Start(ctx context.Context) {
	ev := event.CmdStartL
	if side, err := r.cfg.Side(); err == nil && side == course.Right {
		ev = event.CmdStartR
	}
	r.SendTrigger(ctx, event.Trigger{Event: ev, Step: int(r.observer.Step())})
}

// Tick runs one period of the robot.
func (r *Robot) Tick(ctx context.Context) {
	r.ticks.Inc()
	r.sm.Advance(ctx)
	if r.sm.Busy() {
		r.observer.WatchBackButton(ctx)
	} else {
		r.observer.Operate(ctx)
	}
	r.authority.Operate(ctx)
}

// Ticks returns how many ticks have run.
func (r *Robot) Ticks() int64 {
	return r.ticks.Load()
}

// Activate starts ticking every observer period in the background.
func (r *Robot) Activate(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers != nil {
		return errors.New("robot is already active")
	}
	// the ticker exists before Activate returns so no tick is missed
	ticker := r.clk.Ticker(r.cfg.Observer.Period)
	r.workers = utils.NewStoppableWorkersWithContext(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Tick(ctx)
			}
		}
	})
	r.logger.Infow("robot activated", "period", r.cfg.Observer.Period)
	return nil
}

// Deactivate stops the background loop and waits for the tick in progress.
func (r *Robot) Deactivate() {
	r.mu.Lock()
	workers := r.workers
	r.workers = nil
	r.mu.Unlock()
	if workers == nil {
		return
	}
	workers.Stop()
	r.logger.Infow("robot deactivated", "ticks", r.Ticks())
}

// Run activates the robot and blocks until the run ends or ctx is done.
func (r *Robot) Run(ctx context.Context) error {
	if err := r.Activate(ctx); err != nil {
		return err
	}
	defer r.Deactivate()
	select {
	case <-r.sm.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the loop and every motor.
func (r *Robot) Close(ctx context.Context) error {
	r.Deactivate()
	r.authority.Release()
	var err error
	for _, m := range []motor.Motor{r.hw.Left, r.hw.Right, r.hw.Arm} {
		err = multierr.Append(err, errors.Wrapf(m.SetPWM(ctx, 0), "failed to stop motor %s", m.Name()))
	}
	return err
}

// State returns the state machine state.
func (r *Robot) State() statemachine.State {
	return r.sm.State()
}

// Done is closed when the run ends.
func (r *Robot) Done() <-chan struct{} {
	return r.sm.Done()
}

// Frame returns the latest observer frame.
func (r *Robot) Frame() observer.Frame {
	return r.observer.Frame()
}

// Active returns the name of the navigator in control, or "" when none is.
func (r *Robot) Active() string {
	if n := r.authority.Active(); n != nil {
		return n.Name()
	}
	return ""
}
