// Package statemachine holds the top-level state of a run and dispatches the
// observer's triggers to motion commands for the navigator in control.
package statemachine

import (
	"context"
	"fmt"
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
)

// State is the top-level state of a run.
type State int

// States of a run.
const (
	Start State = iota
	Tracing
	Stopping
	Blind
	Challenge
	End
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case Tracing:
		return "tracing"
	case Stopping:
		return "stopping"
	case Blind:
		return "blind"
	case Challenge:
		return "challenge"
	case End:
		return "end"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// An Observer is the part of the observer the state machine commands.
type Observer interface {
	Reset(ctx context.Context)
	Freeze()
	Unfreeze()
	NotifyOfDistance(delta float64)
	// FilterOrder is the number of ticks the color filter needs after a reset.
	FilterOrder() int
}

// A Tracer is a navigator with selectable tracing modes.
type Tracer interface {
	navigator.Navigator
	SetMode(mode navigator.TraceMode)
}

// Collaborators are the parts of the robot the state machine drives.
type Collaborators struct {
	Observer  Observer
	Authority *navigator.Authority
	Tracer    Tracer
	Blind     navigator.Navigator
	Runner    navigator.Navigator
	Left      motor.Motor
	Right     motor.Motor
	Arm       motor.Motor
	Gyro      sensor.Gyro
}

func (c Collaborators) validate() error {
	var err error
	check := func(ok bool, name string) {
		if !ok {
			err = multierr.Append(err, errors.Errorf("missing %s", name))
		}
	}
	check(c.Observer != nil, "observer")
	check(c.Authority != nil, "navigator authority")
	check(c.Tracer != nil, "line tracer")
	check(c.Blind != nil, "blind runner")
	check(c.Runner != nil, "challenge runner")
	check(c.Left != nil, "left motor")
	check(c.Right != nil, "right motor")
	check(c.Arm != nil, "arm motor")
	check(c.Gyro != nil, "gyro")
	return err
}

// Config tunes the state machine.
type Config struct {
	Side course.Side
	// Period is the tick period, used to time the filter settling at start.
	Period time.Duration
	// DepartureDistance is how far, in mm, the tracer follows the line before
	// the blind runner takes over.
	DepartureDistance float64
	// FinalApproach is how far, in mm, the tracer keeps going after cmdStop.
	FinalApproach float64
}

type handler func(ctx context.Context, trigger event.Trigger)

// A StateMachine reacts to triggers. A trigger that arrives while a maneuver is
// running waits in a queue until the maneuver completes; the back button
// interrupts everything.
type StateMachine struct {
	cfg    Config
	col    Collaborators
	clk    clock.Clock
	logger logging.Logger

	actions   map[course.Step]course.Maneuver
	manual    map[event.Event]course.Maneuver
	obstacles map[course.ObstacleKey]course.ObstacleAction
	table     map[State]map[event.Event]handler

	mu           sync.Mutex
	state        State
	exec         *executor
	queue        []event.Trigger
	obstacleStep int

	done     chan struct{}
	doneOnce sync.Once
}

var _ event.Sink = &StateMachine{}

// New returns a state machine in the Start state.
func New(cfg Config, col Collaborators, clk clock.Clock, logger logging.Logger) (*StateMachine, error) {
	if err := col.validate(); err != nil {
		return nil, errors.Wrap(err, "incomplete collaborators")
	}
	if cfg.Period <= 0 {
		return nil, errors.Errorf("period must be positive, got %v", cfg.Period)
	}
	obstacles := course.ObstacleScript(cfg.Side)
	if err := course.ValidateObstacleScript(obstacles); err != nil {
		return nil, err
	}
	sm := &StateMachine{
		cfg:       cfg,
		col:       col,
		clk:       clk,
		logger:    logger,
		actions:   course.Actions(cfg.Side),
		manual:    course.ManualManeuvers(cfg.Side),
		obstacles: obstacles,
		state:     Start,
		done:      make(chan struct{}),
	}
	sm.table = sm.buildTable()
	return sm, nil
}

func (sm *StateMachine) buildTable() map[State]map[event.Event]handler {
	start := sm.goTo(Tracing, sm.startTracing)
	challenge := sm.goTo(Challenge, sm.runStep)
	ignore := func(ctx context.Context, trigger event.Trigger) {}

	inChallenge := map[event.Event]handler{
		event.SlalomReached:    sm.runStep,
		event.SlalomChallenge:  sm.runStep,
		event.BlockChallenge:   sm.runStep,
		event.BlockAreaIn:      sm.runStep,
		event.LineOnPControl:   sm.traceLine(navigator.TraceP),
		event.LineOnPIDControl: sm.traceLine(navigator.TracePID),
	}
	for ev := range sm.manual {
		inChallenge[ev] = sm.runManual
	}
	for _, ev := range []event.Event{
		event.ObstacleReached,
		event.ObstacleAvoidable,
		event.ObstacleInFront,
		event.ObstacleAngle,
	} {
		inChallenge[ev] = sm.runObstacle
	}

	return map[State]map[event.Event]handler{
		Start: {
			event.CmdStartR: start,
			event.CmdStartL: start,
			event.TouchOn:   start,
		},
		Tracing: {
			event.DistReached: sm.goTo(Blind, func(ctx context.Context, trigger event.Trigger) {
				sm.col.Authority.HaveControl(sm.col.Blind)
			}),
			event.CmdStop: sm.goTo(Stopping, func(ctx context.Context, trigger event.Trigger) {
				sm.col.Observer.NotifyOfDistance(sm.cfg.FinalApproach)
				sm.col.Authority.HaveControl(sm.col.Tracer)
			}),
			event.SlalomReached: challenge,
			event.SonarOn:       ignore,
			event.SonarOff:      ignore,
			event.BlackToBlue:   ignore,
			event.BlueToBlack:   ignore,
		},
		Blind: {
			event.SlalomReached: challenge,
		},
		Stopping: {
			event.DistReached: sm.goTo(End, nil),
		},
		Challenge: inChallenge,
		End:       {},
	}
}

// goTo returns a handler that runs then and changes to state.
func (sm *StateMachine) goTo(state State, then handler) handler {
	return func(ctx context.Context, trigger event.Trigger) {
		sm.enter(ctx, state)
		if then != nil {
			then(ctx, trigger)
		}
	}
}

// enter must be called with mu held.
func (sm *StateMachine) enter(ctx context.Context, state State) {
	if sm.state == state {
		return
	}
	sm.logger.Infow("state changed", "from", sm.state, "to", state)
	sm.state = state
	if state == End {
		sm.stopAll(ctx)
		sm.doneOnce.Do(func() { close(sm.done) })
	}
}

func (sm *StateMachine) stopAll(ctx context.Context) {
	sm.col.Authority.Release()
	for _, m := range []motor.Motor{sm.col.Left, sm.col.Right, sm.col.Arm} {
		if err := m.SetPWM(ctx, 0); err != nil {
			sm.logger.Warnw("failed to stop motor", "motor", m.Name(), "error", err)
		}
	}
}

// SendTrigger dispatches trigger in the current state, or queues it behind
// the running maneuver.
func (sm *StateMachine) SendTrigger(ctx context.Context, trigger event.Trigger) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.logger.Infow("trigger", "event", trigger.Event, "step", trigger.Step, "state", sm.state)
	if trigger.Event == event.BackButtonOn && sm.state != End {
		if sm.exec != nil || len(sm.queue) > 0 {
			sm.logger.Infow("maneuver canceled", "queued", len(sm.queue))
		}
		sm.exec = nil
		sm.queue = nil
		sm.enter(ctx, End)
		return
	}
	if sm.exec != nil {
		sm.queue = append(sm.queue, trigger)
		return
	}
	sm.dispatch(ctx, trigger)
}

func (sm *StateMachine) dispatch(ctx context.Context, trigger event.Trigger) {
	h, ok := sm.table[sm.state][trigger.Event]
	if !ok {
		sm.logger.Debugw("trigger ignored", "event", trigger.Event, "state", sm.state)
		return
	}
	h(ctx, trigger)
}

// Advance moves the running maneuver forward to the present time. Once it
// completes, queued triggers are dispatched in arrival order.
func (sm *StateMachine) Advance(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.advance(ctx)
}

func (sm *StateMachine) advance(ctx context.Context) {
	for {
		if sm.exec != nil {
			if sm.exec.advance(ctx, sm.clk.Now()) {
				return
			}
			sm.exec = nil
		}
		if len(sm.queue) == 0 {
			return
		}
		next := sm.queue[0]
		sm.queue = sm.queue[1:]
		sm.dispatch(ctx, next)
	}
}

// run starts program right away; mu must be held.
func (sm *StateMachine) run(ctx context.Context, program []action) {
	sm.exec = newExecutor(program)
	if !sm.exec.advance(ctx, sm.clk.Now()) {
		sm.exec = nil
	}
}

// Busy reports whether a maneuver is running.
func (sm *StateMachine) Busy() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.exec != nil
}

// Remaining returns how long the running maneuver waits before its next op.
func (sm *StateMachine) Remaining() time.Duration {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.exec == nil {
		return 0
	}
	return sm.exec.remaining(sm.clk.Now())
}

// State returns the current state.
func (sm *StateMachine) State() State {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state
}

// Done is closed once the machine reaches End.
func (sm *StateMachine) Done() <-chan struct{} {
	return sm.done
}

func (sm *StateMachine) startTracing(ctx context.Context, trigger event.Trigger) {
	col := sm.col
	settle := sm.cfg.Period * time.Duration(col.Observer.FilterOrder())
	sm.run(ctx, []action{
		call(func(ctx context.Context) {
			for _, m := range []motor.Motor{col.Left, col.Right} {
				if err := m.Reset(ctx); err != nil {
					sm.logger.Warnw("failed to reset motor", "motor", m.Name(), "error", err)
				}
			}
			col.Observer.Reset(ctx)
			if err := col.Gyro.Reset(ctx); err != nil {
				sm.logger.Warnw("failed to reset gyro", "error", err)
			}
			col.Observer.Freeze()
			col.Tracer.Freeze()
			col.Authority.HaveControl(col.Tracer)
		}),
		pause(settle),
		call(func(ctx context.Context) {
			col.Observer.Unfreeze()
			col.Tracer.Unfreeze()
			col.Observer.NotifyOfDistance(sm.cfg.DepartureDistance)
		}),
	})
}

func (sm *StateMachine) runStep(ctx context.Context, trigger event.Trigger) {
	sm.col.Authority.HaveControl(sm.col.Runner)
	m, ok := sm.actions[course.Step(trigger.Step)]
	if !ok {
		return
	}
	sm.logger.Debugw("running step", "step", trigger.Step, "ops", len(m))
	sm.run(ctx, sm.compile(m))
}

func (sm *StateMachine) runManual(ctx context.Context, trigger event.Trigger) {
	sm.col.Authority.HaveControl(sm.col.Runner)
	sm.run(ctx, sm.compile(sm.manual[trigger.Event]))
}

func (sm *StateMachine) runObstacle(ctx context.Context, trigger event.Trigger) {
	a, ok := sm.obstacles[course.ObstacleKey{Step: sm.obstacleStep, Event: trigger.Event}]
	if !ok {
		sm.logger.Debugw("obstacle event out of order", "event", trigger.Event, "obstacle_step", sm.obstacleStep)
		return
	}
	sm.obstacleStep = a.Next
	sm.col.Authority.HaveControl(sm.col.Runner)
	sm.run(ctx, sm.compile(a.Maneuver))
}

func (sm *StateMachine) traceLine(mode navigator.TraceMode) handler {
	return func(ctx context.Context, trigger event.Trigger) {
		sm.col.Tracer.SetMode(mode)
		sm.col.Authority.HaveControl(sm.col.Tracer)
	}
}

// compile turns a maneuver into an executor program driving the challenge runner.
func (sm *StateMachine) compile(m course.Maneuver) []action {
	runner := sm.col.Runner
	program := make([]action, 0, len(m)+2)
	for _, op := range m {
		switch op.Kind {
		case course.SetPWM:
			program = append(program, call(func(ctx context.Context) { runner.SetPwmLR(op.Cmd) }))
		case course.Wait:
			program = append(program, pause(op.Wait))
		case course.Rest:
			program = append(program,
				call(func(ctx context.Context) { runner.Freeze() }),
				pause(course.RestDuration),
				call(func(ctx context.Context) { runner.Unfreeze() }),
			)
		case course.Freeze:
			program = append(program, call(func(ctx context.Context) { runner.Freeze() }))
		case course.HaveControl:
			program = append(program, call(func(ctx context.Context) { sm.col.Authority.HaveControl(runner) }))
		case course.Arm:
			program = append(program, call(func(ctx context.Context) {
				if err := sm.col.Arm.SetPWM(ctx, op.ArmPWM); err != nil {
					sm.logger.Debugw("failed to set arm pwm", "pwm", op.ArmPWM, "error", err)
				}
			}))
		}
	}
	return program
}
