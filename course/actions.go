package course

import (
	"go.viam.com/coursebot/event"
	"go.viam.com/coursebot/navigator"
)

var (
	st   = navigator.Straight
	ramp = navigator.Ramp
)

// Actions returns the maneuver run by the challenge runner when the step's
// event reaches the state machine. Steps handed to the line tracer, and steps
// that only move the script along, have no entry.
func Actions(side Side) map[Step]Maneuver {
	// by picks the left-course or right-course variant.
	by := func(l, r navigator.MotionCommand) Op {
		if side == Right {
			return pwm(r)
		}
		return pwm(l)
	}
	return map[Step]Maneuver{
		StepApproach: {
			{Kind: HaveControl},
			pwm(st(20, 20)), wait(800),
			pwm(st(10, 10)), wait(1000),
			rest(),
		},
		StepBackOff: {
			pwm(st(-20, -20)), wait(500),
			rest(),
			by(ramp(43, 40, navigator.DecreaseBoth, 20), ramp(40, 43, navigator.DecreaseBoth, 20)),
		},
		StepFindLine:       {rest(), pwm(st(3, 15))},
		StepLeftCurve:      {rest(), pwm(st(-5, -15))},
		StepReturn:         {rest(), pwm(st(15, 3))},
		StepOnLine:         {rest(), pwm(st(-10, 10))},
		StepSpinLeft:       {rest(), pwm(st(30, 30))},
		StepCrossSideways:  {rest(), pwm(st(10, -10))},
		StepRealign:        {rest(), pwm(st(30, 30))},
		StepSecondObstacle: {rest(), pwm(st(30, 40))},
		StepClearSecond: {
			rest(),
			by(ramp(14, 16, navigator.IncreaseRight, 80), ramp(16, 14, navigator.IncreaseLeft, 80)),
		},
		// the left first ramp starts at 7, mirroring the right course's 15/7
		StepCrossToThird: {
			rest(),
			by(ramp(7, 15, navigator.DecreaseLeft, 90), ramp(15, 7, navigator.DecreaseLeft, 90)),
			wait(150),
			by(ramp(0, 15, navigator.DecreaseLeft, 90), ramp(15, 0, navigator.DecreaseRight, 90)),
		},
		StepThirdObstacle:  {rest(), pwm(st(20, 20))},
		StepClearThird:     {pwm(st(28, 28))},
		// steps that follow the line edge swap wheels, not signs, on the right course
		StepCrossToFourth:  {by(st(10, 1), st(1, 10))},
		StepFourthApproach: {by(ramp(32, 0, navigator.DecreaseLeft, 100), ramp(0, 32, navigator.DecreaseRight, 100))},
		StepFourthObstacle: {by(st(15, -15), st(-15, 15))},
		StepClearFourth:    {by(ramp(25, 28, navigator.IncreaseLeft, 100), ramp(28, 25, navigator.IncreaseRight, 100))},
		StepSecondLine:     {by(st(15, -15), st(-15, 15))},
		StepDescend:        {by(st(27, 25), st(25, 27))},

		StepGarageSettle: {rest(), by(st(8, -8), st(-8, 8))},
		StepHeadToGrid:   {pwm(st(50, 50))},
		StepBlackCross:   {rest(), by(st(50, -50), st(-50, 50)), wait(620), rest()},
		StepRedCross:     {rest(), by(st(10, 0), st(0, 10))},
		StepRedTurn:      {pwm(st(30, 30))},
		StepYellowCross:  {by(st(0, 40), st(40, 0))},
		StepYellowShift:  {pwm(st(30, 30))},
		StepYellowTurn:   {rest(), by(st(-15, 50), st(50, -15))},
		StepYellowTurning: {
			rest(), pwm(st(30, 30)),
		},
		StepRedArea:      {pwm(st(30, 30))},
		StepOffLine:      {by(st(4, 30), st(30, 4))},
		StepBlockReached: {by(st(4, 30), st(30, 4))},
		StepTurnAround:   {by(st(2, 20), st(20, 2))},
		StepOpenTurn:     {pwm(st(30, 30))},
		StepSeekGreen:    {pwm(st(15, 15))},
		StepGreenSlow:    {by(st(15, 13), st(13, 15))},
		StepGarageTurn:   {rest(), by(st(8, -8), st(-8, 8))},
		StepAlignBack:    {pwm(st(15, 15))},
		StepFinish:       {pwm(st(0, 0)), {Kind: Freeze}},
	}
}

// ManualManeuvers returns the fixed maneuvers bound to the manual maneuver
// events, plus the second half of the split slalom entry.
func ManualManeuvers(side Side) map[event.Event]Maneuver {
	m := map[event.Event]Maneuver{
		event.SlalomReachedAfter: {
			pwm(st(-20, -20)), wait(500),
			arm(80),
			rest(),
			pwm(ramp(43, 40, navigator.DecreaseBoth, 40)),
		},
		event.RightCurve:        {pwm(st(15, 3))},
		event.LeftCurve:         {pwm(st(3, 15))},
		event.RightCurveReverse: {pwm(st(-15, -5))},
		event.LeftCurveReverse:  {pwm(st(-5, -15))},
		event.Pause:             {rest()},
		event.LeftTurn:          {pwm(st(-10, 10))},
		event.GoStraight:        {pwm(st(30, 30))},
		event.RightTurn:         {pwm(st(10, -10))},
	}
	if side == Right {
		m[event.SlalomReachedAfter] = mirror(m[event.SlalomReachedAfter])
	}
	return m
}

// ObstacleKey addresses the obstacle-avoidance script.
type ObstacleKey struct {
	Step  int
	Event event.Event
}

// An ObstacleAction is the maneuver for one obstacle step and the step after it.
type ObstacleAction struct {
	Maneuver Maneuver
	Next     int
}

// ObstacleSteps is the number of steps in the obstacle script; reaching it ends the script.
const ObstacleSteps = 15

// ObstacleScript returns the obstacle-avoidance course variant, driven by the
// obstcl_* events with its own step counter.
func ObstacleScript(side Side) map[ObstacleKey]ObstacleAction {
	type entry struct {
		step int
		ev   event.Event
		m    Maneuver
	}
	entries := []entry{
		{0, event.ObstacleReached, Maneuver{rest(), pwm(ramp(-10, 12, navigator.IncreaseLeftDecreaseRight, 100))}},
		{1, event.ObstacleAvoidable, Maneuver{rest(), pwm(ramp(25, 20, navigator.IncreaseLeft, 150))}},
		{2, event.ObstacleAngle, Maneuver{rest(), pwm(ramp(15, -15, navigator.IncreaseRightDecreaseLeft, 90))}},
		{3, event.ObstacleInFront, Maneuver{rest(), pwm(ramp(32, 27, navigator.DecreaseLeft, 70))}},
		{4, event.ObstacleReached, Maneuver{rest(), pwm(st(15, -13))}},
		{5, event.ObstacleAvoidable, Maneuver{rest(), pwm(ramp(14, 16, navigator.IncreaseRight, 80))}},
		{6, event.ObstacleAngle, Maneuver{rest(), pwm(ramp(0, 15, navigator.DecreaseLeft, 90))}},
		{7, event.ObstacleReached, Maneuver{rest(), pwm(st(10, 10)), wait(250), pwm(st(3, 15)), wait(1000)}},
		{8, event.ObstacleAvoidable, Maneuver{rest(), pwm(st(10, 28))}},
		{9, event.ObstacleAngle, Maneuver{rest(), pwm(ramp(15, -15, navigator.IncreaseRightDecreaseLeft, 90))}},
		{10, event.ObstacleInFront, Maneuver{rest(), pwm(ramp(32, 25, navigator.DecreaseLeft, 100))}},
		{11, event.ObstacleReached, Maneuver{rest(), pwm(ramp(15, -15, navigator.IncreaseRightDecreaseLeft, 110))}},
		{12, event.ObstacleAvoidable, Maneuver{rest(), pwm(ramp(25, 25, navigator.IncreaseRight, 30))}},
		{13, event.ObstacleAngle, Maneuver{rest(), pwm(ramp(15, -15, navigator.IncreaseRightDecreaseLeft, 150))}},
		{14, event.ObstacleAvoidable, Maneuver{rest(), pwm(ramp(25, 30, navigator.IncreaseLeftDecreaseRight, 100))}},
	}
	script := make(map[ObstacleKey]ObstacleAction, len(entries))
	for _, e := range entries {
		m := e.m
		if side == Right {
			m = mirror(m)
		}
		script[ObstacleKey{Step: e.step, Event: e.ev}] = ObstacleAction{Maneuver: m, Next: e.step + 1}
	}
	return script
}

func mirror(m Maneuver) Maneuver {
	out := make(Maneuver, len(m))
	for i, op := range m {
		if op.Kind == SetPWM {
			op.Cmd = op.Cmd.Mirror()
		}
		out[i] = op
	}
	return out
}
