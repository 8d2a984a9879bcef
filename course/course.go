// Package course describes the scripted challenge course: its step numbers,
// the maneuver that starts each step, and the checks that keep the script consistent.
package course

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/coursebot/navigator"
)

// A Step is a position within the challenge script.
type Step int

// Slalom steps.
const (
	StepApproach       Step = 0
	StepBackOff        Step = 1
	StepFindLine       Step = 10
	StepLeftCurve      Step = 11
	StepReturn         Step = 12
	StepRightCurve     Step = 13
	StepOnLine         Step = 20
	StepSpinLeft       Step = 21
	StepCrossSideways  Step = 22
	StepRealign        Step = 30
	StepSecondObstacle Step = 40
	StepClearSecond    Step = 50
	StepCrossToThird   Step = 60
	StepThirdObstacle  Step = 70
	StepClearThird     Step = 80
	StepCrossToFourth  Step = 90
	StepFourthApproach Step = 100
	StepFourthObstacle Step = 110
	StepClearFourth    Step = 120
	StepSecondLine     Step = 130
	StepDescend        Step = 140
)

// Block and garage steps.
const (
	StepGarageEntry    Step = 150
	StepGarageSettle   Step = 151
	StepSonarSweep     Step = 160
	StepHeadToGrid     Step = 170
	StepGridCross      Step = 180
	StepBlackCross     Step = 190
	StepBlackTrace     Step = 191
	StepRedCross       Step = 200
	StepRedTurn        Step = 201
	StepYellowCross    Step = 210
	StepYellowShift    Step = 211
	StepYellowApproach Step = 212
	StepBlackLine      Step = 220
	StepYellowTurn     Step = 230
	StepYellowTurning  Step = 231
	StepYellowRun      Step = 232
	StepRedArea        Step = 240
	StepRedLeave       Step = 241
	StepRedSecond      Step = 242
	StepRedExit        Step = 243
	StepOffLine        Step = 244
	StepBackToLine     Step = 245
	StepRedTrace       Step = 246
	StepToBlock        Step = 250
	StepBlockReached   Step = 260
	StepTurnAround     Step = 261
	StepSeekOpen       Step = 262
	StepOpenTurn       Step = 263
	StepToGarageLine   Step = 270
	StepSeekGreen      Step = 280
	StepGreenSlow      Step = 281
	StepGarageTurn     Step = 282
	StepSeekBack       Step = 283
	StepAlignBack      Step = 284
	StepFinish         Step = 290
)

// A Side says which way the course is laid out.
type Side int

const (
	// Left is the course entered on the left lane.
	Left Side = iota
	// Right is the mirrored course.
	Right
)

func (s Side) String() string {
	if s == Right {
		return "R"
	}
	return "L"
}

// ParseSide parses "L" or "R", case-insensitively.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "L", "LEFT":
		return Left, nil
	case "R", "RIGHT":
		return Right, nil
	default:
		return Left, errors.Errorf("unknown course side %q, expected L or R", s)
	}
}

// OpKind tags the variant held by an Op.
type OpKind int

// Op kinds.
const (
	// SetPWM hands Cmd to the challenge runner.
	SetPWM OpKind = iota
	// Wait lets the previous command run open loop for Wait.
	Wait
	// Rest freezes the challenge runner for RestDuration then unfreezes it.
	Rest
	// Freeze freezes the challenge runner for good.
	Freeze
	// HaveControl gives the challenge runner authority over the wheels.
	HaveControl
	// Arm sets the arm motor duty to ArmPWM.
	Arm
)

// RestDuration is how long a Rest holds the wheels still.
const RestDuration = 300 * time.Millisecond

// An Op is one primitive of a maneuver.
type Op struct {
	Kind   OpKind
	Cmd    navigator.MotionCommand
	Wait   time.Duration
	ArmPWM int
}

// A Maneuver is an ordered list of ops run by the state machine's executor.
type Maneuver []Op

// Duration returns the total time the maneuver spends waiting.
func (m Maneuver) Duration() time.Duration {
	var d time.Duration
	for _, op := range m {
		switch op.Kind {
		case Wait:
			d += op.Wait
		case Rest:
			d += RestDuration
		case SetPWM, Freeze, HaveControl, Arm:
		}
	}
	return d
}

func pwm(cmd navigator.MotionCommand) Op {
	return Op{Kind: SetPWM, Cmd: cmd}
}

func wait(ms int) Op {
	return Op{Kind: Wait, Wait: time.Duration(ms) * time.Millisecond}
}

func rest() Op {
	return Op{Kind: Rest}
}

func arm(duty int) Op {
	return Op{Kind: Arm, ArmPWM: duty}
}
