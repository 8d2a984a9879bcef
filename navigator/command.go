package navigator

import (
	"fmt"
)

// RampMode selects how a challenge runner adjusts its PWM setpoints while a
// command is in force.
type RampMode int

// Ramp modes. Every RampTicks ticks the named wheel duties move by one.
const (
	Constant RampMode = iota
	IncreaseLeft
	DecreaseLeft
	IncreaseRight
	DecreaseRight
	IncreaseBoth
	DecreaseBoth
	IncreaseRightDecreaseLeft
	IncreaseLeftDecreaseRight
)

func (m RampMode) String() string {
	switch m {
	case Constant:
		return "constant"
	case IncreaseLeft:
		return "increase_l"
	case DecreaseLeft:
		return "decrease_l"
	case IncreaseRight:
		return "increase_r"
	case DecreaseRight:
		return "decrease_r"
	case IncreaseBoth:
		return "increase_lr"
	case DecreaseBoth:
		return "decrease_lr"
	case IncreaseRightDecreaseLeft:
		return "incrs_r_dcrs_l"
	case IncreaseLeftDecreaseRight:
		return "incrs_l_dcrs_r"
	default:
		return fmt.Sprintf("ramp_mode(%d)", int(m))
	}
}

// deltas returns the per-step change applied to the left and right duty.
func (m RampMode) deltas() (int, int) {
	switch m {
	case IncreaseLeft:
		return 1, 0
	case DecreaseLeft:
		return -1, 0
	case IncreaseRight:
		return 0, 1
	case DecreaseRight:
		return 0, -1
	case IncreaseBoth:
		return 1, 1
	case DecreaseBoth:
		return -1, -1
	case IncreaseRightDecreaseLeft:
		return -1, 1
	case IncreaseLeftDecreaseRight:
		return 1, -1
	default:
		return 0, 0
	}
}

// A MotionCommand sets the wheel duties of the active navigator.
type MotionCommand struct {
	Left      int8
	Right     int8
	Mode      RampMode
	RampTicks int
}

// Straight returns a constant command.
func Straight(left, right int8) MotionCommand {
	return MotionCommand{Left: left, Right: right, Mode: Constant, RampTicks: 1}
}

// Ramp returns a command that ramps in the given mode every ticks ticks.
func Ramp(left, right int8, mode RampMode, ticks int) MotionCommand {
	return MotionCommand{Left: left, Right: right, Mode: mode, RampTicks: ticks}
}

// Mirror swaps the wheels and the direction of the ramp, giving the same
// maneuver on the opposite side of the course.
func (c MotionCommand) Mirror() MotionCommand {
	mirrored := MotionCommand{Left: c.Right, Right: c.Left, Mode: c.Mode, RampTicks: c.RampTicks}
	switch c.Mode {
	case IncreaseLeft:
		mirrored.Mode = IncreaseRight
	case DecreaseLeft:
		mirrored.Mode = DecreaseRight
	case IncreaseRight:
		mirrored.Mode = IncreaseLeft
	case DecreaseRight:
		mirrored.Mode = DecreaseLeft
	case IncreaseRightDecreaseLeft:
		mirrored.Mode = IncreaseLeftDecreaseRight
	case IncreaseLeftDecreaseRight:
		mirrored.Mode = IncreaseRightDecreaseLeft
	case Constant, IncreaseBoth, DecreaseBoth:
	}
	return mirrored
}

func (c MotionCommand) String() string {
	return fmt.Sprintf("(%d, %d, %s, %d)", c.Left, c.Right, c.Mode, c.RampTicks)
}
