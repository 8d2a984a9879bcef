// Package event defines the events raised by the observer and consumed by the state machine.
package event

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// An Event is one of the fixed set of things the observer can notice.
type Event int

// Events. The string forms match the trace lines of the course logs.
const (
	TouchOn Event = iota
	TouchOff
	SonarOn
	SonarOff
	BackButtonOn
	BackButtonOff
	CmdStartR
	CmdStartL
	CmdStop
	DistReached
	LineLost
	LineFound
	BlackToBlue
	BlueToBlack

	ObstacleReached
	ObstacleAvoidable
	ObstacleInFront
	ObstacleAngle

	SlalomReached
	SlalomReachedAfter
	SlalomChallenge

	BlockChallenge
	BlockAreaIn
	LineOnPControl
	LineOnPIDControl

	RightCurve
	LeftCurve
	RightCurveReverse
	LeftCurveReverse
	Pause
	LeftTurn
	GoStraight
	RightTurn

	numEvents
)

var names = [numEvents]string{
	TouchOn:            "touch_On",
	TouchOff:           "touch_Off",
	SonarOn:            "sonar_On",
	SonarOff:           "sonar_Off",
	BackButtonOn:       "backButton_On",
	BackButtonOff:      "backButton_Off",
	CmdStartR:          "cmdStart_R",
	CmdStartL:          "cmdStart_L",
	CmdStop:            "cmdStop",
	DistReached:        "dist_reached",
	LineLost:           "line_lost",
	LineFound:          "line_found",
	BlackToBlue:        "bk2bl",
	BlueToBlack:        "bl2bk",
	ObstacleReached:    "obstcl_reached",
	ObstacleAvoidable:  "obstcl_avoidable",
	ObstacleInFront:    "obstcl_infront",
	ObstacleAngle:      "obstcl_angle",
	SlalomReached:      "slalom_reached",
	SlalomReachedAfter: "slalom_reached_af",
	SlalomChallenge:    "slalom_challenge",
	BlockChallenge:     "block_challenge",
	BlockAreaIn:        "block_area_in",
	LineOnPControl:     "line_on_p_cntl",
	LineOnPIDControl:   "line_on_pid_cntl",
	RightCurve:         "right_curve",
	LeftCurve:          "left_curve",
	RightCurveReverse:  "right_curve_rev",
	LeftCurveReverse:   "left_curve_rev",
	Pause:              "pause",
	LeftTurn:           "left_turn",
	GoStraight:         "go_straight",
	RightTurn:          "right_turn",
}

func (e Event) String() string {
	if e < 0 || e >= numEvents {
		return fmt.Sprintf("event(%d)", int(e))
	}
	return names[e]
}

// All returns every event in declaration order.
func All() []Event {
	all := make([]Event, 0, numEvents)
	for e := Event(0); e < numEvents; e++ {
		all = append(all, e)
	}
	return all
}

// Parse returns the event with the given string form.
func Parse(name string) (Event, error) {
	for e := Event(0); e < numEvents; e++ {
		if names[e] == name {
			return e, nil
		}
	}
	return 0, errors.Errorf("unknown event %q", name)
}

// A Trigger is an event together with the challenge step it was raised at. The
// step travels with the event so receivers never read the observer's counter.
type Trigger struct {
	Event Event
	Step  int
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s@%d", t.Event, t.Step)
}

// A Sink receives triggers. Delivery is fire-and-forget.
type Sink interface {
	SendTrigger(ctx context.Context, trigger Trigger)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, trigger Trigger)

// SendTrigger calls f.
func (f SinkFunc) SendTrigger(ctx context.Context, trigger Trigger) {
	f(ctx, trigger)
}
