package observer

import (
	"time"

	"go.viam.com/coursebot/components/sensor"
	"go.viam.com/coursebot/control"
	"go.viam.com/coursebot/event"
)

// edge remembers the last level of one condition and names the events raised
// when it flips.
type edge struct {
	level bool
	on    event.Event
	off   event.Event
}

func newEdge(on, off event.Event) *edge {
	return &edge{on: on, off: off}
}

// update returns an event only when level differs from the stored one.
func (e *edge) update(level bool) (event.Event, bool) {
	switch {
	case level && !e.level:
		e.level = true
		return e.on, true
	case !level && e.level:
		e.level = false
		return e.off, true
	default:
		return 0, false
	}
}

// colorPhase tracks whether the line under the sensor is black or blue from
// the smoothed slope of the grayscale. Entering and leaving blue use different
// blue-minus-red margins so noise around one threshold cannot toggle it.
type colorPhase struct {
	cfg      ColorPhaseConfig
	ma       *control.MovingAverage
	seeded   bool
	prevGS   int
	prevTime time.Time
	blue     bool
}

func newColorPhase(cfg ColorPhaseConfig, capacity int) (*colorPhase, error) {
	ma, err := control.NewMovingAverage(capacity)
	if err != nil {
		return nil, err
	}
	return &colorPhase{cfg: cfg, ma: ma}, nil
}

// slope returns the moving average of the grayscale derivative in units per second.
func (c *colorPhase) slope(gs int, now time.Time) int32 {
	if !c.seeded {
		c.seeded = true
		c.prevGS, c.prevTime = gs, now
		return c.ma.Add(0)
	}
	var sample int32
	if us := now.Sub(c.prevTime).Microseconds(); us > 0 {
		sample = int32(int64(gs-c.prevGS) * 1000000 / us)
	}
	c.prevGS, c.prevTime = gs, now
	return c.ma.Add(sample)
}

func (c *colorPhase) update(gs int, rgb sensor.RGB, now time.Time) (event.Event, bool) {
	ma := c.slope(gs, now)
	th := c.cfg.Derivative
	switch {
	case !c.blue && ma > th && rgb.B-rgb.R > c.cfg.EnterBlueMinusRed:
		c.blue = true
		return event.BlackToBlue, true
	case c.blue && ma < -th && rgb.B-rgb.R < c.cfg.ExitBlueMinusRed:
		c.blue = false
		return event.BlueToBlack, true
	default:
		return 0, false
	}
}
