package navigator

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/control"
	"go.viam.com/coursebot/logging"
)

// LineTracerName is the name the line tracer reports.
const LineTracerName = "LineTracer"

// TraceMode selects the feedback signal of the line tracer.
type TraceMode int

const (
	// TracePID follows the grayscale edge with the full PID loop.
	TracePID TraceMode = iota
	// TraceP follows reflected brightness with a proportional gain only.
	TraceP
)

func (m TraceMode) String() string {
	if m == TraceP {
		return "p"
	}
	return "pid"
}

// LineReading is the part of a sensor frame the line tracer consumes.
type LineReading struct {
	GrayScale  int
	Brightness int
}

// A LineSensor supplies the latest filtered line reading.
type LineSensor interface {
	LineReading() LineReading
}

// LineTracerConfig tunes the line tracer.
type LineTracerConfig struct {
	Speed            int               `json:"speed"`
	GrayScaleTarget  int               `json:"grayscale_target"`
	BrightnessTarget int               `json:"brightness_target"`
	BrightnessGain   float64           `json:"brightness_gain"`
	PID              control.PIDConfig `json:"pid"`
}

// Validate ensures the tracer can be built from cfg.
func (cfg LineTracerConfig) Validate() error {
	if cfg.Speed < -motor.MaxPWM || cfg.Speed > motor.MaxPWM {
		return errors.Errorf("tracer speed must be within [-%d, %d], got %d", motor.MaxPWM, motor.MaxPWM, cfg.Speed)
	}
	if cfg.BrightnessGain < 0 {
		return errors.Errorf("brightness gain must be non-negative, got %v", cfg.BrightnessGain)
	}
	return cfg.PID.Validate()
}

// DefaultLineTracerConfig returns the tuning used on the course mat.
func DefaultLineTracerConfig() LineTracerConfig {
	return LineTracerConfig{
		Speed:            30,
		GrayScaleTarget:  45,
		BrightnessTarget: 20,
		BrightnessGain:   0.8,
		PID:              control.PIDConfig{Kp: 0.6, Ki: 0.4, Kd: 0.02, IntegralLimit: 40, OutputLimit: 40},
	}
}

var _ Navigator = &LineTracer{}

// A LineTracer follows one edge of the line. A positive error, i.e. more
// white than the target, steers away from the white toward the line.
type LineTracer struct {
	wheels

	cfg    LineTracerConfig
	sensor LineSensor
	period time.Duration
	// edge is +1 when tracing the left edge of the line and -1 for the right edge.
	edge int

	mu    sync.Mutex
	mode  TraceMode
	speed int
	pid   *control.PID
}

// NewLineTracer returns a line tracer in PID mode. rightEdge selects which side
// of the line is followed; period is the tick period used for the PID terms.
func NewLineTracer(
	left, right motor.Motor,
	lineSensor LineSensor,
	cfg LineTracerConfig,
	period time.Duration,
	rightEdge bool,
	logger logging.Logger,
) (*LineTracer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if period <= 0 {
		return nil, errors.Errorf("tracer period must be positive, got %v", period)
	}
	pid, err := control.NewPID(cfg.PID)
	if err != nil {
		return nil, err
	}
	edge := 1
	if rightEdge {
		edge = -1
	}
	return &LineTracer{
		wheels: wheels{name: LineTracerName, left: left, right: right, logger: logger},
		cfg:    cfg,
		sensor: lineSensor,
		period: period,
		edge:   edge,
		mode:   TracePID,
		speed:  cfg.Speed,
		pid:    pid,
	}, nil
}

// SetMode switches the feedback signal and clears the PID history.
func (lt *LineTracer) SetMode(mode TraceMode) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.mode = mode
	lt.pid.Reset()
}

// Mode returns the current feedback signal.
func (lt *LineTracer) Mode() TraceMode {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.mode
}

// SetPwmLR sets the forward speed to the mean of the two duties.
func (lt *LineTracer) SetPwmLR(cmd MotionCommand) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.speed = (int(cmd.Left) + int(cmd.Right)) / 2
}

// Freeze holds the wheels still.
func (lt *LineTracer) Freeze() {
	lt.frozen.Store(true)
}

// Unfreeze resumes tracing with a fresh PID history.
func (lt *LineTracer) Unfreeze() {
	lt.mu.Lock()
	lt.pid.Reset()
	lt.mu.Unlock()
	lt.frozen.Store(false)
}

// Operate computes one steering correction and drives the wheels.
func (lt *LineTracer) Operate(ctx context.Context) {
	if lt.frozen.Load() {
		lt.drive(ctx, 0, 0)
		return
	}
	reading := lt.sensor.LineReading()

	lt.mu.Lock()
	var turn float64
	switch lt.mode {
	case TraceP:
		turn = lt.cfg.BrightnessGain * float64(reading.Brightness-lt.cfg.BrightnessTarget)
	case TracePID:
		turn, _ = lt.pid.Next(float64(reading.GrayScale-lt.cfg.GrayScaleTarget), lt.period)
	}
	speed := lt.speed
	lt.mu.Unlock()

	steer := int(turn) * lt.edge
	lt.drive(ctx, speed+steer, speed-steer)
}
