package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PIDConfig holds the gains and limits of a PID block.
type PIDConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
	// IntegralLimit bounds the absolute value of the integral term.
	IntegralLimit float64 `json:"integral_limit"`
	// OutputLimit bounds the absolute value of the output.
	OutputLimit float64 `json:"output_limit"`
}

// Validate ensures the gains can form a controller.
func (cfg PIDConfig) Validate() error {
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return errors.New("pid block should have at least one Ki, Kp or Kd field")
	}
	if cfg.IntegralLimit < 0 {
		return errors.Errorf("pid integral limit must be non-negative, got %v", cfg.IntegralLimit)
	}
	if cfg.OutputLimit <= 0 {
		return errors.Errorf("pid output limit must be positive, got %v", cfg.OutputLimit)
	}
	return nil
}

// PID is the standard discrete PID controller with a clamped integral and a
// symmetric output clamp.
type PID struct {
	mu    sync.Mutex
	cfg   PIDConfig
	error float64
	int   float64
	sat   int
	y     float64
	// primed is false until the first sample, so the derivative term does not kick.
	primed bool
}

// NewPID validates cfg and returns a reset controller.
func NewPID(cfg PIDConfig) (*PID, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PID{cfg: cfg}, nil
}

// Next returns the controller output for the given error after dt. Returns false
// when the integral is saturating in the direction of the error; the last
// valid output is returned in that case.
func (p *PID) Next(e float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	dtS := dt.Seconds()
	if dtS <= 0 {
		return p.y, false
	}
	if (p.sat > 0 && e > 0) || (p.sat < 0 && e < 0) {
		return p.y, false
	}
	p.int += p.cfg.Ki * e * dtS
	switch {
	case p.int > p.cfg.IntegralLimit:
		p.int = p.cfg.IntegralLimit
		p.sat = 1
	case p.int < -p.cfg.IntegralLimit:
		p.int = -p.cfg.IntegralLimit
		p.sat = -1
	default:
		p.sat = 0
	}
	var deriv float64
	if p.primed {
		deriv = (e - p.error) / dtS
	}
	output := p.cfg.Kp*e + p.int + p.cfg.Kd*deriv
	p.error = e
	p.primed = true
	p.y = math.Max(-p.cfg.OutputLimit, math.Min(p.cfg.OutputLimit, output))
	return p.y, true
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.int = 0
	p.error = 0
	p.sat = 0
	p.y = 0
	p.primed = false
}
