package observer

import (
	"time"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/coursebot/control"
	"go.viam.com/coursebot/odometry"
)

// Band is an inclusive sonar distance range in cm.
type Band struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether distance is within the band.
func (b Band) Contains(distance int) bool {
	return distance >= b.From && distance <= b.To
}

// ColorPhaseConfig holds the thresholds of the black/blue line color detector.
type ColorPhaseConfig struct {
	// Derivative is the smoothed grayscale slope, in grayscale units per second,
	// that must be exceeded in either direction.
	Derivative int32 `json:"derivative"`
	// EnterBlueMinusRed is the b-r margin above which a rising slope means blue.
	EnterBlueMinusRed int `json:"enter_blue_minus_red"`
	// ExitBlueMinusRed is the b-r margin below which a falling slope means black again.
	ExitBlueMinusRed int `json:"exit_blue_minus_red"`
}

// Config tunes the observer.
type Config struct {
	Geometry              odometry.Geometry `json:"geometry"`
	Period                time.Duration     `json:"period"`
	TraceInterval         time.Duration     `json:"trace_interval"`
	LostGrayScale         int               `json:"lost_grayscale"`
	SonarAlert            Band              `json:"sonar_alert"`
	ColorPhase            ColorPhaseConfig  `json:"color_phase"`
	FIRCoefficients       []float64         `json:"fir_coefficients"`
	MovingAverageCapacity int               `json:"moving_average_capacity"`
}

// DefaultConfig returns the tuning used on the competition course.
func DefaultConfig() Config {
	return Config{
		Geometry:      odometry.DefaultGeometry(),
		Period:        10 * time.Millisecond,
		TraceInterval: time.Second,
		LostGrayScale: 90,
		SonarAlert:    Band{From: 0, To: 10},
		ColorPhase: ColorPhaseConfig{
			Derivative:        150,
			EnterBlueMinusRed: 60,
			ExitBlueMinusRed:  40,
		},
		FIRCoefficients:       append([]float64(nil), control.DefaultFIRCoefficients...),
		MovingAverageCapacity: 10,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if err := cfg.Geometry.Validate(path + ".geometry"); err != nil {
		return err
	}
	if cfg.Period <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("period must be positive, got %v", cfg.Period))
	}
	if cfg.TraceInterval < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("trace_interval must not be negative, got %v", cfg.TraceInterval))
	}
	if cfg.SonarAlert.From > cfg.SonarAlert.To {
		return utils.NewConfigValidationError(path+".sonar_alert",
			errors.Errorf("from %d is past to %d", cfg.SonarAlert.From, cfg.SonarAlert.To))
	}
	if cfg.ColorPhase.Derivative <= 0 {
		return utils.NewConfigValidationError(path+".color_phase", errors.New("derivative must be positive"))
	}
	if cfg.ColorPhase.ExitBlueMinusRed > cfg.ColorPhase.EnterBlueMinusRed {
		return utils.NewConfigValidationError(path+".color_phase",
			errors.Errorf("exit_blue_minus_red %d must not exceed enter_blue_minus_red %d",
				cfg.ColorPhase.ExitBlueMinusRed, cfg.ColorPhase.EnterBlueMinusRed))
	}
	if len(cfg.FIRCoefficients) == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "fir_coefficients")
	}
	if cfg.MovingAverageCapacity <= 0 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("moving_average_capacity must be positive, got %d", cfg.MovingAverageCapacity))
	}
	return nil
}
