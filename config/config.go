// Package config defines the run configuration and how it is read from disk.
package config

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/coursebot/components/motor"
	"go.viam.com/coursebot/course"
	"go.viam.com/coursebot/logging"
	"go.viam.com/coursebot/navigator"
	"go.viam.com/coursebot/observer"
)

// Default tuning of the run outside the observer and tracer.
const (
	DefaultBlindSpeed        = 40
	DefaultDepartureDistance = 700
	DefaultFinalApproach     = 250
)

// LogConfig selects the run logger level.
type LogConfig struct {
	Level string `json:"level"`
}

// Config is the full configuration of a run.
type Config struct {
	// Course is the side of the course, "L" or "R".
	Course   string                     `json:"course"`
	Observer observer.Config            `json:"observer"`
	Tracer   navigator.LineTracerConfig `json:"tracer"`
	// RightEdge makes the tracer follow the right edge of the line.
	RightEdge         bool      `json:"right_edge"`
	BlindSpeed        int       `json:"blind_speed"`
	DepartureDistance float64   `json:"departure_distance_mm"`
	FinalApproach     float64   `json:"final_approach_mm"`
	Log               LogConfig `json:"log"`
}

// Default returns the configuration used on the competition course.
func Default() *Config {
	return &Config{
		Course:            course.Left.String(),
		Observer:          observer.DefaultConfig(),
		Tracer:            navigator.DefaultLineTracerConfig(),
		BlindSpeed:        DefaultBlindSpeed,
		DepartureDistance: DefaultDepartureDistance,
		FinalApproach:     DefaultFinalApproach,
		Log:               LogConfig{Level: "info"},
	}
}

// Side returns the parsed course side.
func (c *Config) Side() (course.Side, error) {
	return course.ParseSide(c.Course)
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() (logging.Level, error) {
	return logging.LevelFromString(c.Log.Level)
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	prefix := func(field string) string {
		if path == "" {
			return field
		}
		return path + "." + field
	}
	if _, err := c.Side(); err != nil {
		return utils.NewConfigValidationError(prefix("course"), err)
	}
	if err := c.Observer.Validate(prefix("observer")); err != nil {
		return err
	}
	if err := c.Tracer.Validate(); err != nil {
		return utils.NewConfigValidationError(prefix("tracer"), err)
	}
	if c.BlindSpeed < -motor.MaxPWM || c.BlindSpeed > motor.MaxPWM {
		return utils.NewConfigValidationError(prefix("blind_speed"),
			errors.Errorf("must be within [-%d, %d], got %d", motor.MaxPWM, motor.MaxPWM, c.BlindSpeed))
	}
	if c.DepartureDistance <= 0 {
		return utils.NewConfigValidationError(prefix("departure_distance_mm"),
			errors.Errorf("must be positive, got %v", c.DepartureDistance))
	}
	if c.FinalApproach < 0 {
		return utils.NewConfigValidationError(prefix("final_approach_mm"),
			errors.Errorf("must not be negative, got %v", c.FinalApproach))
	}
	if _, err := c.LogLevel(); err != nil {
		return utils.NewConfigValidationError(prefix("log"), err)
	}
	return nil
}

// Read reads a config from the given file, expanding ${VAR} references from
// the environment first.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config %q", filePath)
	}
	return FromReader(bytes.NewReader(buf))
}

// FromReader decodes a config over the defaults and validates it. Durations
// may be given as strings such as "10ms" or as nanoseconds.
func FromReader(r io.Reader) (*Config, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "cannot parse config")
	}
	cfg := Default()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "cannot decode config")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg as indented JSON, the format Read accepts.
func Write(filePath string, cfg *Config) error {
	buf, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec
	return os.WriteFile(filePath, append(buf, '\n'), 0o644)
}
