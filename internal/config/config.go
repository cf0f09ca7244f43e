package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/mechanism"
	"github.com/san-kum/fourbar/internal/models"
)

const (
	DefaultDuration   = 600.0
	DefaultStartAngle = 45.0
	DefaultIntegrator = "symplectic"
	DefaultController = "none"
	DefaultDataDir    = ".fourbar"
	DefaultKp         = 1.0
	DefaultKi         = 0.05
	DefaultKd         = 0.5
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Integrator       string           `yaml:"integrator"`
	Controller       string           `yaml:"controller"`
	Dt               float64          `yaml:"dt"`
	Duration         float64          `yaml:"duration"`
	StopOnSettle     bool             `yaml:"stop_on_settle"`
	DataDir          string           `yaml:"data_dir"`
	Drive            DriveConfig      `yaml:"drive"`
	Geometry         linkage.Geometry `yaml:"geometry"`
	ControllerParams ControllerConfig `yaml:"controller_params"`
}

// DriveConfig parameterises the spring-damper on the input link. Angles
// are in degrees.
type DriveConfig struct {
	Stiffness  float64 `yaml:"stiffness" json:"stiffness"`
	Damping    float64 `yaml:"damping" json:"damping"`
	EqAngle    float64 `yaml:"eq_angle" json:"eq_angle"`
	MinAngle   float64 `yaml:"min_angle" json:"min_angle"`
	MaxAngle   float64 `yaml:"max_angle" json:"max_angle"`
	StartAngle float64 `yaml:"start_angle" json:"start_angle"`
}

type ControllerConfig struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
	// Target is the pid set point in degrees. Unset follows the drive's
	// equilibrium angle.
	Target    *float64 `yaml:"target,omitempty"`
	MaxTorque float64  `yaml:"max_torque,omitempty"`
	// Torque is the output of the constant controller.
	Torque float64 `yaml:"torque,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Integrator:   DefaultIntegrator,
		Controller:   DefaultController,
		Dt:           mechanism.DefaultDt,
		Duration:     DefaultDuration,
		StopOnSettle: true,
		DataDir:      DefaultDataDir,
		Drive: DriveConfig{
			Stiffness:  models.DefaultStiffness,
			Damping:    models.DefaultDamping,
			EqAngle:    models.DefaultEqAngle,
			MinAngle:   models.DefaultMinAngle,
			MaxAngle:   models.DefaultMaxAngle,
			StartAngle: DefaultStartAngle,
		},
		Geometry: linkage.DefaultGeometry(),
		ControllerParams: ControllerConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads path on top of a copy of base, so keys missing from the
// file keep the base values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := base.Clone()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Clone returns a copy that shares nothing with c.
func (c *Config) Clone() *Config {
	out := *c
	if c.ControllerParams.Target != nil {
		out.SetTarget(*c.ControllerParams.Target)
	}
	return &out
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalid, c.Duration)
	}
	if c.Drive.MinAngle > c.Drive.MaxAngle {
		return fmt.Errorf("%w: min angle %g above max angle %g", ErrInvalid, c.Drive.MinAngle, c.Drive.MaxAngle)
	}
	if c.Drive.Stiffness < 0 || c.Drive.Damping < 0 {
		return fmt.Errorf("%w: stiffness and damping must be non-negative", ErrInvalid)
	}
	if err := c.Geometry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Model builds the spring-damper described by the drive section.
func (c *Config) Model() *models.SpringDamper {
	return &models.SpringDamper{
		K:        c.Drive.Stiffness,
		C:        c.Drive.Damping,
		EqAngle:  c.Drive.EqAngle,
		MinAngle: c.Drive.MinAngle,
		MaxAngle: c.Drive.MaxAngle,
	}
}

func (c *Config) GetInitState() []float64 {
	return []float64{c.Drive.StartAngle, 0}
}

// GetControllerParams flattens the controller section for the registry.
func (c *Config) GetControllerParams() map[string]float64 {
	target := c.Drive.EqAngle
	if c.ControllerParams.Target != nil {
		target = *c.ControllerParams.Target
	}
	return map[string]float64{
		"kp":         c.ControllerParams.Kp,
		"ki":         c.ControllerParams.Ki,
		"kd":         c.ControllerParams.Kd,
		"target":     target,
		"max_torque": c.ControllerParams.MaxTorque,
		"torque":     c.ControllerParams.Torque,
	}
}

// SetTarget pins the pid set point.
func (c *Config) SetTarget(deg float64) {
	c.ControllerParams.Target = &deg
}

// DriveParams lists the names accepted by SetDriveParam.
var DriveParams = []string{"k", "c", "eq", "min", "max", "start"}

// SetDriveParam sets one drive value by its short name.
func (c *Config) SetDriveParam(name string, v float64) error {
	switch name {
	case "k":
		c.Drive.Stiffness = v
	case "c":
		c.Drive.Damping = v
	case "eq":
		c.Drive.EqAngle = v
	case "min":
		c.Drive.MinAngle = v
	case "max":
		c.Drive.MaxAngle = v
	case "start":
		c.Drive.StartAngle = v
	default:
		return fmt.Errorf("%w: unknown drive parameter %q", ErrInvalid, name)
	}
	return nil
}
