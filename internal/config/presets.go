package config

import "sort"

func preset(mod func(c *Config)) *Config {
	c := DefaultConfig()
	mod(c)
	return c
}

var Presets = map[string]*Config{
	"default": DefaultConfig(),
	"stiff": preset(func(c *Config) {
		c.Drive.Stiffness = 1.0
		c.Drive.Damping = 0.3
	}),
	"underdamped": preset(func(c *Config) {
		c.Drive.Stiffness = 0.4
		c.Drive.Damping = 0.02
		c.Duration = 1500
	}),
	"overdamped": preset(func(c *Config) {
		c.Drive.Stiffness = 0.1
		c.Drive.Damping = 1.5
	}),
	"limit-stop": preset(func(c *Config) {
		c.Drive.Stiffness = 0.5
		c.Drive.Damping = 0.05
		c.Drive.EqAngle = 20
		c.Drive.MinAngle = -30
		c.Drive.MaxAngle = 40
		c.Drive.StartAngle = -30
	}),
	"actuated": preset(func(c *Config) {
		c.Controller = "pid"
		c.SetTarget(30)
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
