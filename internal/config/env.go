package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const EnvPrefix = "FOURBAR_"

// Environment returns the process environment merged with the given
// dotenv files. Variables already set in the process win, and missing
// files are skipped.
func Environment(files ...string) (map[string]string, error) {
	env := make(map[string]string)
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		vals, err := godotenv.Read(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		for k, v := range vals {
			if _, ok := env[k]; !ok {
				env[k] = v
			}
		}
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

// ApplyEnv overrides cfg with FOURBAR_* variables from env.
func ApplyEnv(cfg *Config, env map[string]string) error {
	floats := map[string]*float64{
		"DT":          &cfg.Dt,
		"DURATION":    &cfg.Duration,
		"STIFFNESS":   &cfg.Drive.Stiffness,
		"DAMPING":     &cfg.Drive.Damping,
		"EQ_ANGLE":    &cfg.Drive.EqAngle,
		"MIN_ANGLE":   &cfg.Drive.MinAngle,
		"MAX_ANGLE":   &cfg.Drive.MaxAngle,
		"START_ANGLE": &cfg.Drive.StartAngle,
	}
	for name, dst := range floats {
		raw, ok := env[EnvPrefix+name]
		if !ok || raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s%s=%q: %v", ErrInvalid, EnvPrefix, name, raw, err)
		}
		*dst = v
	}

	if v := env[EnvPrefix+"INTEGRATOR"]; v != "" {
		cfg.Integrator = v
	}
	if v := env[EnvPrefix+"CONTROLLER"]; v != "" {
		cfg.Controller = v
	}
	if v := env[EnvPrefix+"DATA"]; v != "" {
		cfg.DataDir = v
	}
	return nil
}
