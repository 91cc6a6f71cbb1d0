// Package config loads named solver profiles from TOML documents.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// SolverProfile configures the solver driver's three knobs (spec.md §4.6):
// wall-clock limit, worker count, and debug logging.
type SolverProfile struct {
	Name           string   `toml:"name"`
	WallClockLimit Duration `toml:"wall_clock_limit"`
	Workers        int      `toml:"workers"`
	Debug          bool     `toml:"debug"`
}

// Duration wraps time.Duration so profiles can write "300s"/"1800s" in TOML
// rather than raw nanosecond integers.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML string values.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// DefaultProfile is the interactive default: 300 second wall clock, 8 workers.
func DefaultProfile() SolverProfile {
	return SolverProfile{
		Name:           "default",
		WallClockLimit: Duration{300 * time.Second},
		Workers:        8,
		Debug:          false,
	}
}

// ProductionProfile is the batch default: 1800 second wall clock, 8 workers.
func ProductionProfile() SolverProfile {
	return SolverProfile{
		Name:           "production",
		WallClockLimit: Duration{1800 * time.Second},
		Workers:        8,
		Debug:          false,
	}
}

// Named resolves a built-in profile name ("default" or "production").
func Named(name string) (SolverProfile, error) {
	switch name {
	case "", "default":
		return DefaultProfile(), nil
	case "production":
		return ProductionProfile(), nil
	default:
		return SolverProfile{}, fmt.Errorf("config: unknown profile %q", name)
	}
}

// Load reads a SolverProfile from a TOML file at path, starting from the
// named built-in profile's defaults so the file need only override what it
// wants to change.
func Load(path string, base SolverProfile) (SolverProfile, error) {
	profile := base
	if _, err := toml.DecodeFile(path, &profile); err != nil {
		return SolverProfile{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return profile, nil
}
