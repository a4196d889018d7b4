package physics

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every validation failure returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid physics config")

// ContactMode selects how contacts are generated for candidate pairs.
type ContactMode string

const (
	// ContactAuto uses GJK/EPA when both colliders have a convex shape and
	// AABB overlap otherwise.
	ContactAuto        ContactMode = "auto"
	ContactApproximate ContactMode = "approximate"
	ContactConvex      ContactMode = "convex"
)

// SolverConfig holds the resolver constants.
type SolverConfig struct {
	// |v_rel·n| below this counts as resting.
	RestingThreshold float32 `yaml:"resting_threshold"`
	// Penetration tolerated without positional correction.
	PenetrationSlop float32 `yaml:"penetration_slop"`
	// Fraction of excess penetration removed per tick.
	CorrectionPercent float32 `yaml:"correction_percent"`
	// Velocity passes over the contact set. Positional correction runs once.
	Iterations int `yaml:"iterations"`
}

type NarrowConfig struct {
	GJKMaxIterations int `yaml:"gjk_max_iterations"`
	// EPA stops once a new support point improves the closest face distance
	// by less than this.
	EPATolerance     float32 `yaml:"epa_tolerance"`
	EPAMaxIterations int     `yaml:"epa_max_iterations"`
}

type ContactConfig struct {
	Mode ContactMode `yaml:"mode"`
	// When set, a pair is only tested if each collider's layer is in the
	// other's mask.
	LayerFiltering bool `yaml:"layer_filtering"`
}

type Config struct {
	Gravity       mgl32.Vec3    `yaml:"gravity,flow"`
	FixedTimestep float32       `yaml:"fixed_timestep"`
	TreeMargin    float32       `yaml:"tree_margin"`
	Solver        SolverConfig  `yaml:"solver"`
	Narrow        NarrowConfig  `yaml:"narrow"`
	Contacts      ContactConfig `yaml:"contacts"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:       mgl32.Vec3{0, -9.81, 0},
		FixedTimestep: 1.0 / 60.0,
		TreeMargin:    0.1,
		Solver: SolverConfig{
			RestingThreshold:  0.2,
			PenetrationSlop:   0.01,
			CorrectionPercent: 0.2,
			Iterations:        1,
		},
		Narrow: NarrowConfig{
			GJKMaxIterations: 64,
			EPATolerance:     1e-4,
			EPAMaxIterations: 64,
		},
		Contacts: ContactConfig{
			Mode: ContactAuto,
		},
	}
}

// LoadConfig decodes YAML on top of DefaultConfig and validates the result.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode physics config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.FixedTimestep <= 0:
		return fmt.Errorf("%w: fixed_timestep must be positive, got %v", ErrInvalidConfig, c.FixedTimestep)
	case c.TreeMargin < 0:
		return fmt.Errorf("%w: tree_margin must not be negative, got %v", ErrInvalidConfig, c.TreeMargin)
	case c.Solver.RestingThreshold < 0:
		return fmt.Errorf("%w: solver.resting_threshold must not be negative", ErrInvalidConfig)
	case c.Solver.PenetrationSlop < 0:
		return fmt.Errorf("%w: solver.penetration_slop must not be negative", ErrInvalidConfig)
	case c.Solver.CorrectionPercent < 0 || c.Solver.CorrectionPercent > 1:
		return fmt.Errorf("%w: solver.correction_percent must be within [0, 1], got %v", ErrInvalidConfig, c.Solver.CorrectionPercent)
	case c.Solver.Iterations < 1:
		return fmt.Errorf("%w: solver.iterations must be at least 1", ErrInvalidConfig)
	case c.Narrow.GJKMaxIterations < 1 || c.Narrow.EPAMaxIterations < 1:
		return fmt.Errorf("%w: narrow iteration caps must be at least 1", ErrInvalidConfig)
	case c.Narrow.EPATolerance <= 0:
		return fmt.Errorf("%w: narrow.epa_tolerance must be positive", ErrInvalidConfig)
	}
	switch c.Contacts.Mode {
	case ContactAuto, ContactApproximate, ContactConvex:
	default:
		return fmt.Errorf("%w: unknown contacts.mode %q", ErrInvalidConfig, c.Contacts.Mode)
	}
	return nil
}

// LoadConfigFile reads path with LoadConfig. An empty path yields
// DefaultConfig.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open physics config: %w", err)
	}
	defer f.Close()
	return LoadConfig(f)
}
