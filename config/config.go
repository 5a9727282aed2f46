// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World      WorldConfig       `yaml:"world"`
	Population PopulationConfig  `yaml:"population"`
	Behavior   BehaviorConfig    `yaml:"behavior"`
	Food       FoodConfig        `yaml:"food"`
	Actions    map[string]string `yaml:"actions"`
	Telemetry  TelemetryConfig   `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world dimensions and the RNG seed.
type WorldConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Seed   int64   `yaml:"seed"`
}

// PopulationConfig holds the initial population and personality profiles.
type PopulationConfig struct {
	InitialPigeons int             `yaml:"initial_pigeons"`
	Profiles       []ProfileConfig `yaml:"profiles"`
}

// ProfileConfig is a named personality template assigned to pigeons at
// spawn.
type ProfileConfig struct {
	Name            string  `yaml:"name"`
	Aggressiveness  float64 `yaml:"aggressiveness"`   // 0..1
	DetectionRadius float64 `yaml:"detection_radius"` // food perception range
	WalkSpeed       float64 `yaml:"walk_speed"`
	RunSpeed        float64 `yaml:"run_speed"`
	BeakOffset      float64 `yaml:"beak_offset"` // effector point distance
}

// BehaviorConfig holds the state machine thresholds.
type BehaviorConfig struct {
	EatingRange      float64 `yaml:"eating_range"`
	ContentionRadius float64 `yaml:"contention_radius"`
	InteractionRange float64 `yaml:"interaction_range"`
	DominanceFactor  float64 `yaml:"dominance_factor"`
	EatDuration      float64 `yaml:"eat_duration"`
	RetreatDistance  float64 `yaml:"retreat_distance"`
	WanderRadius     float64 `yaml:"wander_radius"`
	WanderTimeoutMin float64 `yaml:"wander_timeout_min"`
	WanderTimeoutMax float64 `yaml:"wander_timeout_max"`
	ArriveEpsilon    float64 `yaml:"arrive_epsilon"`
}

// FoodConfig holds spawner parameters, surfaces, and food archetypes.
type FoodConfig struct {
	Capacity    int                   `yaml:"capacity"`
	IntervalMin float64               `yaml:"interval_min"`
	IntervalMax float64               `yaml:"interval_max"`
	EdgeMargin  float64               `yaml:"edge_margin"`
	DropHeight  float64               `yaml:"drop_height"`
	Surfaces    []SurfaceConfig       `yaml:"surfaces"`
	Archetypes  []FoodArchetypeConfig `yaml:"archetypes"`
}

// SurfaceConfig describes a spawn surface footprint. X/Y is the footprint's
// min corner on the ground plane.
type SurfaceConfig struct {
	Name   string  `yaml:"name"`
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Top    float64 `yaml:"top"`
}

// FoodArchetypeConfig is a food template.
type FoodArchetypeConfig struct {
	Name      string  `yaml:"name"`
	Nutrition float64 `yaml:"nutrition"`
}

// TelemetryConfig holds stats window and output settings.
type TelemetryConfig struct {
	StatsWindow float64 `yaml:"stats_window"` // seconds per stats window
	OutputDir   string  `yaml:"output_dir"`   // empty = output disabled
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	WorldW32     float32
	WorldH32     float32
	ProfileIndex map[string]uint8 // name -> index for profile lookup
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The merged config is
// validated: misconfiguration is reported here, at setup time, never
// mid-tick.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.computeDerived()

	return cfg, nil
}

// Validate checks for fatal-class misconfiguration. Empty surface or
// archetype lists are deliberately allowed: a spawner with nothing to place
// is a recoverable no-op, not a setup failure.
func (c *Config) Validate() error {
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("config: world dimensions must be positive, got %gx%g", c.World.Width, c.World.Height)
	}
	if len(c.Population.Profiles) == 0 {
		return fmt.Errorf("config: at least one personality profile is required")
	}
	for _, p := range c.Population.Profiles {
		if p.Aggressiveness < 0 || p.Aggressiveness > 1 {
			return fmt.Errorf("config: profile %q aggressiveness %g outside [0,1]", p.Name, p.Aggressiveness)
		}
		if p.DetectionRadius <= 0 {
			return fmt.Errorf("config: profile %q detection radius must be positive", p.Name)
		}
	}
	for _, action := range []string{"idle", "eat", "attack"} {
		if _, ok := c.Actions[action]; !ok {
			return fmt.Errorf("config: missing animation mapping for action %q", action)
		}
	}
	if c.Food.IntervalMax < c.Food.IntervalMin {
		return fmt.Errorf("config: food interval range inverted: [%g, %g]", c.Food.IntervalMin, c.Food.IntervalMax)
	}
	if c.Behavior.WanderTimeoutMax < c.Behavior.WanderTimeoutMin {
		return fmt.Errorf("config: wander timeout range inverted: [%g, %g]", c.Behavior.WanderTimeoutMin, c.Behavior.WanderTimeoutMax)
	}
	if c.Behavior.EatDuration <= 0 {
		return fmt.Errorf("config: eat duration must be positive, got %g", c.Behavior.EatDuration)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.WorldW32 = float32(c.World.Width)
	c.Derived.WorldH32 = float32(c.World.Height)

	c.Derived.ProfileIndex = make(map[string]uint8, len(c.Population.Profiles))
	for i, p := range c.Population.Profiles {
		c.Derived.ProfileIndex[p.Name] = uint8(i)
	}
}

// WriteYAML saves the config to a file (used to snapshot run parameters).
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
