package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading embedded defaults: %v", err)
	}

	if cfg.World.Width <= 0 || cfg.World.Height <= 0 {
		t.Error("defaults must carry positive world dimensions")
	}
	if len(cfg.Population.Profiles) == 0 {
		t.Fatal("defaults must carry personality profiles")
	}
	if cfg.Food.Capacity <= 0 {
		t.Error("defaults must carry a food capacity")
	}
	if _, ok := cfg.Actions["eat"]; !ok {
		t.Error("defaults must map the eat action")
	}

	// Derived values
	if cfg.Derived.WorldW32 != float32(cfg.World.Width) {
		t.Error("derived world width not computed")
	}
	if len(cfg.Derived.ProfileIndex) != len(cfg.Population.Profiles) {
		t.Error("profile index not derived")
	}
}

func TestLoadUserOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "override.yaml")
	if err := os.WriteFile(path, []byte("food:\n  capacity: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading override: %v", err)
	}
	if cfg.Food.Capacity != 99 {
		t.Errorf("capacity = %d, want 99 from override", cfg.Food.Capacity)
	}
	// Untouched fields keep defaults.
	if len(cfg.Population.Profiles) == 0 {
		t.Error("override wiped default profiles")
	}
}

func TestValidateFailures(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			"no profiles",
			func(c *Config) { c.Population.Profiles = nil },
			"personality profile",
		},
		{
			"missing action mapping",
			func(c *Config) { delete(c.Actions, "attack") },
			"animation mapping",
		},
		{
			"aggressiveness out of range",
			func(c *Config) { c.Population.Profiles[0].Aggressiveness = 1.5 },
			"aggressiveness",
		},
		{
			"inverted food interval",
			func(c *Config) { c.Food.IntervalMin = 9; c.Food.IntervalMax = 4 },
			"interval range inverted",
		},
		{
			"inverted wander timeout",
			func(c *Config) { c.Behavior.WanderTimeoutMin = 8; c.Behavior.WanderTimeoutMax = 3 },
			"timeout range inverted",
		},
		{
			"zero eat duration",
			func(c *Config) { c.Behavior.EatDuration = 0 },
			"eat duration",
		},
		{
			"bad world size",
			func(c *Config) { c.World.Width = 0 },
			"world dimensions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestEmptySurfacesAllowed(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Food.Surfaces = nil
	cfg.Food.Archetypes = nil

	// A spawner with nothing to place is recoverable at runtime, not a
	// setup failure.
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty surfaces/archetypes should validate, got %v", err)
	}
}
