package mastery

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable constants of the mastery model. Zero values are
// never meaningful; always start from DefaultConfig.
type Config struct {
	// Forgetting-curve strength factor inputs.
	BaseStrengthFactor float64 `yaml:"base_strength_factor"`
	ContextBonus       float64 `yaml:"context_bonus"`
	SuccessBonus       float64 `yaml:"success_bonus"`
	ShieldBonus        float64 `yaml:"shield_bonus"`

	// Decay floor and shape.
	MuscleMemoryFloor float64 `yaml:"muscle_memory_floor"`
	FloorDamping      float64 `yaml:"floor_damping"`

	// Score range. MasteryLine is the "mastered" mark; Ceiling leaves
	// headroom above it for over-learning.
	Ceiling            float64 `yaml:"ceiling"`
	MasteryLine        float64 `yaml:"mastery_line"`
	OverlearnIncrement float64 `yaml:"overlearn_increment"`

	// Risk classification thresholds (score >= threshold).
	SafeThreshold  float64 `yaml:"safe_threshold"`
	WatchThreshold float64 `yaml:"watch_threshold"`
	RiskThreshold  float64 `yaml:"risk_threshold"`

	// Shield quality requirements per tier (current decayed score).
	SilverQuality   float64 `yaml:"silver_quality"`
	GoldQuality     float64 `yaml:"gold_quality"`
	PlatinumQuality float64 `yaml:"platinum_quality"`

	// Progression gate clearance: a prerequisite passes at this effective
	// score with at least this many attempts behind it.
	GateThreshold   float64 `yaml:"gate_threshold"`
	GateMinAttempts int     `yaml:"gate_min_attempts"`
}

func DefaultConfig() Config {
	return Config{
		BaseStrengthFactor: 7.0,
		ContextBonus:       2.0,
		SuccessBonus:       5.0,
		ShieldBonus:        5.0,
		MuscleMemoryFloor:  40.0,
		FloorDamping:       0.9,
		Ceiling:            120.0,
		MasteryLine:        100.0,
		OverlearnIncrement: 5.0,
		SafeThreshold:      90.0,
		WatchThreshold:     70.0,
		RiskThreshold:      50.0,
		SilverQuality:      80.0,
		GoldQuality:        90.0,
		PlatinumQuality:    95.0,
		GateThreshold:      80.0,
		GateMinAttempts:    3,
	}
}

// LoadConfig reads YAML overrides from path on top of the defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read mastery config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse mastery config: %w", err)
	}
	return cfg, nil
}
