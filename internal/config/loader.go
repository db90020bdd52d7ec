// Package config loads and validates run-wide agent policy from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it applies defaults for any unset values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./prpilot.yaml, ~/.prpilot/config.yaml.
// If none exists, a default config is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"prpilot.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".prpilot", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Default model for phases without an explicit override.
const defaultModel = "sonnet"

// ApplyDefaults fills unset fields with run defaults.
func ApplyDefaults(cfg *Config) {
	a := &cfg.Agent

	if a.Models.Plan == "" {
		a.Models.Plan = defaultModel
	}
	if a.Models.PlanReview == "" {
		a.Models.PlanReview = defaultModel
	}
	if a.Models.Execute == "" {
		a.Models.Execute = defaultModel
	}
	if a.Models.CodeReview == "" {
		a.Models.CodeReview = defaultModel
	}
	if a.Models.TestFix == "" {
		a.Models.TestFix = a.Models.Execute
	}

	if a.Turns.Plan <= 0 {
		a.Turns.Plan = 30
	}
	if a.Turns.PlanReview <= 0 {
		a.Turns.PlanReview = 15
	}
	if a.Turns.Execute <= 0 {
		a.Turns.Execute = 80
	}
	if a.Turns.CodeReview <= 0 {
		a.Turns.CodeReview = 20
	}
	if a.Turns.TestFix <= 0 {
		a.Turns.TestFix = 40
	}

	if a.Cycles.PlanReview <= 0 {
		a.Cycles.PlanReview = 2
	}
	if a.Cycles.CodeReview <= 0 {
		a.Cycles.CodeReview = 2
	}
	if a.Cycles.TestFix <= 0 {
		a.Cycles.TestFix = 3
	}

	if a.MaxBudgetUSD <= 0 {
		a.MaxBudgetUSD = 10.0
	}
	if a.BranchPrefix == "" {
		a.BranchPrefix = "prpilot/"
	}
	if a.CheckTimeout == "" {
		a.CheckTimeout = "5m"
	}
}
