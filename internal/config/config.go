// Package config loads engine policy from .sge.kdl or sge.toml. KDL is the
// primary format; TOML is accepted for projects that keep all tool settings
// in one sge.toml. Missing files are not errors, defaults apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/standardbeagle/sge/internal/sgerrors"
)

// Project identifies the workspace being indexed
type Project struct {
	Root string `toml:"root"`
	Name string `toml:"name"`
}

// Resolver holds resolution policy
type Resolver struct {
	// PreferredNamespaces break ambiguity after the current namespace,
	// in list order.
	PreferredNamespaces []string `toml:"preferred_namespaces"`
}

// Impact holds the impact-analysis thresholds
type Impact struct {
	MaxDepth          int `toml:"max_depth"`
	LowRiskThreshold  int `toml:"low_risk_threshold"`
	MedRiskThreshold  int `toml:"med_risk_threshold"`
	BreakingReferrers int `toml:"breaking_referrers"`
}

// Graph holds reference-graph tunables
type Graph struct {
	// DeferredCap bounds pending forward references per unresolved target;
	// the oldest entry is dropped when the cap is exceeded.
	DeferredCap int `toml:"deferred_cap"`
}

// Stdlib configures the bundled standard-library loader
type Stdlib struct {
	// Include patterns select which library tables load, doublestar syntax.
	Include []string `toml:"include"`
}

// Watch configures the file watcher used by the CLI
type Watch struct {
	DebounceMs int `toml:"debounce_ms"`
}

// Config is the full engine configuration
type Config struct {
	Version  int      `toml:"version"`
	Project  Project  `toml:"project"`
	Resolver Resolver `toml:"resolver"`
	Impact   Impact   `toml:"impact"`
	Graph    Graph    `toml:"graph"`
	Stdlib   Stdlib   `toml:"stdlib"`
	Watch    Watch    `toml:"watch"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Impact: Impact{
			MaxDepth:          3,
			LowRiskThreshold:  5,
			MedRiskThreshold:  20,
			BreakingReferrers: 10,
		},
		Graph: Graph{
			DeferredCap: 64,
		},
		Stdlib: Stdlib{
			Include: []string{"**/*.symbols.json.gz"},
		},
		Watch: Watch{
			DebounceMs: 300,
		},
	}
}

// Load reads configuration from projectRoot, preferring .sge.kdl over
// sge.toml. When neither exists the defaults are returned.
func Load(projectRoot string) (*Config, error) {
	if cfg, err := LoadKDL(projectRoot); err != nil {
		return nil, err
	} else if cfg != nil {
		return cfg, cfg.Validate()
	}

	if cfg, err := LoadTOML(projectRoot); err != nil {
		return nil, err
	} else if cfg != nil {
		return cfg, cfg.Validate()
	}

	cfg := Default()
	cfg.Project.Root = projectRoot
	return cfg, nil
}

// LoadTOML attempts to load configuration from an sge.toml file. A missing
// file returns (nil, nil) so callers can fall through to defaults.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, "sge.toml")

	data, err := os.ReadFile(tomlPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sge.toml: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sge.toml: %w", err)
	}

	applyRoot(cfg, projectRoot)
	return cfg, nil
}

// applyRoot makes the project root absolute, resolving relative roots
// against the directory holding the config file.
func applyRoot(cfg *Config, projectRoot string) {
	if cfg.Project.Root != "" {
		if !filepath.IsAbs(cfg.Project.Root) {
			cfg.Project.Root = filepath.Join(projectRoot, cfg.Project.Root)
		}
		cfg.Project.Root = filepath.Clean(cfg.Project.Root)
		return
	}
	if abs, err := filepath.Abs(projectRoot); err == nil {
		cfg.Project.Root = abs
	} else {
		cfg.Project.Root = projectRoot
	}
}

// Validate checks threshold sanity.
func (c *Config) Validate() error {
	if c.Impact.MaxDepth <= 0 {
		return sgerrors.NewConfigError("impact.max_depth", fmt.Sprintf("%d", c.Impact.MaxDepth),
			errors.New("must be positive"))
	}
	if c.Impact.LowRiskThreshold < 0 {
		return sgerrors.NewConfigError("impact.low_risk_threshold", fmt.Sprintf("%d", c.Impact.LowRiskThreshold),
			errors.New("must not be negative"))
	}
	if c.Impact.MedRiskThreshold < c.Impact.LowRiskThreshold {
		return sgerrors.NewConfigError("impact.med_risk_threshold", fmt.Sprintf("%d", c.Impact.MedRiskThreshold),
			errors.New("must be at least the low threshold"))
	}
	if c.Graph.DeferredCap <= 0 {
		return sgerrors.NewConfigError("graph.deferred_cap", fmt.Sprintf("%d", c.Graph.DeferredCap),
			errors.New("must be positive"))
	}
	if c.Watch.DebounceMs < 0 {
		return sgerrors.NewConfigError("watch.debounce_ms", fmt.Sprintf("%d", c.Watch.DebounceMs),
			errors.New("must not be negative"))
	}
	return nil
}
