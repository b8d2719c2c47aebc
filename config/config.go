// Package config provides configuration loading and management for Mirror.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Mirror configuration
type Config struct {
	Repo     RepoConfig     `yaml:"repo"`
	Report   ReportConfig   `yaml:"report"`
	Classify ClassifyConfig `yaml:"classify"`
	Rules    RulesConfig    `yaml:"rules"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Watch    WatchConfig    `yaml:"watch"`
}

// RepoConfig configures the repository settings
type RepoConfig struct {
	// Path is the repository root path (auto-detected from git if empty)
	Path string `yaml:"path"`
}

// ReportConfig configures the report file sink
type ReportConfig struct {
	// Path is where hook mode writes the rendered report,
	// relative to the repository root unless absolute
	Path string `yaml:"path"`
}

// ClassifyConfig configures path-to-role classification
type ClassifyConfig struct {
	// Markers maps a directory segment name to a role
	// (e.g. "domain" → domain). Empty means the built-in markers.
	Markers map[string]string `yaml:"markers"`
	// Overrides pin glob patterns to roles and win over markers
	Overrides []OverrideConfig `yaml:"overrides"`
}

// OverrideConfig maps a doublestar glob pattern to a role
type OverrideConfig struct {
	Pattern string `yaml:"pattern"`
	Role    string `yaml:"role"`
}

// RulesConfig tunes the rule table
type RulesConfig struct {
	// WrongLayerSuffixes are class-name suffixes forbidden under the
	// domain role (Manager, Handler, ...)
	WrongLayerSuffixes []string `yaml:"wrong_layer_suffixes"`
	// NamingPrefixes are function-name prefixes flagged in any role
	NamingPrefixes []string `yaml:"naming_prefixes"`
	// ModelBases are base-class names treated as "model" bases
	ModelBases []string `yaml:"model_bases"`
	// EnumBases are base-class names treated as enum bases
	EnumBases []string `yaml:"enum_bases"`
	// PrimitiveTypes are bare annotation names flagged on domain attributes
	PrimitiveTypes []string `yaml:"primitive_types"`
	// TimeAccessors are callee names treated as current-time accessors
	TimeAccessors []string `yaml:"time_accessors"`
	// Disabled lists rule identifiers to leave out of the registry
	Disabled []string `yaml:"disabled"`
}

// AnalyzerConfig configures the multi-file scan
type AnalyzerConfig struct {
	// Workers bounds the number of files analyzed concurrently
	// (0 = number of CPUs)
	Workers int `yaml:"workers"`
	// SkipDirs are directory names excluded from directory walks
	SkipDirs []string `yaml:"skip_dirs"`
}

// WatchConfig configures the long-running watch service
type WatchConfig struct {
	// Debounce is how long to wait for more changes before re-analyzing
	Debounce time.Duration `yaml:"debounce"`
	// MetricsAddr is the listen address for the Prometheus /metrics
	// endpoint (empty = disabled)
	MetricsAddr string `yaml:"metrics_addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Repo: RepoConfig{
			Path: "", // Auto-detect
		},
		Report: ReportConfig{
			Path: filepath.Join(".mirror", "report.txt"),
		},
		Classify: ClassifyConfig{
			Markers:   nil, // Built-in markers
			Overrides: nil,
		},
		Rules: RulesConfig{
			WrongLayerSuffixes: []string{"Manager", "Handler", "Processor", "Service"},
			NamingPrefixes:     []string{"validate_", "check_", "verify_"},
			ModelBases:         []string{"BaseModel"},
			EnumBases:          []string{"Enum", "IntEnum", "StrEnum", "Flag", "IntFlag"},
			PrimitiveTypes:     []string{"str", "int", "bool", "float"},
			TimeAccessors:      []string{"datetime.now", "datetime.utcnow", "time.time", "date.today"},
		},
		Analyzer: AnalyzerConfig{
			Workers: 0,
			SkipDirs: []string{
				"venv", ".venv", "env", ".env", "__pycache__", ".pytest_cache",
				"node_modules", "vendor", "dist", "build", ".tox", ".eggs",
				"site-packages", ".mypy_cache",
			},
		},
		Watch: WatchConfig{
			Debounce:    200 * time.Millisecond,
			MetricsAddr: "",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Report.Path == "" {
		return fmt.Errorf("report.path is required")
	}
	if c.Analyzer.Workers < 0 {
		return fmt.Errorf("analyzer.workers must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	for _, o := range c.Classify.Overrides {
		if o.Pattern == "" {
			return fmt.Errorf("classify.overrides entries require a pattern")
		}
	}
	return nil
}

// ReportPath resolves the report file location against the repo root.
func (c *Config) ReportPath() string {
	if filepath.IsAbs(c.Report.Path) {
		return c.Report.Path
	}
	return filepath.Join(c.Repo.Path, c.Report.Path)
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Repo.Path != "" {
		c.Repo.Path = other.Repo.Path
	}
	if other.Report.Path != "" {
		c.Report.Path = other.Report.Path
	}

	if len(other.Classify.Markers) > 0 {
		c.Classify.Markers = other.Classify.Markers
	}
	if len(other.Classify.Overrides) > 0 {
		c.Classify.Overrides = other.Classify.Overrides
	}

	if len(other.Rules.WrongLayerSuffixes) > 0 {
		c.Rules.WrongLayerSuffixes = other.Rules.WrongLayerSuffixes
	}
	if len(other.Rules.NamingPrefixes) > 0 {
		c.Rules.NamingPrefixes = other.Rules.NamingPrefixes
	}
	if len(other.Rules.ModelBases) > 0 {
		c.Rules.ModelBases = other.Rules.ModelBases
	}
	if len(other.Rules.EnumBases) > 0 {
		c.Rules.EnumBases = other.Rules.EnumBases
	}
	if len(other.Rules.PrimitiveTypes) > 0 {
		c.Rules.PrimitiveTypes = other.Rules.PrimitiveTypes
	}
	if len(other.Rules.TimeAccessors) > 0 {
		c.Rules.TimeAccessors = other.Rules.TimeAccessors
	}
	if len(other.Rules.Disabled) > 0 {
		c.Rules.Disabled = other.Rules.Disabled
	}

	if other.Analyzer.Workers != 0 {
		c.Analyzer.Workers = other.Analyzer.Workers
	}
	if len(other.Analyzer.SkipDirs) > 0 {
		c.Analyzer.SkipDirs = other.Analyzer.SkipDirs
	}

	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if other.Watch.MetricsAddr != "" {
		c.Watch.MetricsAddr = other.Watch.MetricsAddr
	}
}
