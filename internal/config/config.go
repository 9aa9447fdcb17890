// Package config loads the templar configuration from a TOML file with
// sensible defaults for every knob.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/shahbajlive/templar/internal/learn"
)

// Config is the full templar configuration.
type Config struct {
	// TemplatesDir is where learned templates are written.
	TemplatesDir string `toml:"templates_dir"`

	Learning LearningConfig `toml:"learning"`
	Source   SourceConfig   `toml:"source"`
	Server   ServerConfig   `toml:"server"`
	History  HistoryConfig  `toml:"history"`
	Output   OutputConfig   `toml:"output"`
}

// LearningConfig exposes the pipeline thresholds and weights in the
// config file. Zero values mean "use the built-in default".
type LearningConfig struct {
	// TemplateName names the learned template.
	TemplateName string `toml:"template_name"`

	// CoreRatio is the example share a task needs for the core cut.
	CoreRatio float64 `toml:"core_ratio"`

	// ReportingThreshold is the clustering threshold for pattern
	// detection.
	ReportingThreshold float64 `toml:"reporting_threshold"`

	// ConsolidationThreshold is the looser clustering threshold used
	// when merging tasks into the template.
	ConsolidationThreshold float64 `toml:"consolidation_threshold"`

	// ZThreshold is the modified z-score cutoff for statistical
	// outliers.
	ZThreshold float64 `toml:"z_threshold"`

	// Weights are the confidence factor weights.
	Weights WeightsConfig `toml:"weights"`
}

// WeightsConfig mirrors the confidence factor weights.
type WeightsConfig struct {
	SampleSize            float64 `toml:"sample_size"`
	EstimationConsistency float64 `toml:"estimation_consistency"`
	PatternStrength       float64 `toml:"pattern_strength"`
	OutlierDensity        float64 `toml:"outlier_density"`
}

// SourceConfig selects where examples come from.
type SourceConfig struct {
	// Dir is a directory of per-example YAML files. Takes precedence
	// over URL when both are set.
	Dir string `toml:"dir"`

	// URL is the base URL of a work-item tracker's REST API.
	URL string `toml:"url"`

	// Token is the bearer token for the tracker. The TEMPLAR_TOKEN
	// environment variable overrides it so the file can stay secret-free.
	Token string `toml:"token"`

	// RequestsPerSecond throttles tracker calls.
	RequestsPerSecond float64 `toml:"requests_per_second"`

	// Timeout bounds each tracker request.
	Timeout Duration `toml:"timeout"`
}

// Duration decodes TOML strings like "15s" into a time.Duration.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr"`
}

// HistoryConfig configures the run archive.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty uses the default under
	// ~/.config/templar.
	Path string `toml:"path"`

	// Keep is how many runs Prune retains.
	Keep int `toml:"keep"`
}

// OutputConfig configures terminal rendering.
type OutputConfig struct {
	// Color forces color on ("always"), off ("never"), or detects a
	// terminal ("auto").
	Color string `toml:"color"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TemplatesDir: "templates",
		Source: SourceConfig{
			Dir:               "examples",
			RequestsPerSecond: 5,
			Timeout:           Duration{15 * time.Second},
		},
		Server:  ServerConfig{Addr: "127.0.0.1:7430"},
		History: HistoryConfig{Keep: 50},
		Output:  OutputConfig{Color: "auto"},
	}
}

// DefaultPath returns the standard config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "templar.toml"
	}
	return filepath.Join(home, ".config", "templar", "config.toml")
}

// Load reads a TOML config file over the defaults. A missing file is an
// error; use LoadOrDefault when the file is optional.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault reads the file when it exists and falls back to the
// defaults when it does not.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return Load(path)
}

// LearnConfig projects the file's learning section onto the pipeline
// configuration, keeping built-in defaults for anything unset.
func (c *Config) LearnConfig() learn.Config {
	lc := learn.DefaultConfig()

	if c.Learning.TemplateName != "" {
		lc.TemplateName = c.Learning.TemplateName
	}
	if c.Learning.CoreRatio > 0 {
		lc.CoreRatio = c.Learning.CoreRatio
	}
	if c.Learning.ReportingThreshold > 0 {
		lc.Patterns.ReportingThreshold = c.Learning.ReportingThreshold
	}
	if c.Learning.ConsolidationThreshold > 0 {
		lc.Merge.ConsolidationThreshold = c.Learning.ConsolidationThreshold
	}
	if c.Learning.ZThreshold > 0 {
		lc.Outliers.ZThreshold = c.Learning.ZThreshold
	}

	w := c.Learning.Weights
	if w.SampleSize > 0 || w.EstimationConsistency > 0 || w.PatternStrength > 0 || w.OutlierDensity > 0 {
		lc.Weights.SampleSize = w.SampleSize
		lc.Weights.EstimationConsistency = w.EstimationConsistency
		lc.Weights.PatternStrength = w.PatternStrength
		lc.Weights.OutlierDensity = w.OutlierDensity
	}

	return lc
}

// applyEnv layers environment overrides on top of the file.
func (c *Config) applyEnv() {
	if token := os.Getenv("TEMPLAR_TOKEN"); token != "" {
		c.Source.Token = token
	}
	if url := os.Getenv("TEMPLAR_SOURCE_URL"); url != "" {
		c.Source.URL = url
	}
	if addr := os.Getenv("TEMPLAR_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// validate rejects configurations that would misbehave silently.
func (c *Config) validate() error {
	switch strings.ToLower(c.Output.Color) {
	case "auto", "always", "never", "":
	default:
		return fmt.Errorf("output.color must be auto, always, or never, got %q", c.Output.Color)
	}
	if c.Source.RequestsPerSecond < 0 {
		return fmt.Errorf("source.requests_per_second must not be negative")
	}
	if c.History.Keep < 0 {
		return fmt.Errorf("history.keep must not be negative")
	}
	return nil
}
