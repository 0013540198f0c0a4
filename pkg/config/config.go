// Package config loads graphview settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-graphview/pkg/backend"
	"github.com/dd0wney/cluso-graphview/pkg/debounce"
	"github.com/dd0wney/cluso-graphview/pkg/graph"
	"github.com/dd0wney/cluso-graphview/pkg/logging"
	"github.com/dd0wney/cluso-graphview/pkg/overlay"
	"github.com/dd0wney/cluso-graphview/pkg/validation"
)

// Environment variables that override the file.
const (
	EnvBackendURL = "GRAPHVIEW_BACKEND_URL"
	EnvWorkspace  = "GRAPHVIEW_WORKSPACE"
	EnvPrefsDir   = "GRAPHVIEW_PREFS_DIR"
	EnvLogLevel   = "LOG_LEVEL"
)

// Preference store backends.
const (
	PrefsFile   = "file"
	PrefsBadger = "badger"
	PrefsMemory = "memory"
)

// Defaults.
const (
	DefaultWorkspace = "default"
	DefaultFPS       = 30
	DefaultWidth     = 960
	DefaultHeight    = 640
	DefaultHopDepth  = 2
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full graphview configuration.
type Config struct {
	Workspace  string           `yaml:"workspace" validate:"max=200"`
	Backend    BackendConfig    `yaml:"backend"`
	Prefs      PrefsConfig      `yaml:"preferences"`
	View       ViewConfig       `yaml:"view"`
	Simulation SimulationConfig `yaml:"simulation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// BackendConfig selects where graphs come from. SnapshotFile wins over URL.
type BackendConfig struct {
	URL          string        `yaml:"url" validate:"omitempty,url"`
	Timeout      time.Duration `yaml:"timeout"`
	SnapshotFile string        `yaml:"snapshot_file"`
}

// PrefsConfig selects the preference store.
type PrefsConfig struct {
	Backend  string        `yaml:"backend"`
	Dir      string        `yaml:"dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// ViewConfig holds canvas and interaction settings.
type ViewConfig struct {
	Width         float64       `yaml:"width"`
	Height        float64       `yaml:"height"`
	FPS           int           `yaml:"fps"`
	OptimisticTTL time.Duration `yaml:"optimistic_ttl"`
	HopDepth      int           `yaml:"hop_depth"`
	FetchLimit    int           `yaml:"fetch_limit" validate:"gte=0"`
}

// SimulationConfig holds the parameter defaults used before stored overrides apply.
type SimulationConfig struct {
	LinkDistance     float64 `yaml:"link_distance"`
	ChargeStrength   float64 `yaml:"charge_strength"`
	CollisionRadius  float64 `yaml:"collision_radius"`
	ClusterTightness float64 `yaml:"cluster_tightness"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	p := graph.DefaultSimulationParameters()
	return &Config{
		Workspace: DefaultWorkspace,
		Backend:   BackendConfig{Timeout: backend.DefaultTimeout},
		Prefs:     PrefsConfig{Backend: PrefsFile, Debounce: debounce.DefaultDelay},
		View: ViewConfig{
			Width:         DefaultWidth,
			Height:        DefaultHeight,
			FPS:           DefaultFPS,
			OptimisticTTL: overlay.DefaultTTL,
			HopDepth:      DefaultHopDepth,
		},
		Simulation: SimulationConfig{
			LinkDistance:     p.LinkDistance,
			ChargeStrength:   p.ChargeStrength,
			CollisionRadius:  p.CollisionRadius,
			ClusterTightness: p.ClusterTightness,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.fillBlanks()
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode rejects unknown keys so a typo doesn't silently keep a default.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// fillBlanks restores defaults for keys present in the file but left empty.
func (c *Config) fillBlanks() {
	d := Default()
	c.Workspace = validation.DefaultOr(strings.TrimSpace(c.Workspace), d.Workspace)
	c.Prefs.Backend = validation.DefaultOr(c.Prefs.Backend, d.Prefs.Backend)
	c.Log.Level = validation.DefaultOr(c.Log.Level, d.Log.Level)
	c.Backend.Timeout = validation.DefaultOrDuration(c.Backend.Timeout, d.Backend.Timeout)
	c.View.FPS = validation.DefaultOr(c.View.FPS, d.View.FPS)
	c.View.HopDepth = validation.DefaultOr(c.View.HopDepth, d.View.HopDepth)
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		c.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvWorkspace)); v != "" {
		c.Workspace = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPrefsDir)); v != "" {
		c.Prefs.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

var validate = validator.New()

// Validate checks struct tags first, then ranges, and reports every problem at once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cv := validation.NewConfigValidator("config")
	cv.Required("workspace", c.Workspace).
		OneOf("preferences.backend", c.Prefs.Backend, []string{PrefsFile, PrefsBadger, PrefsMemory}).
		RangeDuration("backend.timeout", c.Backend.Timeout, 100*time.Millisecond, 5*time.Minute).
		RangeDuration("preferences.debounce", c.Prefs.Debounce, 0, time.Minute).
		RangeFloat("view.width", c.View.Width, 100, 16384).
		RangeFloat("view.height", c.View.Height, 100, 16384).
		RangeInt("view.fps", c.View.FPS, 1, 120).
		RangeDuration("view.optimistic_ttl", c.View.OptimisticTTL, 0, time.Hour).
		RangeInt("view.hop_depth", c.View.HopDepth, 1, 10).
		Custom("simulation", func() error { return c.Parameters().Validate() }).
		When(c.Prefs.Backend != PrefsMemory && c.Prefs.Dir != "", func(cv *validation.ConfigValidator) {
			cv.Custom("preferences.dir", func() error { return checkDir(c.Prefs.Dir) })
		})
	if err := cv.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// checkDir accepts a missing directory (it is created on open) but not a file.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// Parameters returns the configured simulation defaults.
func (c *Config) Parameters() graph.SimulationParameters {
	return graph.SimulationParameters{
		LinkDistance:     c.Simulation.LinkDistance,
		ChargeStrength:   c.Simulation.ChargeStrength,
		CollisionRadius:  c.Simulation.CollisionRadius,
		ClusterTightness: c.Simulation.ClusterTightness,
	}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// FrameInterval is the delay between animation frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.View.FPS)
}

// PrefsDir returns the preference directory, defaulting to the user cache dir.
func (c *Config) PrefsDir() (string, error) {
	if c.Prefs.Dir != "" {
		return c.Prefs.Dir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(base, "cluso-graphview"), nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
