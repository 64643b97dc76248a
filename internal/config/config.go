package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/billie-coop/presage/internal/debounce"
)

// Config represents the Presage configuration
type Config struct {
	// Preview appearance
	Theme    string `json:"theme"`
	WordWrap int    `json:"word_wrap"` // 0 = follow terminal width

	// Task pool
	Workers int `json:"workers"` // 0 = CPU count

	// Debounce tunables (milliseconds / bytes)
	DebounceMinMs         int     `json:"debounce_min_ms"`
	DebounceMaxMs         int     `json:"debounce_max_ms"`
	DebounceDefaultMs     int     `json:"debounce_default_ms"`
	SmallDocThreshold     int     `json:"small_doc_threshold"`
	MediumDocThreshold    int     `json:"medium_doc_threshold"`
	RenderTimeMultiplier  float64 `json:"render_time_multiplier"`
	RenderTimeThresholdMs int     `json:"render_time_threshold_ms"`

	// Block cache
	CacheCapacity        int `json:"cache_capacity"`
	IncrementalThreshold int `json:"incremental_threshold"`

	// Speculative pre-rendering
	PredictionEnabled bool `json:"prediction_enabled"`
	PrerenderBudget   int  `json:"prerender_budget"`

	Debug bool `json:"debug"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Theme:                 "dracula",
		WordWrap:              0,
		Workers:               0,
		DebounceMinMs:         50,
		DebounceMaxMs:         1000,
		DebounceDefaultMs:     200,
		SmallDocThreshold:     10_000,
		MediumDocThreshold:    100_000,
		RenderTimeMultiplier:  2.0,
		RenderTimeThresholdMs: 500,
		CacheCapacity:         1024,
		IncrementalThreshold:  10_000,
		PredictionEnabled:     true,
		PrerenderBudget:       3,
		Debug:                 false,
	}
}

// Debounce converts the flat JSON fields into the controller's config
func (c *Config) Debounce() debounce.Config {
	return debounce.Config{
		MinDelay:             time.Duration(c.DebounceMinMs) * time.Millisecond,
		MaxDelay:             time.Duration(c.DebounceMaxMs) * time.Millisecond,
		DefaultDelay:         time.Duration(c.DebounceDefaultMs) * time.Millisecond,
		SmallDocThreshold:    c.SmallDocThreshold,
		MediumDocThreshold:   c.MediumDocThreshold,
		RenderTimeMultiplier: c.RenderTimeMultiplier,
		RenderTimeThreshold:  time.Duration(c.RenderTimeThresholdMs) * time.Millisecond,
	}
}

// Manager handles configuration loading and saving
type Manager struct {
	projectPath string
	configPath  string
	config      *Config
}

// NewManager creates a new configuration manager
func NewManager(projectPath string) *Manager {
	presageDir := filepath.Join(projectPath, ".presage")
	return &Manager{
		projectPath: projectPath,
		configPath:  filepath.Join(presageDir, "config.json"),
		config:      DefaultConfig(),
	}
}

// Load reads the configuration from disk, creating defaults if needed
func (m *Manager) Load() error {
	presageDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(presageDir, 0o755); err != nil {
		return fmt.Errorf("failed to create .presage directory: %w", err)
	}

	if _, err := os.Stat(m.configPath); os.IsNotExist(err) {
		// Create default config
		return m.Save()
	}

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("failed to parse config JSON: %w", err)
	}

	m.config = &config
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// Set updates a configuration value and saves
func (m *Manager) Set(key, value string) error {
	switch key {
	case "theme":
		m.config.Theme = value
	case "workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("workers must be an integer: %w", err)
		}
		m.config.Workers = n
	case "prediction_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("prediction_enabled must be a boolean: %w", err)
		}
		m.config.PredictionEnabled = enabled
	case "prerender_budget":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("prerender_budget must be an integer: %w", err)
		}
		m.config.PrerenderBudget = n
	case "debug":
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("debug must be a boolean: %w", err)
		}
		m.config.Debug = debug
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	return m.Save()
}
