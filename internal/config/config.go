package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Listen    ListenConfig    `json:"listen"`
	Engine    EngineConfig    `json:"engine"`
	Detector  DetectorConfig  `json:"detector"`
	Interface InterfaceConfig `json:"interface"`
	Storage   StorageConfig   `json:"storage"`
}

// ListenConfig contains board polling settings
type ListenConfig struct {
	IntervalMS int    `json:"interval_ms"`
	ConfirmMS  int    `json:"confirm_ms"`
	Region     Region `json:"region"`
}

// Region defines a screen capture area. Zero width and height capture the
// whole primary display.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// EngineConfig contains cloud book and local engine settings
type EngineConfig struct {
	Path           string `json:"path"`
	EvalFile       string `json:"eval_file"`
	Depth          int    `json:"depth"`
	TimeMS         int    `json:"time_ms"`
	Threads        int    `json:"threads"`
	HashMB         int    `json:"hash_mb"`
	ShowWDL        bool   `json:"show_wdl"`
	CloudEnabled   bool   `json:"cloud_enabled"`
	CloudTimeoutMS int    `json:"cloud_timeout_ms"`
	PVNotation     int    `json:"pv_notation"`
}

// DetectorConfig contains piece detector settings
type DetectorConfig struct {
	ModelPath  string  `json:"model_path"`
	Confidence float64 `json:"confidence"`
	IoU        float64 `json:"iou"`
}

// InterfaceConfig contains UI and logging settings
type InterfaceConfig struct {
	LogLevel   string `json:"log_level"`
	LogPath    string `json:"log_path"`
	ListenAddr string `json:"listen_addr"`
}

// StorageConfig contains journal settings
type StorageConfig struct {
	DBPath string `json:"db_path"`
}

// Interval is the poll interval
func (l ListenConfig) Interval() time.Duration {
	return time.Duration(l.IntervalMS) * time.Millisecond
}

// Confirm is the delay before a changed board is re-observed
func (l ListenConfig) Confirm() time.Duration {
	return time.Duration(l.ConfirmMS) * time.Millisecond
}

// CloudTimeout bounds a cloud book query
func (e EngineConfig) CloudTimeout() time.Duration {
	return time.Duration(e.CloudTimeoutMS) * time.Millisecond
}

// DefaultConfig returns the stock configuration
func DefaultConfig() *Config {
	return &Config{
		Listen: ListenConfig{
			IntervalMS: 100,
			ConfirmMS:  200,
		},
		Engine: EngineConfig{
			Path:           "pikafish",
			EvalFile:       "pikafish.nnue",
			Depth:          20,
			TimeMS:         3000,
			Threads:        1,
			HashMB:         128,
			ShowWDL:        true,
			CloudEnabled:   true,
			CloudTimeoutMS: 2000,
			PVNotation:     3,
		},
		Detector: DetectorConfig{
			ModelPath:  "models/large.onnx",
			Confidence: 0.7,
			IoU:        0.5,
		},
		Interface: InterfaceConfig{
			LogLevel:   "info",
			LogPath:    "logs/xqlink.log",
			ListenAddr: "127.0.0.1:7432",
		},
		Storage: StorageConfig{
			DBPath: "data/journal.db",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Listen.IntervalMS < 10 || c.Listen.IntervalMS > 10000 {
		return fmt.Errorf("invalid poll interval: %dms (must be 10-10000)", c.Listen.IntervalMS)
	}
	if c.Listen.ConfirmMS < 0 || c.Listen.ConfirmMS > 10000 {
		return fmt.Errorf("invalid confirm delay: %dms (must be 0-10000)", c.Listen.ConfirmMS)
	}
	if c.Listen.Region.Width < 0 || c.Listen.Region.Height < 0 {
		return fmt.Errorf("invalid capture region dimensions")
	}

	if c.Engine.Depth <= 0 && c.Engine.TimeMS <= 0 {
		return fmt.Errorf("engine needs a depth or a time limit")
	}
	if c.Engine.Threads < 1 || c.Engine.Threads > 1024 {
		return fmt.Errorf("invalid engine threads: %d", c.Engine.Threads)
	}
	if c.Engine.HashMB < 1 {
		return fmt.Errorf("invalid engine hash: %dMB", c.Engine.HashMB)
	}
	if c.Engine.CloudEnabled && c.Engine.CloudTimeoutMS <= 0 {
		return fmt.Errorf("invalid cloud timeout: %dms", c.Engine.CloudTimeoutMS)
	}
	if c.Engine.PVNotation < 0 {
		return fmt.Errorf("invalid pv notation count: %d", c.Engine.PVNotation)
	}

	if c.Detector.Confidence <= 0 || c.Detector.Confidence > 1 {
		return fmt.Errorf("invalid detector confidence: %f (must be in (0, 1])", c.Detector.Confidence)
	}
	if c.Detector.IoU <= 0 || c.Detector.IoU > 1 {
		return fmt.Errorf("invalid detector IoU: %f (must be in (0, 1])", c.Detector.IoU)
	}

	switch c.Interface.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Interface.LogLevel)
	}
	if c.Interface.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}

	return nil
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads path, writing the defaults there first if it does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		if err := cfg.Save(path); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return cfg, err
}

// Save writes the configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	return os.WriteFile(path, data, 0644)
}
