// Package config handles the on-disk configuration: stream formats,
// filter defaults and server settings, stored as YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanchriswhite/vppstage/internal/format"
	"github.com/bryanchriswhite/vppstage/internal/logger"
)

// StreamConfig describes one side of the stage in configuration terms.
type StreamConfig struct {
	Format    string `json:"format" yaml:"format"`
	Width     int    `json:"width" yaml:"width"`
	Height    int    `json:"height" yaml:"height"`
	Interlace string `json:"interlace" yaml:"interlace"`
	FPSNum    int64  `json:"fps_num" yaml:"fps_num"`
	FPSDen    int64  `json:"fps_den" yaml:"fps_den"`
}

// FilterConfig holds the initial filter parameters applied to the
// stage at startup.
type FilterConfig struct {
	DeinterlaceMode   string             `json:"deinterlace_mode" yaml:"deinterlace_mode"`
	DeinterlaceMethod string             `json:"deinterlace_method" yaml:"deinterlace_method"`
	Denoise           float64            `json:"denoise" yaml:"denoise"`
	Sharpen           float64            `json:"sharpen" yaml:"sharpen"`
	Hue               float64            `json:"hue" yaml:"hue"`
	Saturation        float64            `json:"saturation" yaml:"saturation"`
	Brightness        float64            `json:"brightness" yaml:"brightness"`
	Contrast          float64            `json:"contrast" yaml:"contrast"`
	ScaleMethod       string             `json:"scale_method" yaml:"scale_method"`
	VideoDirection    string             `json:"video_direction" yaml:"video_direction"`
	Crop              format.CropMargins `json:"crop" yaml:"crop"`
	HDRToneMap        string             `json:"hdr_tone_map" yaml:"hdr_tone_map"`
	SkinToneLevel     uint               `json:"skin_tone_level" yaml:"skin_tone_level"`
	KeepAspect        bool               `json:"keep_aspect" yaml:"keep_aspect"`
}

// Config represents the application configuration.
type Config struct {
	ServerPort   int    `json:"server_port" yaml:"server_port"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	LogPretty    bool   `json:"log_pretty" yaml:"log_pretty"`
	PoolCapacity int    `json:"pool_capacity" yaml:"pool_capacity"`

	Input   StreamConfig `json:"input" yaml:"input"`
	Output  StreamConfig `json:"output" yaml:"output"`
	Filters FilterConfig `json:"filters" yaml:"filters"`
}

// InputDescriptor converts the input stream settings into a format
// descriptor.
func (c *Config) InputDescriptor() (format.Descriptor, error) {
	f := format.FormatNV12
	if c.Input.Format != "" {
		var ok bool
		if f, ok = ParseFormat(c.Input.Format); !ok {
			return format.Descriptor{}, fmt.Errorf("unknown input format %q", c.Input.Format)
		}
	}
	interlace := format.Progressive
	switch c.Input.Interlace {
	case "", "progressive":
	case "interleaved":
		interlace = format.Interleaved
	case "mixed":
		interlace = format.Mixed
	default:
		return format.Descriptor{}, fmt.Errorf("unknown interlace mode %q", c.Input.Interlace)
	}
	desc := format.Descriptor{
		Format:    f,
		Width:     c.Input.Width,
		Height:    c.Input.Height,
		Interlace: interlace,
		FrameRate: format.NewFraction(c.Input.FPSNum, c.Input.FPSDen),
	}
	if err := desc.Validate(); err != nil {
		return format.Descriptor{}, err
	}
	return desc, nil
}

// ParseFormat maps a configuration string to a pixel format.
func ParseFormat(s string) (format.PixelFormat, bool) {
	for _, f := range []format.PixelFormat{
		format.FormatNV12, format.FormatYV12, format.FormatI420,
		format.FormatYUY2, format.FormatUYVY, format.FormatP010,
		format.FormatBGRA, format.FormatRGBA,
	} {
		if f.String() == s {
			return f, true
		}
	}
	return format.FormatUnknown, false
}

// Manager handles configuration persistence.
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a configuration manager, loading the file at
// configFile or creating it with defaults when missing.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "vppstage")
	defaultConfigPath := filepath.Join(configDir, "config.yaml")

	actualConfigPath := defaultConfigPath
	if configFile != "" {
		actualConfigPath = configFile
	} else if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = Defaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Msg("Config loaded")

	return m, nil
}

// Defaults returns the default configuration: a 1080p progressive NV12
// stream with every filter at its neutral value.
func Defaults() *Config {
	return &Config{
		ServerPort:   8080,
		LogLevel:     "info",
		LogPretty:    true,
		PoolCapacity: 8,
		Input: StreamConfig{
			Format:    "NV12",
			Width:     1920,
			Height:    1080,
			Interlace: "progressive",
			FPSNum:    30,
			FPSDen:    1,
		},
		Filters: FilterConfig{
			DeinterlaceMode:   "auto",
			DeinterlaceMethod: "bob",
			Saturation:        1.0,
			Contrast:          1.0,
			ScaleMethod:       "default",
			VideoDirection:    "identity",
			HDRToneMap:        "auto",
		},
	}
}

// load reads the configuration from disk.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the configuration to disk.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return *m.config
}

// Update applies fn to the configuration under the lock and persists
// the result.
func (m *Manager) Update(fn func(*Config)) error {
	m.mu.Lock()
	fn(m.config)
	m.mu.Unlock()
	return m.Save()
}

// Path returns the configuration file location.
func (m *Manager) Path() string {
	return m.configPath
}
