// Package config loads the scanner settings from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the complete vidmatch configuration
type Config struct {
	Threshold  float64       `yaml:"threshold"`
	Workers    int           `yaml:"workers"`    // 0 selects the number of CPUs
	Backend    string        `yaml:"backend"`    // ffmpeg, imagedir, gocv
	GrayMode   string        `yaml:"gray_mode"`  // luma, lightness
	Correlator string        `yaml:"correlator"` // ncc, gocv
	FrameRate  float64       `yaml:"frame_rate"` // imagedir backend only
	Range      RangeConfig   `yaml:"range"`
	Log        LogConfig     `yaml:"log"`
	Output     string        `yaml:"output"` // text, json
	Storage    StorageConfig `yaml:"storage"`
	MQTT       MQTTConfig    `yaml:"mqtt"`
}

// RangeConfig limits the scan to part of the video
type RangeConfig struct {
	Start string `yaml:"start"` // SS, MM:SS or HH:MM:SS
	End   string `yaml:"end"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// StorageConfig selects where scan results are persisted
type StorageConfig struct {
	Kind string `yaml:"kind"` // none, json, postgres
	Dir  string `yaml:"dir"`  // json only
	DSN  string `yaml:"dsn"`  // postgres only
}

// MQTTConfig contains MQTT broker settings. An empty broker disables
// publishing.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Threshold:  0.8,
		Backend:    "ffmpeg",
		GrayMode:   "luma",
		Correlator: "ncc",
		FrameRate:  25,
		Log:        LogConfig{Level: "info"},
		Output:     "text",
		Storage:    StorageConfig{Kind: "none", Dir: "."},
		MQTT:       MQTTConfig{ClientID: "vidmatch", TopicPrefix: "vidmatch"},
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SlogLevel maps Log.Level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
