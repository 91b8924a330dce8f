package config

import (
	"errors"
	"fmt"

	"vidmatch/internal/imageproc"
	"vidmatch/internal/video"
)

// Validate checks if the configuration is valid, reporting every problem
// found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		errs = append(errs, fmt.Errorf("threshold must be in (0, 1], got %v", cfg.Threshold))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be >= 0, got %d", cfg.Workers))
	}
	if cfg.Backend == "" {
		errs = append(errs, fmt.Errorf("backend is required"))
	}
	if _, err := imageproc.ParseGrayMode(cfg.GrayMode); err != nil {
		errs = append(errs, err)
	}
	if cfg.Backend == "imagedir" && cfg.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("frame_rate must be > 0 for the imagedir backend"))
	}

	for name, v := range map[string]string{"range.start": cfg.Range.Start, "range.end": cfg.Range.End} {
		if v == "" {
			continue
		}
		if _, err := video.ParseTimestamp(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch cfg.Output {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be 'text' or 'json', got '%s'", cfg.Output))
	}

	switch cfg.Storage.Kind {
	case "", "none":
	case "json":
		if cfg.Storage.Dir == "" {
			cfg.Storage.Dir = "."
		}
	case "postgres":
		if cfg.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage.dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.kind: unknown kind '%s' (must be none, json or postgres)", cfg.Storage.Kind))
	}

	if cfg.MQTT.QoS > 2 {
		errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS))
	}
	if cfg.MQTT.Broker != "" && cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "vidmatch"
	}

	return errors.Join(errs...)
}
