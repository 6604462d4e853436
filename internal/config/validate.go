package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ConfigError marks a setting the session must reject before starting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

var validFPS = map[int]bool{24: true, 30: true, 60: true}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate rejects settings that would produce a broken recording and clamps
// safe-range knobs with a warning. Returns a ConfigError for hard failures.
func (c *Config) Validate() error {
	if !validFPS[c.Recording.FPS] {
		return &ConfigError{
			Field:  "recording.fps",
			Reason: fmt.Sprintf("%d is not supported (use 24, 30, or 60)", c.Recording.FPS),
		}
	}

	if _, ok := Resolution(c.Recording.Resolution); !ok {
		return &ConfigError{
			Field: "recording.resolution",
			Reason: fmt.Sprintf("unknown preset %q (use %s)",
				c.Recording.Resolution, strings.Join(ResolutionNames(), ", ")),
		}
	}

	if _, ok := Quality(c.Recording.Quality); !ok {
		return &ConfigError{
			Field: "recording.quality",
			Reason: fmt.Sprintf("unknown preset %q (use %s)",
				c.Recording.Quality, strings.Join(QualityNames(), ", ")),
		}
	}

	if c.Recording.CountdownSeconds < 0 {
		slog.Warn("config validation", "error",
			fmt.Sprintf("countdown_seconds %d is below minimum 0, clamping", c.Recording.CountdownSeconds))
		c.Recording.CountdownSeconds = 0
	} else if c.Recording.CountdownSeconds > 10 {
		slog.Warn("config validation", "error",
			fmt.Sprintf("countdown_seconds %d exceeds maximum 10, clamping", c.Recording.CountdownSeconds))
		c.Recording.CountdownSeconds = 10
	}

	if c.Recording.DisplayIndex < 0 {
		slog.Warn("config validation", "error",
			fmt.Sprintf("display_index %d is negative, clamping to 0", c.Recording.DisplayIndex))
		c.Recording.DisplayIndex = 0
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		slog.Warn("config validation", "error",
			fmt.Sprintf("log.level %q is not valid (use debug, info, warn, error), using info", c.Log.Level))
		c.Log.Level = "info"
	}

	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		slog.Warn("config validation", "error",
			fmt.Sprintf("log.format %q is not valid (use text or json), using text", c.Log.Format))
		c.Log.Format = "text"
	}

	if c.Log.MaxSizeMB < 1 {
		c.Log.MaxSizeMB = 1
	}
	if c.Log.Keep < 1 {
		c.Log.Keep = 1
	}

	return nil
}
