// Package config loads, validates, and persists recorder settings.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	Recording Recording `mapstructure:"recording"`
	Audio     Audio     `mapstructure:"audio"`
	Output    Output    `mapstructure:"output"`
	Log       Log       `mapstructure:"log"`
	Status    Status    `mapstructure:"status"`
}

// Recording holds the knobs that shape the capture pipeline.
type Recording struct {
	FPS              int    `mapstructure:"fps"`
	Resolution       string `mapstructure:"resolution"`
	Quality          string `mapstructure:"quality"`
	CountdownSeconds int    `mapstructure:"countdown_seconds"`
	DisplayIndex     int    `mapstructure:"display_index"`
}

type Audio struct {
	System bool `mapstructure:"system"`
	Mic    bool `mapstructure:"mic"`
}

type Output struct {
	Directory string `mapstructure:"directory"`
	FFmpeg    string `mapstructure:"ffmpeg"`
}

type Log struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	File      string `mapstructure:"file"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	Keep      int    `mapstructure:"keep"`
}

// Status configures the local websocket status endpoint.
type Status struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

func Default() *Config {
	return &Config{
		Recording: Recording{
			FPS:              30,
			Resolution:       "1080p",
			Quality:          "medium",
			CountdownSeconds: 3,
		},
		Audio: Audio{System: true, Mic: true},
		Output: Output{
			Directory: defaultOutputDir(),
			FFmpeg:    "ffmpeg",
		},
		Log: Log{
			Level:     "info",
			Format:    "text",
			MaxSizeMB: 10,
			Keep:      3,
		},
		Status: Status{Listen: "127.0.0.1:7465"},
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("reel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("REEL")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("recording.fps", cfg.Recording.FPS)
	viper.Set("recording.resolution", cfg.Recording.Resolution)
	viper.Set("recording.quality", cfg.Recording.Quality)
	viper.Set("recording.countdown_seconds", cfg.Recording.CountdownSeconds)
	viper.Set("recording.display_index", cfg.Recording.DisplayIndex)
	viper.Set("audio.system", cfg.Audio.System)
	viper.Set("audio.mic", cfg.Audio.Mic)
	viper.Set("output.directory", cfg.Output.Directory)
	viper.Set("output.ffmpeg", cfg.Output.FFmpeg)
	viper.Set("log.level", cfg.Log.Level)
	viper.Set("log.format", cfg.Log.Format)
	viper.Set("log.file", cfg.Log.File)
	viper.Set("log.max_size_mb", cfg.Log.MaxSizeMB)
	viper.Set("log.keep", cfg.Log.Keep)
	viper.Set("status.enabled", cfg.Status.Enabled)
	viper.Set("status.listen", cfg.Status.Listen)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "reel.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	if err := viper.WriteConfigAs(cfgPath); err != nil {
		return err
	}

	return os.Chmod(cfgPath, 0600)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Reel")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Reel")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reel")
	}
}

func defaultOutputDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Videos", "Reel")
}
