// Package config provides configuration loading and management.
//
// Values are layered: Defaults, then an optional YAML file, then
// VIDEOWRITER_* environment variables (optionally loaded from a .env file),
// then command-line flags applied by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VIDEOWRITER_"

// Config represents the full configuration for videowriter.
type Config struct {
	// Output
	OutputPath string `yaml:"output"`
	LibraryDir string `yaml:"library_dir"`

	// Frames
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
	FPS      float64       `yaml:"fps"`
	Duration time.Duration `yaml:"duration"`

	// Session
	TextureCache bool `yaml:"texture_cache"`
	RealTime     bool `yaml:"real_time"`
	PoolSize     int  `yaml:"pool_size"`

	// Audio
	Audio AudioConfig `yaml:"audio"`

	// Encoding
	Codec          string `yaml:"codec"`
	Quality        int    `yaml:"quality"`
	CRF            int    `yaml:"crf"`
	FFmpegPath     string `yaml:"ffmpeg_path"`
	FragmentFrames int    `yaml:"fragment_frames"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// AudioConfig represents the optional audio track.
type AudioConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate int     `yaml:"sample_rate"`
	Channels   int     `yaml:"channels"`
	ToneHz     float64 `yaml:"tone_hz"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		OutputPath: "recording.mp4",

		Width:    640,
		Height:   360,
		FPS:      30,
		Duration: 5 * time.Second,

		TextureCache: true,
		RealTime:     true,

		Audio: AudioConfig{
			SampleRate: 48000,
			Channels:   2,
			ToneHz:     440,
		},

		Codec:          "auto",
		Quality:        85,
		CRF:            23,
		FragmentFrames: 30,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadFromFile loads configuration from a YAML file over Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment. Variables already set are kept.
func LoadEnvFile(path string) error {
	return godotenv.Load(path)
}

// ApplyEnv overrides cfg with VIDEOWRITER_* variables read through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []string
	integer := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, EnvPrefix+key)
				return
			}
			*dst = b
		}
	}

	str("OUTPUT", &c.OutputPath)
	str("LIBRARY_DIR", &c.LibraryDir)
	integer("WIDTH", &c.Width)
	integer("HEIGHT", &c.Height)
	if v, ok := lookup(EnvPrefix + "FPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, EnvPrefix+"FPS")
		} else {
			c.FPS = f
		}
	}
	if v, ok := lookup(EnvPrefix + "DURATION"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, EnvPrefix+"DURATION")
		} else {
			c.Duration = d
		}
	}
	boolean("TEXTURE_CACHE", &c.TextureCache)
	boolean("REAL_TIME", &c.RealTime)
	integer("POOL_SIZE", &c.PoolSize)
	boolean("AUDIO", &c.Audio.Enabled)
	integer("SAMPLE_RATE", &c.Audio.SampleRate)
	integer("CHANNELS", &c.Audio.Channels)
	str("CODEC", &c.Codec)
	integer("QUALITY", &c.Quality)
	integer("CRF", &c.CRF)
	str("FFMPEG_PATH", &c.FFmpegPath)
	integer("FRAGMENT_FRAMES", &c.FragmentFrames)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment values: %s", strings.Join(errs, ", "))
	}
	return nil
}

// Validate checks the configuration for values the recorder cannot use.
func (c Config) Validate() error {
	if c.OutputPath == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("invalid fps %v", c.FPS)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("invalid duration %v", c.Duration)
	}
	if c.Audio.Enabled && (c.Audio.SampleRate <= 0 || c.Audio.Channels <= 0) {
		return fmt.Errorf("invalid audio format: %d Hz, %d channels", c.Audio.SampleRate, c.Audio.Channels)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}
