// Package config manages engine configuration: defaults, an optional YAML
// settings file, and environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ytget/yt-remux/internal/platform"
)

// Default values
const (
	DefaultFFmpegCommand  = "ffmpeg"
	DefaultFFprobeCommand = "ffprobe"
	DefaultLogLevel       = "info"
)

// Environment override keys
const (
	EnvFFmpegPath  = "YT_REMUX_FFMPEG"
	EnvFFprobePath = "YT_REMUX_FFPROBE"
	EnvLogLevel    = "YT_REMUX_LOG_LEVEL"
	EnvSequential  = "YT_REMUX_SEQUENTIAL_DOWNLOADS"
)

// Settings holds the engine configuration.
type Settings struct {
	FFmpegPath          string `yaml:"ffmpeg_path"`
	FFprobePath         string `yaml:"ffprobe_path"`
	LogLevel            string `yaml:"log_level"`
	SequentialDownloads bool   `yaml:"sequential_downloads"`
	RequireAudio        bool   `yaml:"require_audio"`
}

// Default returns settings with all defaults applied.
func Default() Settings {
	return Settings{
		FFmpegPath:  DefaultFFmpegCommand,
		FFprobePath: DefaultFFprobeCommand,
		LogLevel:    DefaultLogLevel,
	}
}

// Load reads settings from an optional YAML file and applies environment
// overrides on top. An empty path yields defaults plus environment.
func Load(path string) (Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return settings, fmt.Errorf("read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return settings, fmt.Errorf("parse settings file: %w", err)
		}
		settings.fillDefaults()
	}

	settings.applyEnv()
	return settings, nil
}

// fillDefaults restores defaults for fields the file left empty
func (s *Settings) fillDefaults() {
	if s.FFmpegPath == "" {
		s.FFmpegPath = DefaultFFmpegCommand
	}
	if s.FFprobePath == "" {
		s.FFprobePath = DefaultFFprobeCommand
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
}

// applyEnv overrides settings from the environment
func (s *Settings) applyEnv() {
	if value := os.Getenv(EnvFFmpegPath); value != "" {
		s.FFmpegPath = value
	}
	if value := os.Getenv(EnvFFprobePath); value != "" {
		s.FFprobePath = value
	}
	if value := os.Getenv(EnvLogLevel); value != "" {
		s.LogLevel = value
	}
	if value := os.Getenv(EnvSequential); value == "1" || value == "true" {
		s.SequentialDownloads = true
	}
}

// ResolveTools locates the configured ffmpeg and ffprobe executables and
// replaces the settings with the resolved paths.
func (s *Settings) ResolveTools() error {
	ffmpeg, err := platform.FindTool(s.FFmpegPath)
	if err != nil {
		return fmt.Errorf("locate ffmpeg: %w", err)
	}
	ffprobe, err := platform.FindTool(s.FFprobePath)
	if err != nil {
		return fmt.Errorf("locate ffprobe: %w", err)
	}
	s.FFmpegPath = ffmpeg
	s.FFprobePath = ffprobe
	return nil
}
