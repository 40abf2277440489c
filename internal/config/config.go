// Package config handles viewer configuration loading and management.
package config

import "github.com/Faultbox/toonview/internal/engine/style"

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Style    style.Settings `yaml:"style"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Style: style.Default(),
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
