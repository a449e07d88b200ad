// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Quiz   QuizConfig   `toml:"quiz"`
	Server ServerConfig `toml:"server"`
}

// QuizConfig maps quiz-related settings. Nil fields were not set in the file.
type QuizConfig struct {
	UpperBound  *int     `toml:"upper-bound"`
	Questions   *int     `toml:"questions"`
	TimeLimit   *int     `toml:"time-limit"`
	Operators   []string `toml:"operators"`
	Orientation *string  `toml:"orientation"`
	Chart       *string  `toml:"chart"`
	FocusWeak   *bool    `toml:"focus-weak"`
	WeakFactor  *float64 `toml:"weak-factor"`
	WeakWindow  *int     `toml:"weak-window"`
}

// ServerConfig maps settings for the history server.
type ServerConfig struct {
	Addr *string `toml:"addr"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
