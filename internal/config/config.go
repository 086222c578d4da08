// Package config loads the application configuration file.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/phinze/halo/internal/hotkey"
	"github.com/phinze/halo/internal/prefs"
)

const (
	// DefaultConfigDir is the configuration directory relative to home.
	DefaultConfigDir = ".config/halo"
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "config.yaml"

	DefaultFrameRate = 60
	MinFrameRate     = 15
	MaxFrameRate     = 240

	DefaultMousePoll = 8 * time.Millisecond
	MinKeepAlive     = 5 * time.Second
)

// Config holds the application configuration.
type Config struct {
	FrameRate int               `yaml:"frame_rate"`
	KeepAlive time.Duration     `yaml:"keepalive"`
	MousePoll time.Duration     `yaml:"mouse_poll"`
	PrefsFile string            `yaml:"prefs_file"`
	Hotkeys   map[string]string `yaml:"hotkeys,omitempty"`

	// Bindings is Hotkeys resolved against the platform defaults.
	Bindings []hotkey.Binding `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		FrameRate: DefaultFrameRate,
		KeepAlive: hotkey.DefaultKeepAlive,
		MousePoll: DefaultMousePoll,
		PrefsFile: prefs.DefaultPath(),
		Bindings:  hotkey.DefaultBindings(),
	}
}

// DefaultPath returns ~/.config/halo/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DefaultConfigDir, ConfigFileName)
	}
	return filepath.Join(home, DefaultConfigDir, ConfigFileName)
}

// FrameInterval is the render tick period.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FrameRate)
}

// Load reads the config file at path. A missing or empty file yields
// defaults. Invalid hotkeys are an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaultsAndValidate(cfg *Config) error {
	defaults := DefaultConfig()

	switch {
	case cfg.FrameRate == 0:
		cfg.FrameRate = defaults.FrameRate
	case cfg.FrameRate < MinFrameRate:
		log.Printf("frame_rate %d below minimum, using %d", cfg.FrameRate, MinFrameRate)
		cfg.FrameRate = MinFrameRate
	case cfg.FrameRate > MaxFrameRate:
		log.Printf("frame_rate %d above maximum, using %d", cfg.FrameRate, MaxFrameRate)
		cfg.FrameRate = MaxFrameRate
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = defaults.KeepAlive
	} else if cfg.KeepAlive < MinKeepAlive {
		log.Printf("keepalive %s below minimum, using %s", cfg.KeepAlive, MinKeepAlive)
		cfg.KeepAlive = MinKeepAlive
	}

	if cfg.MousePoll <= 0 {
		cfg.MousePoll = defaults.MousePoll
	}

	if strings.TrimSpace(cfg.PrefsFile) == "" {
		cfg.PrefsFile = defaults.PrefsFile
	} else {
		cfg.PrefsFile = expandHome(cfg.PrefsFile)
	}

	bindings, err := hotkey.Bindings(cfg.Hotkeys)
	if err != nil {
		return err
	}
	cfg.Bindings = bindings
	return nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
