// Package config persists user settings between practice sessions.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// AudioConfig stores playback preferences
type AudioConfig struct {
	Tempo           int     `json:"tempo,omitempty"`
	BassVolume      float64 `json:"bassVolume"`
	MetronomeVolume float64 `json:"metronomeVolume"`
	Metronome       bool    `json:"metronome"`
	Loop            bool    `json:"loop"`
	Countdown       bool    `json:"countdown"`
	MuteNotes       bool    `json:"muteNotes"`
}

// ExerciseConfig is the last exercise practiced
type ExerciseConfig struct {
	Pattern     string `json:"pattern,omitempty"`
	Root        string `json:"root,omitempty"`
	Subdivision string `json:"subdivision,omitempty"`
}

// SyncConfig configures the popout transport
type SyncConfig struct {
	Listen string `json:"listen,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// MIDIConfig names MIDI ports to open
type MIDIConfig struct {
	Out string `json:"out,omitempty"`
	In  string `json:"in,omitempty"`
}

// Config is the main configuration structure
type Config struct {
	Exercise ExerciseConfig `json:"exercise"`
	Audio    AudioConfig    `json:"audio"`
	Sync     SyncConfig     `json:"sync"`
	MIDI     MIDIConfig     `json:"midi,omitempty"`

	path string
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Exercise: ExerciseConfig{
			Pattern:     "root-fifth-octave",
			Root:        "A",
			Subdivision: "triplet",
		},
		Audio: AudioConfig{
			Tempo:           80,
			BassVolume:      0.8,
			MetronomeVolume: 0.5,
			Metronome:       true,
			Loop:            true,
		},
		Sync: SyncConfig{
			Listen: "127.0.0.1:7318",
			Origin: "basstrainer.local",
		},
	}
}

// Dir returns the config directory path
func Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "basstrainer"), nil
}

// DefaultPath returns the full path to config.json
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config at path, or the default path if empty. A missing
// file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = p
	}
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expanding config path: %w", err)
	}

	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns where Save writes.
func (c *Config) Path() string {
	return c.path
}

// Save writes the config back to where it was loaded from
func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0644)
}
