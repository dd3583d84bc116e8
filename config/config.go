// Package config loads the cuesheet YAML configuration.
//
// Any field left out of the file keeps its default, so an empty file, or
// no file at the default location, yields the inference walkthrough.
package config

import (
	"errors"
	"fmt"
	"math/rand"
	"os"

	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/scene"
	"gopkg.in/yaml.v3"
)

// EnvConfig names the environment variable that overrides the default path.
const EnvConfig = "CUESHEET_CONFIG"

// DefaultPath is used when neither a flag nor EnvConfig names a file.
const DefaultPath = "cuesheet.yaml"

// Log selects the logger set up by the CLI.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Frames sets the character grid frames are rasterized from.
type Frames struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Scene selects the animated backdrop drawn above the pipeline.
type Scene struct {
	Kind   string `yaml:"kind"` // none, particles, floating or network
	Seed   int64  `yaml:"seed"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Config is the whole file.
type Config struct {
	Log    Log               `yaml:"log"`
	Frames Frames            `yaml:"frames"`
	Scene  Scene             `yaml:"scene"`
	Sheet  cuesheet.CueSheet `yaml:"sheet"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log:    Log{Level: "info", Format: "console"},
		Frames: Frames{Width: 100, Height: 32},
		Scene:  Scene{Kind: "network", Seed: 42, Width: 60, Height: 12},
		Sheet:  cuesheet.InferenceCueSheet(),
	}
}

// Path resolves the config location: EnvConfig if set, else DefaultPath.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the file at path over the defaults. An empty path resolves via
// Path, and a missing file at that resolved location is not an error. A path
// given explicitly must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the frame geometry, the scene and the cue sheet.
func (c *Config) Validate() error {
	if c.Frames.Width <= 0 || c.Frames.Height <= 0 {
		return fmt.Errorf("frames: width and height must be positive, got %dx%d", c.Frames.Width, c.Frames.Height)
	}
	if _, err := scene.ParseKind(c.Scene.Kind); err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	if c.Scene.Width <= 0 || c.Scene.Height <= 0 {
		return fmt.Errorf("scene: width and height must be positive, got %dx%d", c.Scene.Width, c.Scene.Height)
	}
	return c.Sheet.Validate()
}

// Backdrop builds the configured scene, or nil for kind none.
func (c *Config) Backdrop() (*scene.Scene, error) {
	kind, err := scene.ParseKind(c.Scene.Kind)
	if err != nil {
		return nil, err
	}
	if kind == scene.KindNone {
		return nil, nil
	}
	return scene.New(kind, rand.New(rand.NewSource(c.Scene.Seed)))
}

// Marshal renders the configuration back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}
