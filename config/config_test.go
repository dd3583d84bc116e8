package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teranos/cuesheet"
	"github.com/teranos/cuesheet/scene"
	"github.com/teranos/cuesheet/trip"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cuesheet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("full file", func(t *testing.T) {
		path := writeConfig(t, `
log:
  level: debug
  format: json
frames:
  width: 80
  height: 24
sheet:
  settle: 250ms
  cues:
    - {name: A, delay: 100ms}
    - {name: B, delay: 300ms, description: second}
    - {name: C, delay: 600ms}
`)
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, Log{Level: "debug", Format: "json"}, cfg.Log)
		assert.Equal(t, Frames{Width: 80, Height: 24}, cfg.Frames)
		require.Equal(t, 3, cfg.Sheet.Len())
		assert.Equal(t, cuesheet.Cue{Name: "B", Delay: 300 * time.Millisecond, Description: "second"}, cfg.Sheet.Cues[1])
		assert.Equal(t, 850*time.Millisecond, cfg.Sheet.CompleteAt())
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
		require.NoError(t, err)

		assert.Equal(t, "warn", cfg.Log.Level)
		assert.Equal(t, "console", cfg.Log.Format)
		assert.Equal(t, Default().Frames, cfg.Frames)
		assert.Equal(t, cuesheet.InferenceCueSheet(), cfg.Sheet)
	})

	t.Run("missing default location", func(t *testing.T) {
		t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.yaml"))

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("missing explicit path", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "sheet: [unterminated"))
		assert.ErrorContains(t, err, "parse config")
	})

	t.Run("invalid sheet", func(t *testing.T) {
		_, err := Load(writeConfig(t, `
sheet:
  cues:
    - {name: A, delay: 300ms}
    - {name: B, delay: 100ms}
`))
		require.Error(t, err)

		var tr *trip.Trip
		require.True(t, errors.As(err, &tr))
		assert.Equal(t, trip.TypeCueSheet, tr.Type)
	})

	t.Run("scene section", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, "scene: {kind: Particles, seed: 7, width: 30, height: 8}\n"))
		require.NoError(t, err)
		assert.Equal(t, Scene{Kind: "Particles", Seed: 7, Width: 30, Height: 8}, cfg.Scene)
	})

	t.Run("unknown scene kind", func(t *testing.T) {
		_, err := Load(writeConfig(t, "scene: {kind: starfield}\n"))
		assert.ErrorContains(t, err, `scene: unknown scene kind "starfield"`)
	})

	t.Run("empty scene", func(t *testing.T) {
		_, err := Load(writeConfig(t, "scene: {width: 0}\n"))
		assert.ErrorContains(t, err, "scene: width and height must be positive")
	})

	t.Run("invalid frames", func(t *testing.T) {
		_, err := Load(writeConfig(t, "frames: {width: 0, height: 10}\n"))
		assert.ErrorContains(t, err, "width and height must be positive")
	})
}

func TestPath(t *testing.T) {
	t.Setenv(EnvConfig, "")
	assert.Equal(t, DefaultPath, Path())

	t.Setenv(EnvConfig, "/etc/cuesheet.yaml")
	assert.Equal(t, "/etc/cuesheet.yaml", Path())
}

func TestMarshal_RoundTripsDurations(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), "settle: 600ms")

	cfg, err := Load(writeConfig(t, string(data)))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestBackdrop(t *testing.T) {
	cfg := Default()
	s, err := cfg.Backdrop()
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, scene.KindNeuralNetwork, s.Kind)

	again, err := cfg.Backdrop()
	require.NoError(t, err)
	assert.Equal(t, s.Nodes, again.Nodes, "same seed, same geometry")

	cfg.Scene.Kind = "none"
	s, err = cfg.Backdrop()
	require.NoError(t, err)
	assert.Nil(t, s)
}
