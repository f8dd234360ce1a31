package lumen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeFile(t, "lumen.toml", `
[window]
width = 800
height = 600

[renderer]
backend = "soft"
environment_map = "sky.hdr"
cube_map_size = 256
strict = true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "lumen", cfg.Window.Title)
	assert.Equal(t, BackendSoft, cfg.Renderer.Backend)
	assert.Equal(t, "sky.hdr", cfg.Renderer.EnvironmentMap)
	assert.Equal(t, 256, cfg.Renderer.CubeMapSize)
	assert.True(t, cfg.Renderer.Strict)
	assert.True(t, cfg.Renderer.FrustumCulling, "unset keys keep their defaults")
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeFile(t, "lumen.yml", `
renderer:
  view_type: normal
  watch_environment: true
log:
  debug: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "normal", cfg.Renderer.ViewType)
	assert.True(t, cfg.Renderer.WatchEnvironment)
	assert.True(t, cfg.Log.Debug)
	assert.Equal(t, 1280, cfg.Window.Width)
}

func TestLoadConfigEmptyYAML(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name, file, body string
	}{
		{"extension", "lumen.ini", "width=1"},
		{"unknown toml key", "a.toml", "[renderer]\nbogus = 1\n"},
		{"unknown yaml key", "a.yaml", "renderer:\n  bogus: 1\n"},
		{"bad backend", "b.toml", "[renderer]\nbackend = \"gl\"\n"},
		{"cube size", "c.toml", "[renderer]\ncube_map_size = 300\n"},
		{"window", "d.toml", "[window]\nwidth = 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, tc.file, tc.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
