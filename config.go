package lumen

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type WindowConfig struct {
	Title  string `toml:"title" yaml:"title"`
	Width  int    `toml:"width" yaml:"width"`
	Height int    `toml:"height" yaml:"height"`
}

type RendererConfig struct {
	// Backend is "wgpu" or "soft".
	Backend          string `toml:"backend" yaml:"backend"`
	EnvironmentMap   string `toml:"environment_map" yaml:"environment_map"`
	CubeMapSize      int    `toml:"cube_map_size" yaml:"cube_map_size"`
	ViewType         string `toml:"view_type" yaml:"view_type"`
	Strict           bool   `toml:"strict" yaml:"strict"`
	WatchEnvironment bool   `toml:"watch_environment" yaml:"watch_environment"`
	FrustumCulling   bool   `toml:"frustum_culling" yaml:"frustum_culling"`
}

type LogConfig struct {
	Debug  bool   `toml:"debug" yaml:"debug"`
	Prefix string `toml:"prefix" yaml:"prefix"`
}

type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

const (
	BackendWGPU = "wgpu"
	BackendSoft = "soft"
)

func DefaultConfig() Config {
	return Config{
		Window: WindowConfig{Title: "lumen", Width: 1280, Height: 720},
		Renderer: RendererConfig{
			Backend:        BackendWGPU,
			CubeMapSize:    1024,
			ViewType:       "final",
			FrustumCulling: true,
		},
		Log: LogConfig{Prefix: "[lumen]"},
	}
}

// LoadConfig reads a TOML or YAML file, chosen by extension, over the
// defaults. Unknown keys are errors.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		return cfg, fmt.Errorf("config %s: unsupported extension", path)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height))
	}
	if c.Renderer.Backend != BackendWGPU && c.Renderer.Backend != BackendSoft {
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Renderer.Backend))
	}
	if s := c.Renderer.CubeMapSize; s <= 0 || s&(s-1) != 0 {
		errs = append(errs, fmt.Errorf("cube map size %d is not a power of two", s))
	}
	return errors.Join(errs...)
}
