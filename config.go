package guidraw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gogpu/gputypes"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/guidraw/backend"
	"github.com/gogpu/guidraw/internal/gpu"
)

// maxConfigSize bounds configuration files read by LoadConfig.
const maxConfigSize = 1 << 20

// Bindings are the shader resource names bound by the renderer. Empty
// names fall back to the names declared by the built-in shaders.
type Bindings struct {
	Projection string `yaml:"projection"`
	Texture    string `yaml:"texture"`
	Sampler    string `yaml:"sampler"`
	// Vertices and BaseVertex are only resolved by the procedural backend.
	Vertices   string `yaml:"vertices"`
	BaseVertex string `yaml:"base_vertex"`
}

// Config selects the backend and shader bindings of a Context.
type Config struct {
	// Backend is "mesh" or "procedural".
	Backend string `yaml:"backend"`

	// Bindings are resolved once against the shader at NewContext.
	Bindings Bindings `yaml:"bindings"`

	// ColorFormat is the format of the color attachment: "bgra8unorm" or
	// "rgba8unorm". Empty selects the provider surface format, or
	// bgra8unorm for raw devices.
	ColorFormat string `yaml:"color_format"`

	// Shader overrides the built-in WGSL source when non-empty. LoadConfig
	// reads it from ShaderFile.
	Shader     string `yaml:"-"`
	ShaderFile string `yaml:"shader_file"`
}

// colorFormats maps configuration names to texture formats.
var colorFormats = map[string]gputypes.TextureFormat{
	"bgra8unorm": gputypes.TextureFormatBGRA8Unorm,
	"rgba8unorm": gputypes.TextureFormatRGBA8Unorm,
}

// DefaultConfig returns the mesh backend with the built-in binding names.
func DefaultConfig() Config {
	names := gpu.DefaultBindingNames()
	return Config{
		Backend: backend.NameMesh,
		Bindings: Bindings{
			Projection: names.Projection,
			Texture:    names.Texture,
			Sampler:    names.Sampler,
			Vertices:   names.Vertices,
			BaseVertex: names.BaseVertex,
		},
	}
}

// ParseConfig decodes a YAML configuration over DefaultConfig and
// validates it. Unknown fields are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file. A relative ShaderFile is
// read relative to the working directory.
func LoadConfig(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if info.Size() > maxConfigSize {
		return Config{}, fmt.Errorf("load config %s: %d bytes exceeds %d", path, info.Size(), maxConfigSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ShaderFile != "" {
		src, err := os.ReadFile(cfg.ShaderFile)
		if err != nil {
			return Config{}, fmt.Errorf("load shader: %w", err)
		}
		cfg.Shader = string(src)
	}
	Logger().Debug("guidraw: config loaded", "path", path, "backend", cfg.Backend)
	return cfg, nil
}

// Validate checks the backend name and color format. Binding names are
// checked against the shader by NewContext.
func (c Config) Validate() error {
	if !backend.IsRegistered(c.Backend) {
		return fmt.Errorf("config: %w: %q (available: %v)", ErrUnknownBackend, c.Backend, backend.Available())
	}
	if c.ColorFormat != "" {
		if _, ok := colorFormats[c.ColorFormat]; !ok {
			return fmt.Errorf("config: %w: %q", ErrUnknownColorFormat, c.ColorFormat)
		}
	}
	return nil
}

// colorFormat returns the configured format, or fallback when unset.
func (c Config) colorFormat(fallback gputypes.TextureFormat) gputypes.TextureFormat {
	if f, ok := colorFormats[c.ColorFormat]; ok {
		return f
	}
	if fallback != gputypes.TextureFormatUndefined {
		return fallback
	}
	return gputypes.TextureFormatBGRA8Unorm
}

// bindingNames fills empty names with the built-in defaults.
func (c Config) bindingNames() gpu.BindingNames {
	def := gpu.DefaultBindingNames()
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	b := c.Bindings
	return gpu.BindingNames{
		Projection: pick(b.Projection, def.Projection),
		Texture:    pick(b.Texture, def.Texture),
		Sampler:    pick(b.Sampler, def.Sampler),
		Vertices:   pick(b.Vertices, def.Vertices),
		BaseVertex: pick(b.BaseVertex, def.BaseVertex),
	}
}
