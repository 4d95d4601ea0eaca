package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"impostor-baker/internal/billboard"
	"impostor-baker/internal/dilate"
	"impostor-baker/internal/export"
	"impostor-baker/internal/impostor"
	"impostor-baker/internal/raster"

	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a config value outside its accepted range.
var ErrInvalid = errors.New("config: invalid value")

// Config is the YAML document read by cmd/bake.
type Config struct {
	Bake      BakeConfig      `yaml:"bake"`
	Dilate    DilateConfig    `yaml:"dilate"`
	Billboard BillboardConfig `yaml:"billboard"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BakeConfig controls the atlas bake.
type BakeConfig struct {
	Tiles       int    `yaml:"tiles"`
	Resolution  int    `yaml:"resolution"`
	Shading     string `yaml:"shading"`      // flat | lit
	NormalSpace string `yaml:"normal_space"` // object | view
	Supersample int    `yaml:"supersample"`
}

// DilateConfig controls albedo dilation.
type DilateConfig struct {
	Passes          int     `yaml:"passes"`
	MaxSteps        int     `yaml:"max_steps"`
	Epsilon         float64 `yaml:"epsilon"`
	Gain            float64 `yaml:"gain"`
	ProjectionScale float64 `yaml:"projection_scale"`
	Workers         int     `yaml:"workers"`
}

// BillboardConfig controls display-time sampling.
type BillboardConfig struct {
	Source  string  `yaml:"source"` // normal | albedo
	Edge    string  `yaml:"edge"`   // clamp | wrap | mirror
	Epsilon float64 `yaml:"epsilon"`
}

// OutputConfig controls where and how atlases are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Format    string `yaml:"format"` // webp | tga | png
	Workers   int    `yaml:"workers"`
	Preview   int    `yaml:"preview"` // preview image size in pixels; 0 disables
	RawAlbedo bool   `yaml:"raw_albedo"`
}

// LoggingConfig selects the log level and optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() Config {
	d := dilate.DefaultOptions()
	return Config{
		Bake: BakeConfig{
			Tiles:       16,
			Resolution:  2048,
			Shading:     "flat",
			NormalSpace: "object",
			Supersample: 1,
		},
		Dilate: DilateConfig{
			Passes:          d.Passes,
			MaxSteps:        d.MaxSteps,
			Epsilon:         d.Epsilon,
			Gain:            d.Gain,
			ProjectionScale: d.ProjectionScale,
			Workers:         runtime.NumCPU(),
		},
		Billboard: BillboardConfig{
			Source:  "normal",
			Edge:    "clamp",
			Epsilon: 1e-5,
		},
		Output: OutputConfig{
			Dir:     "impostors",
			Format:  "webp",
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML config file on top of Default. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	Tiles      int
	Resolution int
	Passes     int // negative keeps the file value; 0 disables dilation
	OutputDir  string
	Format     string
	Workers    int
	Preview    int
	LogLevel   string
	LogFile    string
}

// Resolve applies CLI overrides and fills any zero fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.Tiles > 0 {
		c.Bake.Tiles = flags.Tiles
	}
	if flags.Resolution > 0 {
		c.Bake.Resolution = flags.Resolution
	}
	if flags.Passes >= 0 {
		c.Dilate.Passes = flags.Passes
	}
	if flags.OutputDir != "" {
		c.Output.Dir = flags.OutputDir
	}
	if flags.Format != "" {
		c.Output.Format = flags.Format
	}
	if flags.Workers > 0 {
		c.Output.Workers = flags.Workers
	}
	if flags.Preview > 0 {
		c.Output.Preview = flags.Preview
	}
	if flags.LogLevel != "" {
		c.Logging.Level = flags.LogLevel
	}
	if flags.LogFile != "" {
		c.Logging.File = flags.LogFile
	}

	def := Default()
	if c.Bake.Tiles <= 0 {
		c.Bake.Tiles = def.Bake.Tiles
	}
	if c.Bake.Resolution <= 0 {
		c.Bake.Resolution = def.Bake.Resolution
	}
	if c.Bake.Supersample <= 0 {
		c.Bake.Supersample = 1
	}
	if c.Dilate.MaxSteps <= 0 {
		c.Dilate.MaxSteps = def.Dilate.MaxSteps
	}
	if c.Dilate.Epsilon <= 0 {
		c.Dilate.Epsilon = def.Dilate.Epsilon
	}
	if c.Dilate.Workers <= 0 {
		c.Dilate.Workers = def.Dilate.Workers
	}
	if c.Billboard.Epsilon <= 0 {
		c.Billboard.Epsilon = def.Billboard.Epsilon
	}
	if c.Output.Workers <= 0 {
		c.Output.Workers = def.Output.Workers
	}
	if c.Output.Dir == "" {
		c.Output.Dir = def.Output.Dir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	_, err := c.Impostor()
	if err != nil {
		return err
	}
	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return fmt.Errorf("%w: output.format: %v", ErrInvalid, err)
	}
	if c.Output.Preview < 0 {
		return fmt.Errorf("%w: output.preview %d", ErrInvalid, c.Output.Preview)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, c.Logging.Level)
	}
	return nil
}

// Impostor converts the bake, dilate and billboard sections into a build
// configuration.
func (c Config) Impostor() (impostor.Config, error) {
	out := impostor.DefaultConfig()
	out.TileCount = c.Bake.Tiles
	out.AtlasResolution = c.Bake.Resolution
	out.DilationPasses = c.Dilate.Passes
	out.Supersample = c.Bake.Supersample

	var err error
	if out.Shading, err = parseShading(c.Bake.Shading); err != nil {
		return impostor.Config{}, err
	}
	if out.NormalSpace, err = parseNormalSpace(c.Bake.NormalSpace); err != nil {
		return impostor.Config{}, err
	}
	if out.Billboard.Source, err = parseSource(c.Billboard.Source); err != nil {
		return impostor.Config{}, err
	}
	if out.Billboard.Edge, err = parseEdge(c.Billboard.Edge); err != nil {
		return impostor.Config{}, err
	}
	out.Billboard.Epsilon = c.Billboard.Epsilon

	out.Dilate = dilate.Options{
		Passes:          c.Dilate.Passes,
		MaxSteps:        c.Dilate.MaxSteps,
		Epsilon:         c.Dilate.Epsilon,
		Gain:            c.Dilate.Gain,
		ProjectionScale: c.Dilate.ProjectionScale,
		Workers:         c.Dilate.Workers,
	}
	if err := out.Dilate.Validate(); err != nil {
		return impostor.Config{}, fmt.Errorf("%w: dilate: %v", ErrInvalid, err)
	}
	if c.Bake.Tiles < 2 || c.Bake.Resolution%c.Bake.Tiles != 0 {
		return impostor.Config{}, fmt.Errorf("%w: bake.resolution %d must be a multiple of bake.tiles %d",
			ErrInvalid, c.Bake.Resolution, c.Bake.Tiles)
	}
	return out, nil
}

func parseShading(s string) (raster.Shading, error) {
	switch strings.ToLower(s) {
	case "", "flat":
		return raster.ShadeFlat, nil
	case "lit":
		return raster.ShadeLit, nil
	}
	return 0, fmt.Errorf("%w: bake.shading %q", ErrInvalid, s)
}

func parseNormalSpace(s string) (raster.NormalSpace, error) {
	switch strings.ToLower(s) {
	case "", "object":
		return raster.NormalObject, nil
	case "view":
		return raster.NormalView, nil
	}
	return 0, fmt.Errorf("%w: bake.normal_space %q", ErrInvalid, s)
}

func parseSource(s string) (billboard.Source, error) {
	switch strings.ToLower(s) {
	case "", "normal":
		return billboard.SourceNormal, nil
	case "albedo":
		return billboard.SourceAlbedo, nil
	}
	return 0, fmt.Errorf("%w: billboard.source %q", ErrInvalid, s)
}

func parseEdge(s string) (billboard.EdgePolicy, error) {
	switch strings.ToLower(s) {
	case "", "clamp":
		return billboard.EdgeClamp, nil
	case "wrap":
		return billboard.EdgeWrap, nil
	case "mirror":
		return billboard.EdgeMirror, nil
	}
	return 0, fmt.Errorf("%w: billboard.edge %q", ErrInvalid, s)
}
