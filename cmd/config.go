package cmd

import (
	"fmt"
	"os"

	"github.com/achilleasa/sunray/asset"
	"github.com/achilleasa/sunray/bvh"
	"github.com/achilleasa/sunray/scene"
	"github.com/segmentio/encoding/json"
	"github.com/urfave/cli"
)

// Config holds the settings shared by all commands. It can be loaded from a
// JSON file with --config; command line flags override it.
type Config struct {
	Build       bvh.Options       `json:"build"`
	Grid        scene.GridOptions `json:"grid"`
	Compression string            `json:"compression"`
	Workers     int               `json:"workers"`
	MetricsAddr string            `json:"metrics_addr"`
}

// Get the default configuration.
func DefaultConfig() Config {
	return Config{
		Build:       bvh.DefaultOptions(),
		Grid:        scene.DefaultGridOptions(),
		Compression: "zstd",
		Workers:     4,
	}
}

// Load a config file on top of the defaults. Missing keys keep their default
// values.
func LoadConfig(filename string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, err
	}
	if err = json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", filename, err)
	}
	return cfg, nil
}

// Check that the config values can be used.
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("config: invalid worker count %d", c.Workers)
	}
	if _, err := asset.ParseCompression(c.Compression); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Build the config for a command: defaults, then the --config file, then any
// flags set on the command line.
func configFromContext(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()
	if file := ctx.String("config"); file != "" {
		var err error
		if cfg, err = LoadConfig(file); err != nil {
			return cfg, err
		}
	}

	if ctx.IsSet("max-leaf") {
		cfg.Build.MaxLeafPrimitives = ctx.Int("max-leaf")
	}
	if ctx.IsSet("buckets") {
		cfg.Build.Buckets = ctx.Int("buckets")
	}
	if ctx.IsSet("ray-epsilon") {
		cfg.Build.RayEpsilon = float32(ctx.Float64("ray-epsilon"))
	}
	if ctx.IsSet("columns") {
		cfg.Grid.Columns = ctx.Int("columns")
	}
	if ctx.IsSet("rows") {
		cfg.Grid.Rows = ctx.Int("rows")
	}
	if ctx.IsSet("layers") {
		cfg.Grid.Layers = ctx.Int("layers")
	}
	if ctx.IsSet("tessellation") {
		cfg.Grid.Tessellation = ctx.Int("tessellation")
	}
	if ctx.IsSet("compression") {
		cfg.Compression = ctx.String("compression")
	}
	if ctx.IsSet("workers") {
		cfg.Workers = ctx.Int("workers")
	}
	if ctx.IsSet("metrics-addr") {
		cfg.MetricsAddr = ctx.String("metrics-addr")
	}
	return cfg, cfg.Validate()
}
