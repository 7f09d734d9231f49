// Package config loads render settings. Values come from, in increasing
// priority: built-in defaults, a YAML file, SAVEMAP_* environment variables
// (a .env file may supply them), and command line flags.
package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/astei/savemap/chunk"
	"github.com/astei/savemap/nbt"
	"github.com/astei/savemap/raster"
	"github.com/astei/savemap/tiles"
)

// EnvPrefix starts every environment variable read by ApplyEnv.
const EnvPrefix = "SAVEMAP_"

type Config struct {
	Output      string `yaml:"output"`
	TilePattern string `yaml:"tile_pattern"`
	// Palette is a palette file; empty uses the built-in table.
	Palette string `yaml:"palette"`

	Workers  int                `yaml:"workers"`
	MinZoom  int                `yaml:"min_zoom"`
	MaxDepth int                `yaml:"max_depth"`
	Snow     chunk.SnowStrategy `yaml:"snow"`
	Resample raster.Resample    `yaml:"resample"`

	FailFast     bool `yaml:"fail_fast"`
	SurfaceDumps bool `yaml:"surface_dumps"`
	FeatureDB    bool `yaml:"feature_db"`
	Quiet        bool `yaml:"quiet"`

	// MetricsFile, if set, receives a Prometheus textfile after each run.
	MetricsFile string `yaml:"metrics_file"`
}

func Default() Config {
	return Config{
		Output:       "map",
		TilePattern:  tiles.DefaultPattern,
		Workers:      runtime.NumCPU(),
		MinZoom:      -7,
		MaxDepth:     nbt.DefaultMaxDepth,
		Snow:         chunk.SnowSkipSolid,
		Resample:     raster.ResampleNearest,
		SurfaceDumps: true,
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, errors.Wrapf(err, "config %s", path)
	}
	return c, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return errors.Wrapf(err, "loading %s", f)
		}
	}
	return nil
}

type setter func(c *Config, v string) error

func stringVar(field func(*Config) *string) setter {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(*Config) *int) setter {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(*Config) *bool) setter {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}

var envVars = map[string]setter{
	"OUTPUT":        stringVar(func(c *Config) *string { return &c.Output }),
	"TILE_PATTERN":  stringVar(func(c *Config) *string { return &c.TilePattern }),
	"PALETTE":       stringVar(func(c *Config) *string { return &c.Palette }),
	"METRICS_FILE":  stringVar(func(c *Config) *string { return &c.MetricsFile }),
	"WORKERS":       intVar(func(c *Config) *int { return &c.Workers }),
	"MIN_ZOOM":      intVar(func(c *Config) *int { return &c.MinZoom }),
	"MAX_DEPTH":     intVar(func(c *Config) *int { return &c.MaxDepth }),
	"FAIL_FAST":     boolVar(func(c *Config) *bool { return &c.FailFast }),
	"SURFACE_DUMPS": boolVar(func(c *Config) *bool { return &c.SurfaceDumps }),
	"FEATURE_DB":    boolVar(func(c *Config) *bool { return &c.FeatureDB }),
	"QUIET":         boolVar(func(c *Config) *bool { return &c.Quiet }),
	"SNOW": func(c *Config, v string) error {
		return c.Snow.UnmarshalText([]byte(v))
	},
	"RESAMPLE": func(c *Config, v string) error {
		return c.Resample.UnmarshalText([]byte(v))
	},
}

// ApplyEnv overrides fields from SAVEMAP_* variables found through lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for name, set := range envVars {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		if err := set(c, v); err != nil {
			return errors.Wrapf(err, "%s%s=%q", EnvPrefix, name, v)
		}
	}
	return nil
}

func (c Config) Validate() error {
	if c.Output == "" {
		return errors.New("config: output directory is empty")
	}
	if c.Workers < 1 {
		return errors.Newf("config: workers must be positive, got %d", c.Workers)
	}
	if c.MinZoom > 0 {
		return errors.Newf("config: min_zoom must not be positive, got %d", c.MinZoom)
	}
	if c.MaxDepth < 1 {
		return errors.Newf("config: max_depth must be positive, got %d", c.MaxDepth)
	}
	if _, err := tiles.NewStore(c.Output, c.TilePattern); err != nil {
		return err
	}
	return nil
}
