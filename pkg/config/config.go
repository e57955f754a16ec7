// Package config loads depscope.toml.
//
// A configuration file is optional. When present it is decoded with
// BurntSushi/toml, unknown keys are rejected, zero values are replaced by
// defaults and the result is checked with validator struct tags:
//
//	[limits]
//	max_depth = 4
//	max_nodes = 5000
//
//	[scan]
//	ignore = ["fixtures", "e2e"]
//
//	[cache]
//	backend = "redis"
//	redis_url = "redis://localhost:6379/0"
//	ttl = "30m"
//
//	[server]
//	addr = ":7878"
package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/graph"
	"github.com/matzehuels/depscope/pkg/scan"
	"github.com/matzehuels/depscope/pkg/stats"
)

// FileName is the configuration file looked up in the project root.
const FileName = "depscope.toml"

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Server defaults.
const (
	DefaultAddr         = ":7878"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 2 * time.Minute
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the decoded configuration.
type Config struct {
	Limits Limits `toml:"limits"`
	Scan   Scan   `toml:"scan"`
	Cache  Cache  `toml:"cache"`
	Server Server `toml:"server"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `toml:"-"`
}

// Limits bounds graph expansion.
type Limits struct {
	MaxDepth        int `toml:"max_depth" validate:"gte=0,lte=50"`
	MaxNodes        int `toml:"max_nodes" validate:"gte=0,lte=100000"`
	MaxNodesPerRoot int `toml:"max_nodes_per_root" validate:"gte=0,lte=100000"`
	MaxDirectDeps   int `toml:"max_direct_deps" validate:"gte=0,lte=10000"`
}

// Scan tunes the source scanner and stats phase.
type Scan struct {
	Ignore  []string `toml:"ignore" validate:"dive,required,excludesall=/\\"`
	Workers int      `toml:"workers" validate:"gte=0,lte=256"`
	TopN    int      `toml:"top_n" validate:"gte=0,lte=1000"`
}

// Cache selects the result cache.
type Cache struct {
	Backend  string        `toml:"backend" validate:"oneof=none file redis"`
	Dir      string        `toml:"dir"`
	RedisURL string        `toml:"redis_url" validate:"required_if=Backend redis"`
	TTL      time.Duration `toml:"ttl" validate:"gte=0"`
}

// Server configures the HTTP API.
type Server struct {
	Addr         string        `toml:"addr" validate:"required"`
	ReadTimeout  time.Duration `toml:"read_timeout" validate:"gt=0"`
	WriteTimeout time.Duration `toml:"write_timeout" validate:"gt=0"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
// Negative values are kept so that Validate can reject them.
func (c Config) WithDefaults() Config {
	d := graph.DefaultLimits()
	if c.Limits.MaxDepth == 0 {
		c.Limits.MaxDepth = d.MaxDepth
	}
	if c.Limits.MaxNodes == 0 {
		c.Limits.MaxNodes = d.MaxNodes
	}
	if c.Limits.MaxNodesPerRoot == 0 {
		c.Limits.MaxNodesPerRoot = d.MaxNodesPerRoot
	}
	if c.Limits.MaxDirectDeps == 0 {
		c.Limits.MaxDirectDeps = d.MaxDirectDeps
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = scan.DefaultWorkers
	}
	if c.Scan.TopN == 0 {
		c.Scan.TopN = stats.DefaultTopN
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendFile
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = cache.TTLAnalysis
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = DefaultReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	return c
}

// GraphLimits converts the [limits] section, with defaults applied.
func (c Config) GraphLimits() graph.Limits {
	return graph.Limits{
		MaxDepth:        c.Limits.MaxDepth,
		MaxNodes:        c.Limits.MaxNodes,
		MaxNodesPerRoot: c.Limits.MaxNodesPerRoot,
		MaxDirectDeps:   c.Limits.MaxDirectDeps,
	}.WithDefaults()
}

// Validate checks c against its struct tags.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		msg := fe.Namespace() + " fails " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		return errors.New(errors.ErrCodeInvalidConfig, "%s", msg)
	}
	return errors.Wrap(errors.ErrCodeInvalidConfig, err, "validate config")
}

// Load reads the configuration for a project. An explicit path must exist;
// otherwise <root>/depscope.toml is used when present and defaults when not.
func Load(path, root string) (Config, error) {
	if path == "" {
		candidate := filepath.Join(root, FileName)
		if _, err := os.Stat(candidate); err != nil {
			return Default(), nil
		}
		path = candidate
	}
	return LoadFile(path)
}

// LoadFile decodes, defaults and validates the file at path.
func LoadFile(path string) (Config, error) {
	var c Config
	md, err := toml.DecodeFile(path, &c)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s not found", path)
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "decode %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	c = c.WithDefaults()
	c.Path = path
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
