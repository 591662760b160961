// Package config loads prologue.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name searched for by Find.
const FileName = "prologue.toml"

// ErrNotFound is returned when no prologue.toml exists up to the root.
var ErrNotFound = errors.New("no " + FileName + " found")

// Config is the decoded prologue.toml.
type Config struct {
	Transform TransformConfig `toml:"transform"`
	Build     BuildConfig     `toml:"build"`
	Log       LogConfig       `toml:"log"`
	Cache     CacheConfig     `toml:"cache"`

	// Path is the file the config was read from; empty for defaults.
	Path string `toml:"-"`
}

type TransformConfig struct {
	Extensions []string `toml:"extensions"`
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
}

type BuildConfig struct {
	Entry     []string `toml:"entry"`
	Outdir    string   `toml:"outdir"`
	Format    string   `toml:"format"`
	Splitting bool     `toml:"splitting"`
	Sourcemap bool     `toml:"sourcemap"`
	Platform  string   `toml:"platform"`
	Jobs      int      `toml:"jobs"`
}

type LogConfig struct {
	Level string `toml:"level"`
	// Suppress lists extra host message ids treated like a misplaced
	// module-level directive warning.
	Suppress []string `toml:"suppress"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// Default returns the configuration used without a prologue.toml.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			Outdir:   "dist",
			Format:   "esm",
			Platform: "node",
		},
		Log:   LogConfig{Level: "info"},
		Cache: CacheConfig{Enabled: true},
	}
}

// Root returns the directory holding the config, or "" for defaults.
func (c *Config) Root() string {
	if c.Path == "" {
		return ""
	}
	return filepath.Dir(c.Path)
}

// Find walks from startDir up to the filesystem root looking for FileName.
func Find(startDir string) (string, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", ErrNotFound
}

// Load decodes path on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("build") && !meta.IsDefined("build", "entry") {
		return nil, fmt.Errorf("%s: missing [build].entry", path)
	}
	cfg.Path = path
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Discover finds and loads the nearest prologue.toml, falling back to the
// defaults when there is none.
func Discover(startDir string) (*Config, error) {
	path, err := Find(startDir)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	switch c.Build.Format {
	case "esm", "cjs", "iife":
	default:
		return fmt.Errorf("[build].format must be esm, cjs or iife, got %q", c.Build.Format)
	}
	switch c.Build.Platform {
	case "node", "browser", "neutral":
	default:
		return fmt.Errorf("[build].platform must be node, browser or neutral, got %q", c.Build.Platform)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("[log].level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Build.Jobs < 0 {
		return fmt.Errorf("[build].jobs must not be negative")
	}
	for _, e := range c.Build.Entry {
		if strings.TrimSpace(e) == "" {
			return fmt.Errorf("[build].entry contains an empty path")
		}
	}
	return nil
}

// Resolve makes p absolute relative to the config root.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if root := c.Root(); root != "" {
		return filepath.Join(root, filepath.FromSlash(p))
	}
	return p
}

// Template is the starter file written by "prologue init".
const Template = `# prologue.toml

[transform]
# extensions = [".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".mts", ".cts"]
include = []
exclude = []

[build]
entry = ["src/index.ts"]
outdir = "dist"
format = "esm"
splitting = true
sourcemap = true
platform = "node"

[log]
level = "info"
suppress = []

[cache]
enabled = true
`
