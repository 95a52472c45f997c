package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tideflow "github.com/firstbrett/tideflow-md-to-pdf"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/fileutil"
	"github.com/firstbrett/tideflow-md-to-pdf/internal/yamlutil"
)

// Sentinel errors for configuration loading.
var (
	ErrConfigNotFound   = errors.New("config file not found")
	ErrConfigParse      = errors.New("failed to parse config file")
	ErrInvalidDuration  = errors.New("invalid duration")
	ErrInvalidFormat    = errors.New("invalid output format")
	ErrInvalidPPIConfig = errors.New("ppi must be positive")
)

const configFileName = "tideflow.yaml"

// Config holds file-based defaults. CLI flags override every field.
type Config struct {
	Typst    string `yaml:"typst"`
	Debounce string `yaml:"debounce"`
	Timeout  string `yaml:"timeout"`
	Format   string `yaml:"format"`
	PPI      int    `yaml:"ppi"`
	AssetDir string `yaml:"asset_dir"`
	Output   string `yaml:"output"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Typst:    "typst",
		Debounce: "400ms",
		Timeout:  "30s",
		Format:   "pdf",
		PPI:      144,
	}
}

// LoadConfig reads a config file. An empty path searches the working
// directory and then the user config directory; absence is not an error
// in that case, and the defaults apply. A bare file name (no path
// separators) is searched in the same places.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	switch {
	case !explicit:
		path = findConfig(configFileName)
		if path == "" {
			return DefaultConfig(), nil
		}
	case !fileutil.IsFilePath(path):
		if found := findConfig(path); found != "" {
			path = found
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if explicit && os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, path, err)
	}
	return cfg, nil
}

// findConfig looks for a config file in the working directory first, then
// in the per-user config directory.
func findConfig(name string) string {
	if fileutil.FileExists(name) {
		return name
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "tideflow", name)
	if fileutil.FileExists(p) {
		return p
	}
	return ""
}

// mergeFlags overlays CLI flags onto the config. CLI wins.
func mergeFlags(flags *cliFlags, cfg *Config) {
	if flags.tool.typstPath != "" {
		cfg.Typst = flags.tool.typstPath
	}
	if flags.tool.assetDir != "" {
		cfg.AssetDir = flags.tool.assetDir
	}
	if flags.render.debounce != "" {
		cfg.Debounce = flags.render.debounce
	}
	if flags.render.timeout != "" {
		cfg.Timeout = flags.render.timeout
	}
	if flags.output.format != "" {
		cfg.Format = flags.output.format
	}
	if flags.output.ppi > 0 {
		cfg.PPI = flags.output.ppi
	}
	if flags.output.output != "" {
		cfg.Output = flags.output.output
	}
}

// validate checks the merged configuration.
func (c *Config) validate() error {
	switch c.Format {
	case "pdf", "png", "svg":
	default:
		return fmt.Errorf("%w: %q (want pdf, png, or svg)", ErrInvalidFormat, c.Format)
	}
	if c.PPI <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPPIConfig, c.PPI)
	}
	if _, err := c.duration(c.Debounce); err != nil {
		return err
	}
	if _, err := c.duration(c.Timeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidDuration, s)
	}
	return d, nil
}

// sessionOptions translates the config into session options.
func (c *Config) sessionOptions() ([]tideflow.Option, error) {
	debounce, err := c.duration(c.Debounce)
	if err != nil {
		return nil, err
	}
	timeout, err := c.duration(c.Timeout)
	if err != nil {
		return nil, err
	}
	if timeout == 0 {
		timeout = tideflow.DefaultTimeout
	}
	opts := []tideflow.Option{
		tideflow.WithDebounce(debounce),
		tideflow.WithTimeout(timeout),
		tideflow.WithCompilerPath(c.Typst),
		tideflow.WithExportPPI(c.PPI),
	}
	if c.AssetDir != "" {
		opts = append(opts, tideflow.WithAssetDir(c.AssetDir))
	}
	return opts, nil
}
