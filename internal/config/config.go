// Package config loads litesheet.toml, the settings shared by every
// litesheet command.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

// DefaultPath is the config file looked up when --config is not given
const DefaultPath = "litesheet.toml"

// name normalization modes
const (
	NormalizeNone  = "none"
	NormalizeUpper = "upper"
	NormalizeLower = "lower"
)

// Config is the content of litesheet.toml
type Config struct {
	// Version is written to saved files and must match when loading them.
	Version string `toml:"version"`

	// LogLevel is a zerolog level name: debug, info, warn, error, disabled.
	LogLevel string `toml:"log_level"`

	// Names controls how cell names are normalized and which are accepted.
	Names NamesConfig `toml:"names"`

	// Storage controls file persistence.
	Storage StorageConfig `toml:"storage"`
}

// NamesConfig contains cell name rules.
type NamesConfig struct {
	// Normalize is one of "none", "upper", "lower".
	Normalize string `toml:"normalize"`

	// Pattern is a regular expression a normalized name has to match.
	// Empty accepts every name of the variable grammar.
	Pattern string `toml:"pattern"`
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	// LockTimeout is how long to wait for another process to release a
	// spreadsheet file.
	LockTimeout Duration `toml:"lock_timeout"`

	// HistoryFile keeps the REPL line history.
	HistoryFile string `toml:"history_file"`
}

// Duration is a wrapper for time.Duration that supports TOML marshaling.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Version:  spreadsheet.DefaultVersion,
		LogLevel: zerolog.LevelInfoValue,
		Names: NamesConfig{
			Normalize: NormalizeUpper,
			Pattern:   `^[A-Z]+[1-9][0-9]*$`,
		},
		Storage: StorageConfig{
			LockTimeout: Duration{spreadsheet.DefaultLockTimeout},
			HistoryFile: ".litesheet_history",
		},
	}
}

// Load reads the config at path on top of the defaults. a missing file is
// not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that can be wrong independently of the others.
func (c *Config) Validate() error {
	if _, err := c.Normalizer(); err != nil {
		return err
	}
	if _, err := c.Validator(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Storage.LockTimeout.Duration < 0 {
		return fmt.Errorf("storage.lock_timeout must not be negative, got %s", c.Storage.LockTimeout.Duration)
	}
	return nil
}

// Normalizer returns the cell name normalizer for names.normalize.
func (c *Config) Normalizer() (func(string) string, error) {
	switch c.Names.Normalize {
	case "", NormalizeNone:
		return func(s string) string { return s }, nil
	case NormalizeUpper:
		return func(s string) string { return cases.Upper(language.Und).String(s) }, nil
	case NormalizeLower:
		return func(s string) string { return cases.Lower(language.Und).String(s) }, nil
	}
	return nil, fmt.Errorf("names.normalize must be %q, %q or %q, got %q",
		NormalizeNone, NormalizeUpper, NormalizeLower, c.Names.Normalize)
}

// Validator returns the cell name validator for names.pattern.
func (c *Config) Validator() (func(string) bool, error) {
	if c.Names.Pattern == "" {
		return func(string) bool { return true }, nil
	}
	re, err := regexp.Compile(c.Names.Pattern)
	if err != nil {
		return nil, fmt.Errorf("names.pattern: %w", err)
	}
	return re.MatchString, nil
}

// Level returns the zerolog level for log_level.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// SheetOptions returns the spreadsheet options described by the config.
func (c *Config) SheetOptions(logger zerolog.Logger) ([]spreadsheet.Option, error) {
	normalize, err := c.Normalizer()
	if err != nil {
		return nil, err
	}
	validate, err := c.Validator()
	if err != nil {
		return nil, err
	}
	return []spreadsheet.Option{
		spreadsheet.WithNormalizer(normalize),
		spreadsheet.WithValidator(validate),
		spreadsheet.WithVersion(c.Version),
		spreadsheet.WithLogger(logger),
	}, nil
}
