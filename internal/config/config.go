// Package config loads the optional TOML configuration for elfdeps.
//
// Every key is optional; unset keys keep the values from Default. Unknown
// keys are rejected so that typos are reported instead of silently ignored.
//
//	[log]
//	level = "info"      # debug, info, warn, error
//	format = "text"     # text, json
//	file = ""           # optional JSON lines log file
//
//	[reader]
//	max_file_size = 1073741824
//	follow_symlinks = true
//
//	[output]
//	format = "text"     # text, json
//	color = "auto"      # auto, always, never
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/isseis/go-elf-deps/internal/logging"
	"github.com/isseis/go-elf-deps/internal/safefileio"
	"github.com/isseis/go-elf-deps/internal/terminal"
	"github.com/pelletier/go-toml/v2"
)

// Default values for configuration fields
const (
	DefaultLogLevel       = "info"
	DefaultLogFormat      = logging.FormatText
	DefaultOutputFormat   = OutputText
	DefaultFollowSymlinks = true

	// maxConfigSize bounds the configuration file itself.
	maxConfigSize = 1 << 20
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// Config is the decoded configuration file.
type Config struct {
	Log    LogSpec    `toml:"log"`
	Reader ReaderSpec `toml:"reader"`
	Output OutputSpec `toml:"output"`
}

// LogSpec configures diagnostics.
type LogSpec struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// ReaderSpec configures how ELF files are opened.
type ReaderSpec struct {
	// MaxFileSize is in bytes; zero means safefileio.DefaultMaxFileSize.
	MaxFileSize int64 `toml:"max_file_size"`
	// FollowSymlinks is a pointer so that an explicit false can be told apart from unset.
	FollowSymlinks *bool `toml:"follow_symlinks"`
}

// OutputSpec configures the report written to stdout.
type OutputSpec struct {
	Format string `toml:"format"`
	Color  string `toml:"color"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills unset fields of cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Reader.MaxFileSize == 0 {
		cfg.Reader.MaxFileSize = safefileio.DefaultMaxFileSize
	}
	if cfg.Reader.FollowSymlinks == nil {
		follow := DefaultFollowSymlinks
		cfg.Reader.FollowSymlinks = &follow
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	if cfg.Output.Color == "" {
		cfg.Output.Color = string(terminal.ColorAuto)
	}
}

// Load reads, decodes, defaults and validates the file at path.
func Load(path string) (*Config, error) {
	f, err := safefileio.OpenForRead(path, safefileio.Options{
		FollowSymlinks: true,
		MaxFileSize:    maxConfigSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open config %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}
	content, err := io.ReadAll(io.NewSectionReader(f, 0, info.Size()))
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML content, applies defaults and validates the result.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownField, strict.String())
		}
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated values and limits.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return &ValidationError{Field: "log.level", Err: err}
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		return &ValidationError{Field: "log.format", Err: fmt.Errorf("%w: %q", logging.ErrInvalidLogFormat, c.Log.Format)}
	}
	if c.Reader.MaxFileSize < 0 {
		return &ValidationError{Field: "reader.max_file_size", Err: fmt.Errorf("%w: %d", ErrNegativeSize, c.Reader.MaxFileSize)}
	}
	switch c.Output.Format {
	case OutputText, OutputJSON:
	default:
		return &ValidationError{Field: "output.format", Err: fmt.Errorf("%w: %q", ErrInvalidOutputFormat, c.Output.Format)}
	}
	if _, err := terminal.ParseColorMode(c.Output.Color); err != nil {
		return &ValidationError{Field: "output.color", Err: err}
	}
	return nil
}

// LogLevel returns the parsed log level. Validate must have succeeded.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}
