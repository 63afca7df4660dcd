package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/isseis/go-elf-deps/internal/terminal"
	"github.com/oklog/ulid/v2"
)

// Supported console formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// File permissions for the optional log file.
const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600
)

// Static errors
var (
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrWriterRequired   = errors.New("log writer is required")
)

// ParseLevel maps debug, info, warn and error (case-insensitive) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, s)
	}
}

// GenerateRunID returns a new ULID identifying one process run.
func GenerateRunID() string {
	return ulid.Make().String()
}

// Options configures Setup.
type Options struct {
	// Level is the minimum level written anywhere.
	Level slog.Level
	// Format is FormatText or FormatJSON for the console handler.
	Format string
	// Writer receives console records, usually os.Stderr.
	Writer io.Writer
	// Capabilities, when set, hides console records below warn on an
	// interactive terminal unless Level is debug.
	Capabilities terminal.Capabilities
	// LogFile, when set, additionally receives every record as JSON lines.
	LogFile string
	// RunID is attached to every record as run_id.
	RunID string
}

// Setup builds a logger from opts. The returned closer releases the log
// file, if any, and is never nil.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	if opts.Writer == nil {
		return nil, nil, ErrWriterRequired
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}

	var console slog.Handler
	switch opts.Format {
	case "", FormatText:
		console = slog.NewTextHandler(opts.Writer, handlerOpts)
	case FormatJSON:
		console = slog.NewJSONHandler(opts.Writer, handlerOpts)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidLogFormat, opts.Format)
	}

	if opts.Capabilities != nil && opts.Level > slog.LevelDebug {
		conditional, err := NewConditionalHandler(ConditionalHandlerOptions{
			Capabilities: opts.Capabilities,
			Inner:        console,
		})
		if err != nil {
			return nil, nil, err
		}
		console = conditional
	}

	handlers := []slog.Handler{console}
	var closer io.Closer = nopCloser{}
	if opts.LogFile != "" {
		f, err := openLogFile(opts.LogFile)
		if err != nil {
			return nil, nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
		closer = f
	}

	var handler slog.Handler = handlers[0]
	if len(handlers) > 1 {
		handler = NewMultiHandler(handlers...)
	}

	logger := slog.New(handler)
	if opts.RunID != "" {
		logger = logger.With(slog.String("run_id", opts.RunID))
	}
	return logger, closer, nil
}

// openLogFile opens path for appending, refusing a symlink as the final component.
func openLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	// #nosec G304 - the path comes from the operator's configuration and O_NOFOLLOW rejects symlinks
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND|syscall.O_NOFOLLOW, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
