package elfreader

import (
	"log/slog"

	"github.com/isseis/go-elf-deps/internal/safefileio"
)

// Option configures Open and NewView.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	fs             safefileio.FileSystem
	maxFileSize    int64
	followSymlinks bool
}

func defaultOptions() options {
	return options{
		logger:         slog.Default(),
		maxFileSize:    safefileio.DefaultMaxFileSize,
		followSymlinks: true,
	}
}

// WithLogger sets the logger used for debug diagnostics. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMaxFileSize rejects files larger than n bytes in Open.
func WithMaxFileSize(n int64) Option {
	return func(o *options) {
		o.maxFileSize = n
	}
}

// WithFollowSymlinks controls whether Open accepts symbolic links in the path.
func WithFollowSymlinks(follow bool) Option {
	return func(o *options) {
		o.followSymlinks = follow
	}
}

// WithFileSystem replaces the file system Open reads from.
// This is primarily for testing purposes.
func WithFileSystem(fs safefileio.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}
