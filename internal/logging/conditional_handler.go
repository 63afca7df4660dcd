package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/isseis/go-elf-deps/internal/terminal"
)

// Static errors for ConditionalHandler validation
var (
	ErrConditionalHandlerCapabilitiesRequired = errors.New("ConditionalHandler: Capabilities is required")
	ErrConditionalHandlerInnerRequired        = errors.New("ConditionalHandler: Inner handler is required")
)

// ConditionalHandler wraps a console handler so that an interactive terminal
// only sees records at or above InteractiveLevel, while pipes and CI logs get
// everything the inner handler accepts.
type ConditionalHandler struct {
	capabilities     terminal.Capabilities
	inner            slog.Handler
	interactiveLevel slog.Leveler
}

// ConditionalHandlerOptions configures the ConditionalHandler.
type ConditionalHandlerOptions struct {
	// Capabilities provides terminal feature detection
	Capabilities terminal.Capabilities

	// Inner receives the records that pass the filter
	Inner slog.Handler

	// InteractiveLevel is the minimum level shown on a terminal (default: slog.LevelWarn)
	InteractiveLevel slog.Leveler
}

// NewConditionalHandler creates a ConditionalHandler.
// Returns an error if any required options are missing.
func NewConditionalHandler(opts ConditionalHandlerOptions) (*ConditionalHandler, error) {
	if opts.Capabilities == nil {
		return nil, ErrConditionalHandlerCapabilitiesRequired
	}
	if opts.Inner == nil {
		return nil, ErrConditionalHandlerInnerRequired
	}
	level := opts.InteractiveLevel
	if level == nil {
		level = slog.LevelWarn
	}
	return &ConditionalHandler{
		capabilities:     opts.Capabilities,
		inner:            opts.Inner,
		interactiveLevel: level,
	}, nil
}

// Enabled reports whether the handler handles records at the given level.
func (h *ConditionalHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.capabilities.IsInteractive() && level < h.interactiveLevel.Level() {
		return false
	}
	return h.inner.Enabled(ctx, level)
}

// Handle forwards r to the inner handler when it passes the filter.
func (h *ConditionalHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.capabilities.IsInteractive() && r.Level < h.interactiveLevel.Level() {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs returns a new handler with additional attributes.
func (h *ConditionalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConditionalHandler{
		capabilities:     h.capabilities,
		inner:            h.inner.WithAttrs(attrs),
		interactiveLevel: h.interactiveLevel,
	}
}

// WithGroup returns a new handler with an additional group.
func (h *ConditionalHandler) WithGroup(name string) slog.Handler {
	return &ConditionalHandler{
		capabilities:     h.capabilities,
		inner:            h.inner.WithGroup(name),
		interactiveLevel: h.interactiveLevel,
	}
}
