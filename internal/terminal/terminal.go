// Package terminal decides how diagnostics should look on the stream they are
// written to: whether a person is watching (interactive) and whether ANSI
// colors are wanted.
package terminal

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// Capabilities reports terminal features for one output stream.
type Capabilities interface {
	IsInteractive() bool
	SupportsColor() bool
}

// ColorMode is the user's color choice from a flag or the config file.
type ColorMode string

// Color modes.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode validates s. An empty string means ColorAuto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidColorMode, s)
	}
}

// fdStream is satisfied by *os.File.
type fdStream interface {
	Fd() uintptr
}

// Options configures a Detector.
type Options struct {
	// Color is the explicit user choice; the zero value behaves as ColorAuto.
	Color ColorMode
	// Stream is the output being decorated (default: os.Stderr).
	Stream fdStream
	// LookupEnv reads the environment (default: os.LookupEnv).
	LookupEnv func(string) (string, bool)

	isTerminal func(fd int) bool
}

// Detector implements Capabilities from the environment and a file descriptor.
type Detector struct {
	color      ColorMode
	fd         int
	lookupEnv  func(string) (string, bool)
	isTerminal func(fd int) bool
}

var _ Capabilities = (*Detector)(nil)

// New creates a Detector, filling in defaults for unset options.
func New(opts Options) *Detector {
	d := &Detector{
		color:      opts.Color,
		lookupEnv:  opts.LookupEnv,
		isTerminal: opts.isTerminal,
	}
	if d.color == "" {
		d.color = ColorAuto
	}
	stream := opts.Stream
	if stream == nil {
		stream = os.Stderr
	}
	d.fd = int(stream.Fd()) // #nosec G115 - file descriptors fit in int
	if d.lookupEnv == nil {
		d.lookupEnv = os.LookupEnv
	}
	if d.isTerminal == nil {
		d.isTerminal = term.IsTerminal
	}
	return d
}

// IsInteractive is false under CI and otherwise true when the stream is a terminal.
func (d *Detector) IsInteractive() bool {
	if d.isCI() {
		return false
	}
	return d.isTerminal(d.fd)
}

// SupportsColor resolves, in order: the explicit mode, CLICOLOR_FORCE,
// NO_COLOR, then interactive detection with TERM and CLICOLOR.
func (d *Detector) SupportsColor() bool {
	switch d.color {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	}
	if v, ok := d.lookupEnv("CLICOLOR_FORCE"); ok && isTruthy(v) {
		return true
	}
	if _, ok := d.lookupEnv("NO_COLOR"); ok {
		return false
	}
	if !d.IsInteractive() || !d.termSupportsColor() {
		return false
	}
	if v, ok := d.lookupEnv("CLICOLOR"); ok && v != "" {
		return isTruthy(v)
	}
	return true
}

// Paint wraps s in the given SGR code when caps supports color.
func Paint(caps Capabilities, code, s string) string {
	if caps == nil || !caps.SupportsColor() {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

// SGR codes used by the commands.
const (
	Red  = "31"
	Bold = "1"
)
