package terminal

import (
	"errors"
	"strings"
)

// ErrInvalidColorMode is returned by ParseColorMode.
var ErrInvalidColorMode = errors.New("invalid color mode")

// ciEnvVars are set by common CI systems.
var ciEnvVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"TRAVIS",
	"CIRCLECI",
	"JENKINS_URL",
	"BUILD_NUMBER",
	"GITLAB_CI",
	"APPVEYOR",
	"BUILDKITE",
	"DRONE",
	"TF_BUILD",
}

// colorTerminals lists TERM values, or prefixes before a dash, known to handle ANSI colors.
var colorTerminals = []string{
	"xterm",
	"screen",
	"tmux",
	"rxvt",
	"vt100",
	"vt220",
	"ansi",
	"linux",
	"cygwin",
	"putty",
}

func (d *Detector) isCI() bool {
	for _, name := range ciEnvVars {
		v, ok := d.lookupEnv(name)
		if !ok || v == "" {
			continue
		}
		// CI=false and friends opt out
		if name == "CI" {
			return !isFalsy(v)
		}
		return true
	}
	return false
}

func (d *Detector) termSupportsColor() bool {
	v, _ := d.lookupEnv("TERM")
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "dumb" {
		return false
	}
	for _, t := range colorTerminals {
		if v == t || strings.HasPrefix(v, t+"-") {
			return true
		}
	}
	return false
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func isFalsy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no":
		return true
	default:
		return false
	}
}
