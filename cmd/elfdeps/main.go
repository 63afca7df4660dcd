// Package main provides the elfdeps command. It prints the architecture
// class and the DT_NEEDED shared library dependencies of ELF files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/isseis/go-elf-deps/internal/config"
	"github.com/isseis/go-elf-deps/internal/elfreader"
	"github.com/isseis/go-elf-deps/internal/logging"
	"github.com/isseis/go-elf-deps/internal/report"
	"github.com/isseis/go-elf-deps/internal/terminal"
)

var errNoFilesProvided = errors.New("at least one ELF file must be given")

// detectTerminal is replaced in tests so that results do not depend on the
// terminal running them.
var detectTerminal = func(mode terminal.ColorMode) terminal.Capabilities {
	return terminal.New(terminal.Options{Color: mode, Stream: os.Stderr})
}

type options struct {
	configPath string
	logLevel   string
	logFile    string
	json       bool
	sections   bool
	noFollow   bool
	color      string
}

type runConfig struct {
	files    []string
	cfg      *config.Config
	json     bool
	sections bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rc, fs, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if errors.Is(err, errNoFilesProvided) {
			printUsage(fs, stdout)
			return 1
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	caps := detectTerminal(terminal.ColorMode(rc.cfg.Output.Color))
	logger, closer, err := logging.Setup(logging.Options{
		Level:        rc.cfg.LogLevel(),
		Format:       rc.cfg.Log.Format,
		Writer:       stderr,
		Capabilities: caps,
		LogFile:      rc.cfg.Log.File,
		RunID:        logging.GenerateRunID(),
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s %v\n", terminal.Paint(caps, terminal.Red, "Error:"), err)
		return 1
	}
	defer func() { _ = closer.Close() }()

	return processFiles(rc, logger, caps, stdout, stderr)
}

func parseArgs(args []string, stderr io.Writer) (*runConfig, *flag.FlagSet, error) {
	var opts options

	fs := flag.NewFlagSet("elfdeps", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }
	fs.StringVar(&opts.configPath, "config", "", "Path to a TOML configuration file")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	fs.StringVar(&opts.logFile, "log-file", "", "Also write JSON logs to this file (overrides config)")
	fs.BoolVar(&opts.json, "json", false, "Print one JSON object per file instead of text")
	fs.BoolVar(&opts.sections, "sections", false, "List the section header table of each file")
	fs.BoolVar(&opts.noFollow, "no-follow", false, "Refuse paths that contain symbolic links")
	fs.StringVar(&opts.color, "color", "", "Color diagnostics: auto, always, never (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	files := fs.Args()
	if len(files) == 0 {
		return nil, fs, errNoFilesProvided
	}

	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, fs, err
		}
		cfg = loaded
	}

	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFile != "" {
		cfg.Log.File = opts.logFile
	}
	if opts.color != "" {
		cfg.Output.Color = opts.color
	}
	if opts.json {
		cfg.Output.Format = config.OutputJSON
	}
	if opts.noFollow {
		follow := false
		cfg.Reader.FollowSymlinks = &follow
	}
	if err := cfg.Validate(); err != nil {
		return nil, fs, err
	}

	return &runConfig{
		files:    files,
		cfg:      cfg,
		json:     cfg.Output.Format == config.OutputJSON,
		sections: opts.sections,
	}, fs, nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	_, _ = fmt.Fprintf(w, "Usage: %s [flags] <elf-file> [<elf-file>...]\n", filepath.Base(os.Args[0]))
	if fs == nil {
		return
	}
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func processFiles(rc *runConfig, logger *slog.Logger, caps terminal.Capabilities, stdout, stderr io.Writer) int {
	readerOpts := []elfreader.Option{
		elfreader.WithLogger(logger),
		elfreader.WithMaxFileSize(rc.cfg.Reader.MaxFileSize),
		elfreader.WithFollowSymlinks(*rc.cfg.Reader.FollowSymlinks),
	}

	failures := 0
	printed := 0
	for _, path := range rc.files {
		r, err := describe(path, rc.sections, readerOpts)
		if err != nil {
			failures++
			logger.Debug("failed to read input", slog.String("file", path), slog.Any("error", err))
			_, _ = fmt.Fprintf(stderr, "%s %s\n", terminal.Paint(caps, terminal.Red, "Error:"), failureMessage(path, err))
			continue
		}

		if rc.json {
			err = report.JSON(stdout, r)
		} else {
			if printed > 0 {
				_, _ = fmt.Fprintln(stdout)
			}
			err = report.Text(stdout, r)
		}
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "%s failed to write report: %v\n", terminal.Paint(caps, terminal.Red, "Error:"), err)
			return 1
		}
		printed++
		logger.Info("summarized input",
			slog.String("file", path),
			slog.String("class", r.Summary.Class.String()),
			slog.Int("dependencies", len(r.Summary.Dependencies)))
	}

	if failures > 0 {
		return 1
	}
	return 0
}

// describe opens path and gathers everything the report needs before the file is closed.
func describe(path string, withSections bool, opts []elfreader.Option) (report.Report, error) {
	f, err := elfreader.Open(path, opts...)
	if err != nil {
		return report.Report{}, err
	}
	defer func() { _ = f.Close() }()

	summary, err := f.Summary()
	if err != nil {
		return report.Report{}, err
	}
	r := report.Report{Summary: summary}
	if withSections {
		sections, err := f.Sections()
		if err != nil {
			return report.Report{}, err
		}
		r.Sections = sections
	}
	return r, nil
}

func failureMessage(path string, err error) string {
	var pathErr *elfreader.PathError
	if errors.As(err, &pathErr) {
		err = pathErr.Err
	}
	if elfreader.IsFormatError(err) {
		return fmt.Sprintf("input %s does not follow ELF specification: %v", path, err)
	}
	return fmt.Sprintf("cannot read input %s: %v", path, err)
}
