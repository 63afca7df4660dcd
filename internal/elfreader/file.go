package elfreader

import (
	"log/slog"
	"sync"

	"github.com/isseis/go-elf-deps/internal/safefileio"
)

// File is an ELF file opened from disk. It owns the underlying descriptor
// until Close; every accessor fails with ErrClosed afterwards.
type File struct {
	mu     sync.Mutex
	src    safefileio.File
	view   *View
	closed bool
}

// Open opens path, validates it as an ELF file and parses its header,
// section table and dependency list. On any failure the file is closed and
// the error is wrapped in a *PathError.
func Open(path string, opts ...Option) (*File, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	openForRead := safefileio.OpenForRead
	if o.fs != nil {
		openForRead = o.fs.OpenForRead
	}

	src, err := openForRead(path, safefileio.Options{
		FollowSymlinks: o.followSymlinks,
		MaxFileSize:    o.maxFileSize,
	})
	if err != nil {
		return nil, &PathError{Path: path, Err: err}
	}

	logger := o.logger.With(slog.String("file", path))
	view, err := parse(src, path, logger)
	if err != nil {
		if closeErr := src.Close(); closeErr != nil {
			logger.Warn("error closing file after parse failure", slog.Any("error", closeErr))
		}
		return nil, &PathError{Path: path, Err: err}
	}

	return &File{src: src, view: view}, nil
}

// Close releases the underlying file. Closing twice returns ErrClosed.
func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.closed = true
	return f.src.Close()
}

// Closed reports whether Close has been called.
func (f *File) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// withView runs fn against the parsed view while the file is open.
func (f *File) withView(fn func(v *View) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	return fn(f.view)
}

// Name returns the path the file was opened with.
func (f *File) Name() (string, error) {
	var name string
	err := f.withView(func(v *View) error {
		name = v.Name()
		return nil
	})
	return name, err
}

// Class returns the architecture class.
func (f *File) Class() (Class, error) {
	var class Class
	err := f.withView(func(v *View) error {
		class = v.Class()
		return nil
	})
	return class, err
}

// Header returns a copy of the file header.
func (f *File) Header() (FileHeader, error) {
	var h FileHeader
	err := f.withView(func(v *View) error {
		h = v.Header()
		return nil
	})
	return h, err
}

// Dependencies returns the DT_NEEDED library names in .dynamic order.
func (f *File) Dependencies() ([]string, error) {
	var deps []string
	err := f.withView(func(v *View) error {
		deps = v.Dependencies()
		return nil
	})
	return deps, err
}

// FindSection looks up a section header by name; see View.FindSection.
func (f *File) FindSection(name string) (SectionHeader, bool, error) {
	var (
		sh SectionHeader
		ok bool
	)
	err := f.withView(func(v *View) error {
		var err error
		sh, ok, err = v.FindSection(name)
		return err
	})
	return sh, ok, err
}

// Sections returns every section header with its resolved name.
func (f *File) Sections() ([]Section, error) {
	var sections []Section
	err := f.withView(func(v *View) error {
		var err error
		sections, err = v.Sections()
		return err
	})
	return sections, err
}

// Summary returns a reporting snapshot of the file.
func (f *File) Summary() (Summary, error) {
	var s Summary
	err := f.withView(func(v *View) error {
		s = v.Summary()
		return nil
	})
	return s, err
}

// Summarize renders the multi-line text report of the file.
func (f *File) Summarize() (string, error) {
	s, err := f.Summary()
	if err != nil {
		return "", err
	}
	return s.String(), nil
}
