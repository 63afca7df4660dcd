package elfreader

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// View is the parsed, read-only state of an ELF image held in an io.ReaderAt
// the caller owns. All parsing happens in NewView; accessors serve the
// cached results. Section lookups read r again with their own cursor.
type View struct {
	name     string
	r        io.ReaderAt
	ident    Identity
	widths   widthTable
	header   FileHeader
	sections *sectionTable
	deps     []string
	logger   *slog.Logger
}

// NewView parses the identification, file header, section table and
// dependency list of the ELF image in r. name is used only for display.
// The View does not close r.
func NewView(r io.ReaderAt, name string, opts ...Option) (*View, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return parse(r, name, o.logger.With(slog.String("file", name)))
}

func parse(r io.ReaderAt, name string, logger *slog.Logger) (*View, error) {
	ident, err := readIdentity(newCursor(r, widthTable{}))
	if err != nil {
		return nil, err
	}

	widths, err := widthsFor(ident.Class)
	if err != nil {
		return nil, err
	}

	c := newCursor(r, widths)
	header, err := readFileHeader(c)
	if err != nil {
		return nil, err
	}
	if err := header.validate(widths); err != nil {
		return nil, err
	}

	sections, err := newSectionTable(c, header)
	if err != nil {
		return nil, err
	}

	deps, err := neededLibraries(c, sections, logger)
	if err != nil {
		return nil, err
	}

	logger.Debug("ELF parsed",
		slog.String("class", ident.Class.String()),
		slog.Int("sections", int(header.Shnum)),
		slog.Int("dependencies", len(deps)))

	return &View{
		name:     name,
		r:        r,
		ident:    ident,
		widths:   widths,
		header:   header,
		sections: sections,
		deps:     deps,
		logger:   logger,
	}, nil
}

// Name returns the display name given at construction.
func (v *View) Name() string {
	return v.name
}

// Class returns the architecture class.
func (v *View) Class() Class {
	return v.ident.Class
}

// Identity returns the decoded identification bytes.
func (v *View) Identity() Identity {
	return v.ident
}

// Header returns a copy of the file header.
func (v *View) Header() FileHeader {
	return v.header
}

// Dependencies returns the DT_NEEDED library names in .dynamic order.
// The returned slice is a copy.
func (v *View) Dependencies() []string {
	deps := make([]string, len(v.deps))
	copy(deps, v.deps)
	return deps
}

// FindSection returns the section header named name. When several sections
// share the name, the one with the highest index is returned.
func (v *View) FindSection(name string) (SectionHeader, bool, error) {
	sh, ok, err := v.sections.find(newCursor(v.r, v.widths), name)
	if err != nil {
		return SectionHeader{}, false, fmt.Errorf("find section %q: %w", name, err)
	}
	v.logger.Debug("section lookup", slog.String("section", name), slog.Bool("found", ok))
	return sh, ok, nil
}

// Sections returns every section header with its resolved name, in table order.
func (v *View) Sections() ([]Section, error) {
	return v.sections.all(newCursor(v.r, v.widths))
}

// Summary returns the display state of the view.
func (v *View) Summary() Summary {
	return Summary{
		Name:         v.name,
		Class:        v.ident.Class,
		Header:       v.header,
		Dependencies: v.Dependencies(),
	}
}

// Summary is a snapshot of an opened ELF file used for reporting.
type Summary struct {
	Name         string
	Class        Class
	Header       FileHeader
	Dependencies []string
}

// noDependencies is printed when a file declares no DT_NEEDED entries.
const noDependencies = "<none>"

// String renders the human-readable report:
//
//	File: <name>
//	Bus: <32-bit|64-bit>
//	Dynamic linking dependencies: <lib1,lib2,...|<none>>
func (s Summary) String() string {
	deps := noDependencies
	if len(s.Dependencies) > 0 {
		deps = strings.Join(s.Dependencies, ",")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "File: %s\n", s.Name)
	fmt.Fprintf(&sb, "Bus: %s\n", s.Class)
	fmt.Fprintf(&sb, "Dynamic linking dependencies: %s\n", deps)
	return sb.String()
}
