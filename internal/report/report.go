// Package report renders parsed ELF files for people (Text) and for
// scripts (JSON lines).
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/isseis/go-elf-deps/internal/elfreader"
)

// Report is everything printed for one input file.
type Report struct {
	Summary elfreader.Summary
	// Sections is printed only when non-nil.
	Sections []elfreader.Section
}

// Text writes the three summary lines followed by one line per section.
func Text(w io.Writer, r Report) error {
	if _, err := io.WriteString(w, r.Summary.String()); err != nil {
		return err
	}
	if r.Sections == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "Sections: %d\n", len(r.Sections)); err != nil {
		return err
	}
	for _, s := range r.Sections {
		if _, err := fmt.Fprintf(w, "  [%d] %s offset=%#x size=%#x\n", s.Index, displayName(s.Name), s.Offset, s.Size); err != nil {
			return err
		}
	}
	return nil
}

func displayName(name string) string {
	if name == "" {
		return "<null>"
	}
	return name
}

type jsonSection struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Type   uint32 `json:"type"`
	Offset uint64 `json:"offset"`
	Size   uint64 `json:"size"`
}

type jsonReport struct {
	File         string        `json:"file"`
	Class        string        `json:"class"`
	Type         uint16        `json:"type"`
	Machine      uint16        `json:"machine"`
	Entry        string        `json:"entry"`
	Dependencies []string      `json:"dependencies"`
	Sections     []jsonSection `json:"sections,omitempty"`
}

// JSON writes r as a single line JSON object. Dependencies is always an
// array, empty for a statically linked file.
func JSON(w io.Writer, r Report) error {
	deps := r.Summary.Dependencies
	if deps == nil {
		deps = []string{}
	}
	out := jsonReport{
		File:         r.Summary.Name,
		Class:        r.Summary.Class.String(),
		Type:         r.Summary.Header.Type,
		Machine:      r.Summary.Header.Machine,
		Entry:        fmt.Sprintf("%#x", r.Summary.Header.Entry),
		Dependencies: deps,
	}
	for _, s := range r.Sections {
		out.Sections = append(out.Sections, jsonSection{
			Index:  s.Index,
			Name:   s.Name,
			Type:   s.Type,
			Offset: s.Offset,
			Size:   s.Size,
		})
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode report for %s: %w", r.Summary.Name, err)
	}
	return nil
}
