package elfreader

import (
	"fmt"
	"math"
)

// FileHeader holds the fields of the ELF file header that follow e_ident.
// Address and offset fields are widened to 64 bits for both classes.
type FileHeader struct {
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Ehsize    uint16
	Phentsize uint16
	Phnum     uint16
	Shentsize uint16
	Shnum     uint16
	Shstrndx  uint16
}

// headerLayout is the declared field order of the file header.
var headerLayout = []fieldKind{
	kindHalf,   // e_type
	kindHalf,   // e_machine
	kindWord,   // e_version
	kindAddr,   // e_entry
	kindOffset, // e_phoff
	kindOffset, // e_shoff
	kindWord,   // e_flags
	kindHalf,   // e_ehsize
	kindHalf,   // e_phentsize
	kindHalf,   // e_phnum
	kindHalf,   // e_shentsize
	kindHalf,   // e_shnum
	kindHalf,   // e_shstrndx
}

// headerSize returns the size in bytes of a complete header, e_ident included.
func headerSize(w widthTable) int {
	return identSize + w.layoutSize(headerLayout)
}

// readFileHeader decodes the file header at offset 16. Any field that runs
// past the end of the source fails with ErrTruncated.
func readFileHeader(c *cursor) (FileHeader, error) {
	var h FileHeader
	if err := c.seek(identSize); err != nil {
		return h, err
	}

	v, err := c.fields(headerLayout)
	if err != nil {
		return h, fmt.Errorf("file header: %w", err)
	}

	h = FileHeader{
		Type:      uint16(v[0]),
		Machine:   uint16(v[1]),
		Version:   uint32(v[2]),
		Entry:     v[3],
		Phoff:     v[4],
		Shoff:     v[5],
		Flags:     uint32(v[6]),
		Ehsize:    uint16(v[7]),
		Phentsize: uint16(v[8]),
		Phnum:     uint16(v[9]),
		Shentsize: uint16(v[10]),
		Shnum:     uint16(v[11]),
		Shstrndx:  uint16(v[12]),
	}

	// e_ehsize may declare a header larger than the fields decoded above.
	if int(h.Ehsize) > headerSize(c.widths) {
		if err := c.seek(uint64(h.Ehsize) - 1); err != nil {
			return h, err
		}
		if _, err := c.read(1); err != nil {
			return h, fmt.Errorf("file header (e_ehsize=%d): %w", h.Ehsize, err)
		}
	}

	return h, nil
}

// validate checks the section table geometry the rest of the reader relies on.
func (h FileHeader) validate(w widthTable) error {
	if h.Shnum == 0 {
		return nil
	}
	if h.Shstrndx >= h.Shnum {
		return fmt.Errorf("%w: e_shstrndx %d out of range (e_shnum %d)", ErrInvalidSection, h.Shstrndx, h.Shnum)
	}
	if want := w.layoutSize(sectionLayout); int(h.Shentsize) < want {
		return fmt.Errorf("%w: e_shentsize %d smaller than a section header (%d)", ErrInvalidSection, h.Shentsize, want)
	}
	if extent := uint64(h.Shnum) * uint64(h.Shentsize); h.Shoff > math.MaxUint64-extent {
		return fmt.Errorf("%w: section header table at %#x overflows", ErrInvalidSection, h.Shoff)
	}
	return nil
}
