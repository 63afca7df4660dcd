package elfreader

import (
	"encoding/binary"
	"fmt"
)

// Class is the ELF file class taken from EI_CLASS.
type Class uint8

const (
	// ClassNone is the zero value; no file decodes to it.
	ClassNone Class = 0
	// Class32 is ELFCLASS32.
	Class32 Class = 1
	// Class64 is ELFCLASS64.
	Class64 Class = 2
)

// String returns the bus width label used in summaries.
func (c Class) String() string {
	switch c {
	case Class32:
		return "32-bit"
	case Class64:
		return "64-bit"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// fieldKind is a semantic ELF field category. Concrete byte widths come only
// from a widthTable.
type fieldKind int

const (
	kindHalf fieldKind = iota
	kindWord
	kindSword
	kindAddr
	kindOffset
	kindXword
	kindSxword
	numFieldKinds
)

func (k fieldKind) String() string {
	switch k {
	case kindHalf:
		return "half"
	case kindWord:
		return "word"
	case kindSword:
		return "sword"
	case kindAddr:
		return "addr"
	case kindOffset:
		return "offset"
	case kindXword:
		return "xword"
	case kindSxword:
		return "sxword"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// widthTable maps every field category to its size in bytes.
type widthTable [numFieldKinds]int

var (
	widths32 = widthTable{
		kindHalf:   2,
		kindWord:   4,
		kindSword:  4,
		kindAddr:   4,
		kindOffset: 4,
		kindXword:  4,
		kindSxword: 4,
	}
	widths64 = widthTable{
		kindHalf:   2,
		kindWord:   4,
		kindSword:  4,
		kindAddr:   8,
		kindOffset: 8,
		kindXword:  8,
		kindSxword: 8,
	}
)

// widthsFor returns the width table of c.
func widthsFor(c Class) (widthTable, error) {
	switch c {
	case Class32:
		return widths32, nil
	case Class64:
		return widths64, nil
	default:
		return widthTable{}, &UnsupportedClassError{Class: byte(c)}
	}
}

// size returns the byte width of k.
func (w widthTable) size(k fieldKind) int {
	return w[k]
}

// layoutSize returns the total byte width of a field sequence.
func (w widthTable) layoutSize(layout []fieldKind) int {
	n := 0
	for _, k := range layout {
		n += w[k]
	}
	return n
}

// decodeUnsigned decodes a little-endian unsigned integer of len(b) bytes.
func decodeUnsigned(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(b))
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		panic(fmt.Sprintf("elfreader: unsupported field width %d", len(b)))
	}
}

// decodeSigned decodes a little-endian two's complement integer of len(b)
// bytes, sign-extended to 64 bits.
func decodeSigned(b []byte) int64 {
	u := decodeUnsigned(b)
	switch len(b) {
	case 1:
		return int64(int8(u))
	case 2:
		return int64(int16(u))
	case 4:
		return int64(int32(u))
	default:
		return int64(u)
	}
}
