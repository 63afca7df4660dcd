// Package elftest builds synthetic little-endian ELF images for tests.
package elftest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// EI_CLASS values.
const (
	Class32 byte = 1
	Class64 byte = 2
)

// Section header types and dynamic tags used by the fixtures.
const (
	SHTProgbits uint32 = 1
	SHTStrtab   uint32 = 3
	SHTDynamic  uint32 = 6

	DTNull   int64 = 0
	DTNeeded int64 = 1
	DTStrtab int64 = 5
	DTSoname int64 = 14
)

// Section describes one section to place in the image.
type Section struct {
	Name      string
	Type      uint32
	Flags     uint64
	Addr      uint64
	Data      []byte
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

// Dyn is one .dynamic entry.
type Dyn struct {
	Tag int64
	Val uint64
}

// Builder assembles an ELF image. The layout is: e_ident, file header,
// section contents, .shstrtab, section header table. Section 0 is always the
// null section and .shstrtab is appended last.
type Builder struct {
	Class     byte
	Data      byte // EI_DATA; zero means little-endian
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint64
	Phoff     uint64
	Flags     uint32
	Phentsize uint16
	Phnum     uint16

	// Shstrndx replaces the computed e_shstrndx when OverrideShstrndx is set.
	OverrideShstrndx bool
	Shstrndx         uint16

	// Shentsize replaces the natural section header size when non-zero.
	// Entries are still padded to this stride.
	Shentsize uint16

	Sections []Section
}

// New returns a Builder for an x86-64 (or i386) executable of the given class.
func New(class byte) *Builder {
	machine := uint16(0x3e)
	if class == Class32 {
		machine = 0x03
	}
	return &Builder{
		Class:   class,
		Type:    2,
		Machine: machine,
		Version: 1,
		Entry:   0x401000,
	}
}

// AddSection appends a section and returns the builder.
func (b *Builder) AddSection(s Section) *Builder {
	b.Sections = append(b.Sections, s)
	return b
}

// wordSize is the width of addr/offset/xword fields.
func (b *Builder) wordSize() int {
	if b.Class == Class32 {
		return 4
	}
	return 8
}

// HeaderSize returns e_ehsize for the builder's class.
func (b *Builder) HeaderSize() int {
	if b.Class == Class32 {
		return 52
	}
	return 64
}

// SectionHeaderSize returns the natural section header size for the class.
func (b *Builder) SectionHeaderSize() int {
	if b.Class == Class32 {
		return 40
	}
	return 64
}

func putUint(buf *bytes.Buffer, width int, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:width])
}

// Build serializes the image.
func (b *Builder) Build() []byte {
	w := b.wordSize()

	names := []string{""}
	for _, s := range b.Sections {
		names = append(names, s.Name)
	}
	names = append(names, ".shstrtab")
	shstrtab, nameOff := StringTable(names...)

	all := make([]Section, 0, len(b.Sections)+2)
	all = append(all, Section{})
	all = append(all, b.Sections...)
	all = append(all, Section{Name: ".shstrtab", Type: SHTStrtab, Data: shstrtab, Addralign: 1})

	offsets := make([]uint64, len(all))
	pos := uint64(b.HeaderSize())
	for i, s := range all {
		if i == 0 {
			continue
		}
		offsets[i] = pos
		pos += uint64(len(s.Data))
	}
	shoff := pos

	shentsize := uint16(b.SectionHeaderSize())
	if b.Shentsize != 0 {
		shentsize = b.Shentsize
	}
	shstrndx := uint16(len(all) - 1)
	if b.OverrideShstrndx {
		shstrndx = b.Shstrndx
	}
	data := b.Data
	if data == 0 {
		data = 1
	}

	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 'E', 'L', 'F', b.Class, data, 1, 0})
	buf.Write(make([]byte, 8))
	putUint(&buf, 2, uint64(b.Type))
	putUint(&buf, 2, uint64(b.Machine))
	putUint(&buf, 4, uint64(b.Version))
	putUint(&buf, w, b.Entry)
	putUint(&buf, w, b.Phoff)
	putUint(&buf, w, shoff)
	putUint(&buf, 4, uint64(b.Flags))
	putUint(&buf, 2, uint64(b.HeaderSize()))
	putUint(&buf, 2, uint64(b.Phentsize))
	putUint(&buf, 2, uint64(b.Phnum))
	putUint(&buf, 2, uint64(shentsize))
	putUint(&buf, 2, uint64(len(all)))
	putUint(&buf, 2, uint64(shstrndx))

	for _, s := range all[1:] {
		buf.Write(s.Data)
	}

	for i, s := range all {
		start := buf.Len()
		if i > 0 {
			putUint(&buf, 4, uint64(nameOff[s.Name]))
		} else {
			putUint(&buf, 4, 0)
		}
		putUint(&buf, 4, uint64(s.Type))
		putUint(&buf, w, s.Flags)
		putUint(&buf, w, s.Addr)
		putUint(&buf, w, offsets[i])
		putUint(&buf, w, uint64(len(s.Data)))
		putUint(&buf, 4, uint64(s.Link))
		putUint(&buf, 4, uint64(s.Info))
		putUint(&buf, w, s.Addralign)
		putUint(&buf, w, s.Entsize)
		if pad := int(shentsize) - (buf.Len() - start); pad > 0 {
			buf.Write(make([]byte, pad))
		}
	}

	return buf.Bytes()
}

// StringTable returns a string table holding strs (duplicates stored once)
// and the offset of each string. Offset 0 always holds the empty string.
func StringTable(strs ...string) ([]byte, map[string]uint32) {
	table := []byte{0}
	offsets := map[string]uint32{"": 0}
	for _, s := range strs {
		if _, ok := offsets[s]; ok {
			continue
		}
		offsets[s] = uint32(len(table))
		table = append(table, s...)
		table = append(table, 0)
	}
	return table, offsets
}

// DynamicEntrySize returns sizeof(ElfN_Dyn) for the class.
func DynamicEntrySize(class byte) uint64 {
	if class == Class32 {
		return 8
	}
	return 16
}

// DynamicSection encodes entries as ElfN_Dyn records.
func DynamicSection(class byte, entries ...Dyn) []byte {
	w := 8
	if class == Class32 {
		w = 4
	}
	var buf bytes.Buffer
	for _, e := range entries {
		putUint(&buf, w, uint64(e.Tag))
		putUint(&buf, w, e.Val)
	}
	return buf.Bytes()
}

// Dynamic returns a builder for a dynamically linked executable whose
// .dynamic section declares libs as DT_NEEDED, followed by DT_NULL.
func Dynamic(class byte, libs ...string) *Builder {
	dynstr, off := StringTable(libs...)

	entries := make([]Dyn, 0, len(libs)+1)
	for _, lib := range libs {
		entries = append(entries, Dyn{Tag: DTNeeded, Val: uint64(off[lib])})
	}
	entries = append(entries, Dyn{Tag: DTNull})

	return New(class).
		AddSection(Section{Name: ".text", Type: SHTProgbits, Data: []byte{0xc3}, Addralign: 16}).
		AddSection(Section{Name: ".dynstr", Type: SHTStrtab, Data: dynstr, Addralign: 1}).
		AddSection(Section{
			Name:      ".dynamic",
			Type:      SHTDynamic,
			Data:      DynamicSection(class, entries...),
			Link:      2,
			Addralign: 8,
			Entsize:   DynamicEntrySize(class),
		})
}

// WriteFile writes data under dir and returns the path.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}
