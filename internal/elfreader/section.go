package elfreader

import (
	"fmt"
)

// SectionHeader is one entry of the section header table. Name is the byte
// offset of the section name inside the section header string table.
type SectionHeader struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	Addralign uint64
	Entsize   uint64
}

// Section is a section header together with its resolved name.
type Section struct {
	Index int
	Name  string
	SectionHeader
}

// sectionLayout is the declared field order of a section header.
var sectionLayout = []fieldKind{
	kindWord,   // sh_name
	kindWord,   // sh_type
	kindXword,  // sh_flags
	kindAddr,   // sh_addr
	kindOffset, // sh_offset
	kindXword,  // sh_size
	kindWord,   // sh_link
	kindWord,   // sh_info
	kindXword,  // sh_addralign
	kindXword,  // sh_entsize
}

// sectionTable resolves section names through the section header string
// table. Entries are decoded on demand and never cached.
type sectionTable struct {
	header   FileHeader
	shstrtab SectionHeader
}

// newSectionTable decodes the e_shstrndx entry. A file without sections
// yields an empty table.
func newSectionTable(c *cursor, h FileHeader) (*sectionTable, error) {
	t := &sectionTable{header: h}
	if h.Shnum == 0 {
		return t, nil
	}
	strtab, err := t.entry(c, int(h.Shstrndx))
	if err != nil {
		return nil, fmt.Errorf("section header string table: %w", err)
	}
	t.shstrtab = strtab
	return t, nil
}

// len returns the number of section headers.
func (t *sectionTable) len() int {
	return int(t.header.Shnum)
}

// position returns the file offset of section header i. FileHeader.validate
// guarantees the table end fits in 64 bits.
func (t *sectionTable) position(i int) uint64 {
	return t.header.Shoff + uint64(i)*uint64(t.header.Shentsize)
}

// entry decodes all fields of section header i.
func (t *sectionTable) entry(c *cursor, i int) (SectionHeader, error) {
	var sh SectionHeader
	if err := c.seek(t.position(i)); err != nil {
		return sh, err
	}
	v, err := c.fields(sectionLayout)
	if err != nil {
		return sh, fmt.Errorf("section header %d: %w", i, err)
	}
	return SectionHeader{
		Name:      uint32(v[0]),
		Type:      uint32(v[1]),
		Flags:     v[2],
		Addr:      v[3],
		Offset:    v[4],
		Size:      v[5],
		Link:      uint32(v[6]),
		Info:      uint32(v[7]),
		Addralign: v[8],
		Entsize:   v[9],
	}, nil
}

// name resolves the name of section header i, decoding only sh_name.
func (t *sectionTable) name(c *cursor, i int) (string, error) {
	if err := c.seek(t.position(i)); err != nil {
		return "", err
	}
	off, err := c.unsigned(kindWord)
	if err != nil {
		return "", fmt.Errorf("section header %d name: %w", i, err)
	}
	return t.stringAt(c, off)
}

// stringAt reads the NUL-terminated name at off inside the string table.
func (t *sectionTable) stringAt(c *cursor, off uint64) (string, error) {
	if err := c.seekAdd(t.shstrtab.Offset, off); err != nil {
		return "", err
	}
	return c.cstring()
}

// find scans the whole table for a section called name. The scan does not
// stop at the first hit: when names repeat, the last matching entry wins.
func (t *sectionTable) find(c *cursor, name string) (SectionHeader, bool, error) {
	match := -1
	for i := 0; i < t.len(); i++ {
		n, err := t.name(c, i)
		if err != nil {
			return SectionHeader{}, false, err
		}
		if n == name {
			match = i
		}
	}
	if match < 0 {
		return SectionHeader{}, false, nil
	}
	sh, err := t.entry(c, match)
	if err != nil {
		return SectionHeader{}, false, err
	}
	return sh, true, nil
}

// all decodes every section header in table order.
func (t *sectionTable) all(c *cursor) ([]Section, error) {
	sections := make([]Section, 0, t.len())
	for i := 0; i < t.len(); i++ {
		sh, err := t.entry(c, i)
		if err != nil {
			return nil, err
		}
		name, err := t.stringAt(c, uint64(sh.Name))
		if err != nil {
			return nil, fmt.Errorf("section header %d name: %w", i, err)
		}
		sections = append(sections, Section{Index: i, Name: name, SectionHeader: sh})
	}
	return sections, nil
}
