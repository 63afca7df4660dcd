package elfreader

import (
	"bytes"
	"math"
	"testing"

	"github.com/isseis/go-elf-deps/internal/elfreader/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadIdentity(t *testing.T) {
	valid64 := elftest.New(elftest.Class64).Build()

	tests := []struct {
		name      string
		data      []byte
		wantErr   error
		wantClass Class
	}{
		{name: "64-bit", data: valid64, wantClass: Class64},
		{name: "32-bit", data: elftest.New(elftest.Class32).Build(), wantClass: Class32},
		{name: "empty input", data: nil, wantErr: ErrNotELF},
		{name: "shorter than magic", data: []byte{0x7f, 'E'}, wantErr: ErrNotELF},
		{name: "shell script", data: []byte("#!/bin/sh\necho hi\n"), wantErr: ErrNotELF},
		{name: "wrong case magic", data: []byte("\x7felf\x02\x01"), wantErr: ErrNotELF},
		{name: "magic only", data: []byte("\x7fELF"), wantErr: ErrTruncated},
		{name: "class zero", data: []byte("\x7fELF\x00\x01"), wantErr: ErrUnsupportedClass},
		{name: "class three", data: []byte("\x7fELF\x03\x01"), wantErr: ErrUnsupportedClass},
		{name: "big endian", data: []byte("\x7fELF\x02\x02"), wantErr: ErrUnsupportedByteOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := readIdentity(newCursor(bytes.NewReader(tt.data), widthTable{}))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantClass, id.Class)
			assert.Equal(t, [4]byte{0x7f, 'E', 'L', 'F'}, id.Magic)
		})
	}
}

func TestReadFileHeader_WidthDispatch(t *testing.T) {
	want := FileHeader{
		Type:      3,
		Machine:   0xb7,
		Version:   1,
		Entry:     0x1234,
		Phoff:     0x40,
		Flags:     0x5,
		Phentsize: 0x38,
		Phnum:     0,
	}

	for _, class := range []byte{elftest.Class32, elftest.Class64} {
		b := elftest.New(class)
		b.Type = want.Type
		b.Machine = want.Machine
		b.Version = want.Version
		b.Entry = want.Entry
		b.Phoff = want.Phoff
		b.Flags = want.Flags
		b.Phentsize = want.Phentsize
		data := b.AddSection(elftest.Section{Name: ".text", Type: elftest.SHTProgbits, Data: []byte{0x90}}).Build()

		widths, err := widthsFor(Class(class))
		require.NoError(t, err)

		got, err := readFileHeader(newCursor(bytes.NewReader(data), widths))
		require.NoError(t, err)

		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Machine, got.Machine)
		assert.Equal(t, want.Version, got.Version)
		assert.Equal(t, want.Entry, got.Entry)
		assert.Equal(t, want.Phoff, got.Phoff)
		assert.Equal(t, want.Flags, got.Flags)
		assert.Equal(t, want.Phentsize, got.Phentsize)
		assert.Equal(t, uint16(b.HeaderSize()), got.Ehsize)
		assert.Equal(t, uint16(b.SectionHeaderSize()), got.Shentsize)
		assert.Equal(t, uint16(3), got.Shnum)
		assert.Equal(t, uint16(2), got.Shstrndx)
		// .text (1 byte) and .shstrtab sit between the header and the table.
		assert.Equal(t, uint64(b.HeaderSize())+1+uint64(len("\x00.text\x00.shstrtab\x00")), got.Shoff)
	}
}

func TestReadFileHeader_EntryUsesClassWidth(t *testing.T) {
	// Same logical entry point, 4-byte field on 32-bit, 8-byte on 64-bit.
	d32 := elftest.New(elftest.Class32).Build()
	d64 := elftest.New(elftest.Class64).Build()

	assert.Equal(t, []byte{0x00, 0x10, 0x40, 0x00}, d32[24:28])
	assert.Equal(t, []byte{0x00, 0x10, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00}, d64[24:32])

	h32, err := readFileHeader(newCursor(bytes.NewReader(d32), widths32))
	require.NoError(t, err)
	h64, err := readFileHeader(newCursor(bytes.NewReader(d64), widths64))
	require.NoError(t, err)
	assert.Equal(t, h32.Entry, h64.Entry)
}

func TestReadFileHeader_Truncated(t *testing.T) {
	for _, class := range []byte{elftest.Class32, elftest.Class64} {
		b := elftest.New(class)
		data := b.Build()
		widths, err := widthsFor(Class(class))
		require.NoError(t, err)

		for n := identSize; n < b.HeaderSize(); n++ {
			_, err := readFileHeader(newCursor(bytes.NewReader(data[:n]), widths))
			assert.ErrorIs(t, err, ErrTruncated, "class %d, %d bytes", class, n)
		}
	}
}

func TestReadFileHeader_EhsizeBeyondSource(t *testing.T) {
	data := elftest.New(elftest.Class64).Build()
	data = data[:64]
	// e_ehsize claims a 96 byte header.
	data[52] = 96

	_, err := readFileHeader(newCursor(bytes.NewReader(data), widths64))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestFileHeaderValidate(t *testing.T) {
	tests := []struct {
		name    string
		header  FileHeader
		wantErr bool
	}{
		{name: "no sections", header: FileHeader{}},
		{name: "valid", header: FileHeader{Shnum: 4, Shstrndx: 3, Shentsize: 64}},
		{name: "shstrndx equals shnum", header: FileHeader{Shnum: 4, Shstrndx: 4, Shentsize: 64}, wantErr: true},
		{name: "shstrndx SHN_XINDEX", header: FileHeader{Shnum: 4, Shstrndx: 0xffff, Shentsize: 64}, wantErr: true},
		{name: "shentsize too small", header: FileHeader{Shnum: 4, Shstrndx: 1, Shentsize: 40}, wantErr: true},
		{name: "table ends exactly at 2^64-1", header: FileHeader{Shoff: math.MaxUint64 - 256, Shnum: 4, Shstrndx: 1, Shentsize: 64}},
		{name: "table end overflows", header: FileHeader{Shoff: math.MaxUint64 - 255, Shnum: 4, Shstrndx: 1, Shentsize: 64}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.header.validate(widths64)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSection)
				return
			}
			assert.NoError(t, err)
		})
	}
}
