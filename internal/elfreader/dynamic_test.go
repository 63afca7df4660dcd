package elfreader

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/isseis/go-elf-deps/internal/elfreader/elftest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// dynamicImage builds an image with .dynstr holding strs and .dynamic holding entries.
func dynamicImage(class byte, entsize uint64, strs []string, entries func(off map[string]uint32) []elftest.Dyn) []byte {
	dynstr, off := elftest.StringTable(strs...)
	return elftest.New(class).
		AddSection(elftest.Section{Name: ".dynstr", Type: elftest.SHTStrtab, Data: dynstr}).
		AddSection(elftest.Section{
			Name:    ".dynamic",
			Type:    elftest.SHTDynamic,
			Data:    elftest.DynamicSection(class, entries(off)...),
			Entsize: entsize,
		}).
		Build()
}

func TestNeededLibraries(t *testing.T) {
	tests := []struct {
		name string
		data func(class byte) []byte
		want []string
	}{
		{
			name: "static binary without .dynamic",
			data: func(class byte) []byte {
				return elftest.New(class).
					AddSection(elftest.Section{Name: ".text", Type: elftest.SHTProgbits, Data: []byte{0xc3}}).
					Build()
			},
			want: []string{},
		},
		{
			name: "no DT_NEEDED entries",
			data: func(class byte) []byte {
				return dynamicImage(class, elftest.DynamicEntrySize(class), []string{"libx.so"}, func(off map[string]uint32) []elftest.Dyn {
					return []elftest.Dyn{
						{Tag: elftest.DTSoname, Val: uint64(off["libx.so"])},
						{Tag: elftest.DTNull},
					}
				})
			},
			want: []string{},
		},
		{
			name: "needed entries keep order and skip other tags",
			data: func(class byte) []byte {
				return dynamicImage(class, elftest.DynamicEntrySize(class), []string{"libc.so.6", "libm.so.6"}, func(off map[string]uint32) []elftest.Dyn {
					return []elftest.Dyn{
						{Tag: elftest.DTNeeded, Val: uint64(off["libc.so.6"])},
						{Tag: 4, Val: 0xdeadbeef},
						{Tag: elftest.DTNeeded, Val: uint64(off["libm.so.6"])},
						{Tag: elftest.DTNull},
					}
				})
			},
			want: []string{"libc.so.6", "libm.so.6"},
		},
		{
			name: "duplicates are kept",
			data: func(class byte) []byte {
				return dynamicImage(class, elftest.DynamicEntrySize(class), []string{"libz.so.1"}, func(off map[string]uint32) []elftest.Dyn {
					return []elftest.Dyn{
						{Tag: elftest.DTNeeded, Val: uint64(off["libz.so.1"])},
						{Tag: elftest.DTNeeded, Val: uint64(off["libz.so.1"])},
					}
				})
			},
			want: []string{"libz.so.1", "libz.so.1"},
		},
		{
			name: "entries after DT_NULL are still walked",
			data: func(class byte) []byte {
				return dynamicImage(class, elftest.DynamicEntrySize(class), []string{"liba.so", "libb.so"}, func(off map[string]uint32) []elftest.Dyn {
					return []elftest.Dyn{
						{Tag: elftest.DTNeeded, Val: uint64(off["liba.so"])},
						{Tag: elftest.DTNull},
						{Tag: elftest.DTNeeded, Val: uint64(off["libb.so"])},
					}
				})
			},
			want: []string{"liba.so", "libb.so"},
		},
		{
			name: "name running off the end of the file",
			data: func(class byte) []byte {
				return dynamicImage(class, elftest.DynamicEntrySize(class), nil, func(_ map[string]uint32) []elftest.Dyn {
					return []elftest.Dyn{{Tag: elftest.DTNeeded, Val: 1 << 20}}
				})
			},
			want: []string{""},
		},
	}

	for _, tt := range tests {
		for _, class := range []byte{elftest.Class32, elftest.Class64} {
			t.Run(Class(class).String()+"/"+tt.name, func(t *testing.T) {
				c, table := loadTable(t, tt.data(class))
				got, err := neededLibraries(c, table, discardLogger)
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			})
		}
	}
}

func TestNeededLibraries_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{
			name: "dynamic without dynstr",
			data: elftest.New(elftest.Class64).
				AddSection(elftest.Section{
					Name:    ".dynamic",
					Type:    elftest.SHTDynamic,
					Data:    elftest.DynamicSection(elftest.Class64, elftest.Dyn{Tag: elftest.DTNeeded, Val: 1}),
					Entsize: 16,
				}).
				Build(),
			wantErr: ErrMissingStringTable,
		},
		{
			name: "zero entsize",
			data: dynamicImage(elftest.Class64, 0, []string{"libc.so.6"}, func(off map[string]uint32) []elftest.Dyn {
				return []elftest.Dyn{{Tag: elftest.DTNeeded, Val: uint64(off["libc.so.6"])}}
			}),
			wantErr: ErrInvalidSection,
		},
		{
			// .dynstr is the first section, so it starts right after the header.
			name: "name offset wrapping to the start of the file",
			data: dynamicImage(elftest.Class64, 16, nil, func(_ map[string]uint32) []elftest.Dyn {
				dynstrOff := uint64(elftest.New(elftest.Class64).HeaderSize())
				return []elftest.Dyn{{Tag: elftest.DTNeeded, Val: math.MaxUint64 - dynstrOff + 1}}
			}),
			wantErr: ErrTruncated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, table := loadTable(t, tt.data)
			_, err := neededLibraries(c, table, discardLogger)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNeededLibraries_DynamicPastEndOfFile(t *testing.T) {
	data := elftest.Dynamic(elftest.Class64, "libc.so.6").Build()
	c, table := loadTable(t, data)

	dynamic, ok, err := table.find(c, ".dynamic")
	require.NoError(t, err)
	require.True(t, ok)

	// Cut the file inside the first .dynamic entry, keeping the header table
	// reachable through a reader that only hides that range.
	c.r = &holeReaderAt{r: bytes.NewReader(data), from: int64(dynamic.Offset) + 4, to: int64(dynamic.Offset + dynamic.Size)}
	_, err = neededLibraries(c, table, discardLogger)
	assert.ErrorIs(t, err, ErrTruncated)
}

// holeReaderAt reports end of data for any read overlapping [from, to).
type holeReaderAt struct {
	r        io.ReaderAt
	from, to int64
}

func (h *holeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if off < h.to && end > h.from {
		n := 0
		if off < h.from {
			n, _ = h.r.ReadAt(p[:h.from-off], off)
		}
		return n, io.EOF
	}
	return h.r.ReadAt(p, off)
}
