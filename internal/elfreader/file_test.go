package elfreader

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/isseis/go-elf-deps/internal/elfreader/elftest"
	"github.com/isseis/go-elf-deps/internal/safefileio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := elftest.WriteFile(t, dir, "libfoo-user", elftest.Dynamic(elftest.Class64, "libfoo.so").Build())

	f, err := Open(path, WithLogger(discardLogger))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	deps, err := f.Dependencies()
	require.NoError(t, err)
	assert.Equal(t, []string{"libfoo.so"}, deps)

	class, err := f.Class()
	require.NoError(t, err)
	assert.Equal(t, Class64, class)

	name, err := f.Name()
	require.NoError(t, err)
	assert.Equal(t, path, name)

	h, err := f.Header()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x3e), h.Machine)
	assert.Equal(t, uint64(0x401000), h.Entry)
	assert.Equal(t, uint16(5), h.Shnum)
}

func TestOpen_Summarize(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{
			name: "dynamic 64-bit",
			data: elftest.Dynamic(elftest.Class64, "libc.so.6", "libm.so.6").Build(),
			want: "Bus: 64-bit\nDynamic linking dependencies: libc.so.6,libm.so.6\n",
		},
		{
			name: "static 32-bit",
			data: elftest.New(elftest.Class32).Build(),
			want: "Bus: 32-bit\nDynamic linking dependencies: <none>\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := elftest.WriteFile(t, dir, filepath.Base(t.Name()), tt.data)
			f, err := Open(path, WithLogger(discardLogger))
			require.NoError(t, err)
			defer func() { _ = f.Close() }()

			got, err := f.Summarize()
			require.NoError(t, err)
			assert.Equal(t, "File: "+path+"\n"+tt.want, got)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	full := elftest.Dynamic(elftest.Class64, "libc.so.6").Build()

	tests := []struct {
		name    string
		path    string
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing"),
			wantErr: fs.ErrNotExist,
		},
		{
			name:    "not ELF",
			path:    elftest.WriteFile(t, dir, "script.sh", []byte("#!/bin/sh\n")),
			wantErr: ErrNotELF,
		},
		{
			name:    "truncated header",
			path:    elftest.WriteFile(t, dir, "short.elf", full[:40]),
			wantErr: ErrTruncated,
		},
		{
			name:    "unsupported class",
			path:    elftest.WriteFile(t, dir, "class.elf", append([]byte("\x7fELF\x05"), full[5:]...)),
			wantErr: ErrUnsupportedClass,
		},
		{
			name:    "too large",
			path:    elftest.WriteFile(t, dir, "big.elf", full),
			opts:    []Option{WithMaxFileSize(32)},
			wantErr: safefileio.ErrFileTooLarge,
		},
		{
			name:    "directory",
			path:    dir,
			wantErr: safefileio.ErrNotRegularFile,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := append([]Option{WithLogger(discardLogger)}, tt.opts...)
			f, err := Open(tt.path, opts...)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, tt.wantErr)

			var pathErr *PathError
			require.ErrorAs(t, err, &pathErr)
			assert.Equal(t, tt.path, pathErr.Path)
		})
	}
}

func TestOpen_InvalidShstrndx(t *testing.T) {
	b := elftest.Dynamic(elftest.Class64, "libc.so.6")
	b.OverrideShstrndx = true
	b.Shstrndx = 5 // e_shnum is 5
	path := elftest.WriteFile(t, t.TempDir(), "bad.elf", b.Build())

	_, err := Open(path, WithLogger(discardLogger))
	assert.ErrorIs(t, err, ErrInvalidSection)
	assert.True(t, IsFormatError(err))
}

func TestOpen_Symlink(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	target := elftest.WriteFile(t, dir, "target.elf", elftest.Dynamic(elftest.Class64, "libc.so.6").Build())
	link := filepath.Join(dir, "link.elf")
	require.NoError(t, os.Symlink(target, link))

	f, err := Open(link, WithLogger(discardLogger))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = Open(link, WithLogger(discardLogger), WithFollowSymlinks(false))
	assert.ErrorIs(t, err, safefileio.ErrIsSymlink)
}

// stubFS serves an in-memory image through safefileio.FileSystem.
type stubFS struct {
	data   []byte
	closed bool
	err    error
}

type stubFile struct {
	*bytes.Reader
	fs *stubFS
}

func (f *stubFile) Close() error               { f.fs.closed = true; return nil }
func (f *stubFile) Stat() (os.FileInfo, error) { return nil, errors.New("not implemented") }
func (f *stubFile) Name() string               { return "stub" }

func (s *stubFS) OpenForRead(_ string, _ safefileio.Options) (safefileio.File, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stubFile{Reader: bytes.NewReader(s.data), fs: s}, nil
}

func TestOpen_ClosesSourceOnParseFailure(t *testing.T) {
	stub := &stubFS{data: []byte("not an elf")}
	_, err := Open("in-memory", WithFileSystem(stub), WithLogger(discardLogger))
	assert.ErrorIs(t, err, ErrNotELF)
	assert.True(t, stub.closed)
}

func TestFile_Closed(t *testing.T) {
	stub := &stubFS{data: elftest.Dynamic(elftest.Class32, "libc.so.6").Build()}
	f, err := Open("in-memory", WithFileSystem(stub), WithLogger(discardLogger))
	require.NoError(t, err)
	assert.False(t, f.Closed())

	require.NoError(t, f.Close())
	assert.True(t, f.Closed())
	assert.True(t, stub.closed)
	assert.ErrorIs(t, f.Close(), ErrClosed)

	_, err = f.Name()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Class()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Header()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Dependencies()
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = f.FindSection(".dynamic")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Sections()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.Summarize()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestFile_FindSectionAndSections(t *testing.T) {
	stub := &stubFS{data: elftest.Dynamic(elftest.Class64, "libc.so.6").Build()}
	f, err := Open("in-memory", WithFileSystem(stub), WithLogger(discardLogger))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sh, ok, err := f.FindSection(".dynamic")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(16), sh.Entsize)
	assert.Equal(t, elftest.SHTDynamic, sh.Type)

	_, ok, err = f.FindSection(".interp")
	require.NoError(t, err)
	assert.False(t, ok)

	sections, err := f.Sections()
	require.NoError(t, err)
	assert.Len(t, sections, 5)
}

func TestNewView(t *testing.T) {
	data := elftest.Dynamic(elftest.Class32, "libpthread.so.0", "libc.so.6").Build()

	v, err := NewView(bytes.NewReader(data), "memory.elf", WithLogger(discardLogger))
	require.NoError(t, err)

	assert.Equal(t, "memory.elf", v.Name())
	assert.Equal(t, Class32, v.Class())
	assert.Equal(t, []string{"libpthread.so.0", "libc.so.6"}, v.Dependencies())
	assert.Equal(t, uint16(52), v.Header().Ehsize)

	// Callers cannot mutate cached state through returned slices.
	deps := v.Dependencies()
	deps[0] = "changed"
	assert.Equal(t, "libpthread.so.0", v.Dependencies()[0])

	s := v.Summary()
	assert.Equal(t, "File: memory.elf\nBus: 32-bit\nDynamic linking dependencies: libpthread.so.0,libc.so.6\n", s.String())
}

func TestNewView_NotELF(t *testing.T) {
	_, err := NewView(bytes.NewReader([]byte{0x7f, 'E', 'L', 'G', 2, 1}), "x")
	assert.ErrorIs(t, err, ErrNotELF)
}
