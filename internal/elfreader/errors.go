package elfreader

import (
	"errors"
	"fmt"
)

// Static errors
var (
	// ErrNotELF indicates the first four bytes are not the ELF magic number.
	ErrNotELF = errors.New("file is not an ELF binary")

	// ErrUnsupportedClass indicates the EI_CLASS byte is neither ELFCLASS32 nor ELFCLASS64.
	ErrUnsupportedClass = errors.New("unsupported ELF class")

	// ErrUnsupportedByteOrder indicates a big-endian (ELFDATA2MSB) file.
	ErrUnsupportedByteOrder = errors.New("unsupported ELF byte order")

	// ErrTruncated indicates the source ended inside a structure being decoded.
	ErrTruncated = errors.New("ELF data truncated")

	// ErrMissingStringTable indicates a .dynamic section without a .dynstr section.
	ErrMissingStringTable = errors.New("ELF file has .dynamic but no .dynstr section")

	// ErrInvalidSection indicates a section or section table that cannot be iterated safely.
	ErrInvalidSection = errors.New("invalid ELF section")

	// ErrClosed indicates an operation on a File that has already been closed.
	ErrClosed = errors.New("ELF file already closed")
)

// UnsupportedClassError reports the EI_CLASS value that could not be mapped.
type UnsupportedClassError struct {
	Class byte
}

func (e *UnsupportedClassError) Error() string {
	return fmt.Sprintf("%s: %d", ErrUnsupportedClass, e.Class)
}

// Is reports whether target is ErrUnsupportedClass.
func (e *UnsupportedClassError) Is(target error) bool {
	return target == ErrUnsupportedClass
}

// TruncatedError reports a read that ran past the end of the source.
type TruncatedError struct {
	Offset int64 // where the read started
	Want   int   // bytes required
	Got    int   // bytes available
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("%s: need %d bytes at offset %#x, got %d", ErrTruncated, e.Want, e.Offset, e.Got)
}

// Is reports whether target is ErrTruncated.
func (e *TruncatedError) Is(target error) bool {
	return target == ErrTruncated
}

// PathError records the file an Open failure relates to.
type PathError struct {
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// IsFormatError reports whether err describes malformed ELF content rather
// than a failure of the underlying resource.
func IsFormatError(err error) bool {
	for _, target := range []error{
		ErrNotELF,
		ErrUnsupportedClass,
		ErrUnsupportedByteOrder,
		ErrTruncated,
		ErrMissingStringTable,
		ErrInvalidSection,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
