package elfreader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// stringChunk is how many bytes a null-terminated string read fetches at once.
const stringChunk = 64

// cursor is an explicit read position over a byte source. Each parsing step
// owns its own cursor, so no position is shared between operations.
type cursor struct {
	r      io.ReaderAt
	off    int64
	widths widthTable
}

func newCursor(r io.ReaderAt, widths widthTable) *cursor {
	return &cursor{r: r, widths: widths}
}

// seek moves the cursor to an absolute offset.
func (c *cursor) seek(off uint64) error {
	if off > math.MaxInt64 {
		return &TruncatedError{Offset: math.MaxInt64, Want: 1}
	}
	c.off = int64(off)
	return nil
}

// seekAdd moves the cursor to base+off. A sum that does not fit in 64 bits
// points past any source and fails with ErrTruncated.
func (c *cursor) seekAdd(base, off uint64) error {
	if base > math.MaxUint64-off {
		return &TruncatedError{Offset: math.MaxInt64, Want: 1}
	}
	return c.seek(base + off)
}

// read returns the next n bytes and advances the cursor. A short read is an
// ErrTruncated failure; the missing bytes are never zero-filled.
func (c *cursor) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	got, err := c.r.ReadAt(buf, c.off)
	if got < n {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, &TruncatedError{Offset: c.off, Want: n, Got: got}
		}
		return nil, fmt.Errorf("failed to read %d bytes at offset %#x: %w", n, c.off, err)
	}
	c.off += int64(n)
	return buf, nil
}

// unsigned decodes the next field of category k as an unsigned value.
func (c *cursor) unsigned(k fieldKind) (uint64, error) {
	b, err := c.read(c.widths.size(k))
	if err != nil {
		return 0, err
	}
	return decodeUnsigned(b), nil
}

// signed decodes the next field of category k as a signed value.
func (c *cursor) signed(k fieldKind) (int64, error) {
	b, err := c.read(c.widths.size(k))
	if err != nil {
		return 0, err
	}
	return decodeSigned(b), nil
}

// fields decodes a sequence of unsigned fields in declared order.
func (c *cursor) fields(layout []fieldKind) ([]uint64, error) {
	vals := make([]uint64, len(layout))
	for i, k := range layout {
		v, err := c.unsigned(k)
		if err != nil {
			return nil, fmt.Errorf("%s field %d: %w", k, i, err)
		}
		vals[i] = v
	}
	return vals, nil
}

// cstring reads bytes up to a NUL terminator. Reaching the end of the source
// first returns what was read so far without an error.
func (c *cursor) cstring() (string, error) {
	var sb strings.Builder
	buf := make([]byte, stringChunk)
	for {
		n, err := c.r.ReadAt(buf, c.off)
		if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
			sb.Write(buf[:i])
			c.off += int64(i) + 1
			return sb.String(), nil
		}
		sb.Write(buf[:n])
		c.off += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return sb.String(), nil
			}
			return "", fmt.Errorf("failed to read string at offset %#x: %w", c.off, err)
		}
		if n == 0 {
			return sb.String(), nil
		}
	}
}
