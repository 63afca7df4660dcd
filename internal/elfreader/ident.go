package elfreader

import (
	"bytes"
	"fmt"
)

// elfMagicStr is the ELF magic number string literal.
const elfMagicStr = "\x7fELF"

// elfMagic is the ELF magic number bytes.
var elfMagic = []byte(elfMagicStr)

// elfMagicLen is the number of bytes in the ELF magic number.
const elfMagicLen = len(elfMagicStr)

// identSize is the length of the e_ident block preceding the file header.
const identSize = 16

// EI_DATA values.
const (
	dataNone = 0
	dataLSB  = 1
	dataMSB  = 2
)

// Identity is the decoded prefix of e_ident.
type Identity struct {
	Magic [elfMagicLen]byte
	Class Class
	Data  byte
}

// readIdentity checks the magic number at offset 0 and decodes the class and
// data bytes. Anything shorter than the magic number is not an ELF file.
func readIdentity(c *cursor) (Identity, error) {
	var id Identity
	if err := c.seek(0); err != nil {
		return id, err
	}

	magic, err := c.read(elfMagicLen)
	if err != nil {
		if IsFormatError(err) {
			return id, ErrNotELF
		}
		return id, err
	}
	if !isELFMagic(magic) {
		return id, ErrNotELF
	}
	copy(id.Magic[:], magic)

	b, err := c.read(1)
	if err != nil {
		return id, fmt.Errorf("identification: %w", err)
	}
	switch Class(b[0]) {
	case Class32, Class64:
		id.Class = Class(b[0])
	default:
		return id, &UnsupportedClassError{Class: b[0]}
	}

	b, err = c.read(1)
	if err != nil {
		return id, fmt.Errorf("identification: %w", err)
	}
	id.Data = b[0]
	if id.Data == dataMSB {
		return id, ErrUnsupportedByteOrder
	}

	return id, nil
}

// isELFMagic checks if the given bytes match the ELF magic number.
func isELFMagic(magic []byte) bool {
	if len(magic) < elfMagicLen {
		return false
	}
	return bytes.Equal(magic[:elfMagicLen], elfMagic)
}
