package elfreader

import (
	"fmt"
	"log/slog"
	"math"
)

// Section names used by the dependency walk.
const (
	sectionDynamic = ".dynamic"
	sectionDynstr  = ".dynstr"
)

// dtNeeded is the DT_NEEDED dynamic tag.
const dtNeeded = 1

// neededLibraries walks .dynamic and returns the DT_NEEDED names in entry
// order. A file without .dynamic has no dependencies.
func neededLibraries(c *cursor, t *sectionTable, logger *slog.Logger) ([]string, error) {
	dynamic, ok, err := t.find(c, sectionDynamic)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", sectionDynamic, err)
	}
	if !ok {
		logger.Debug("no dynamic section, treating as static binary")
		return []string{}, nil
	}

	dynstr, ok, err := t.find(c, sectionDynstr)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", sectionDynstr, err)
	}
	if !ok {
		return nil, ErrMissingStringTable
	}

	if dynamic.Entsize == 0 {
		return nil, fmt.Errorf("%w: %s has sh_entsize 0", ErrInvalidSection, sectionDynamic)
	}

	if dynamic.Offset > math.MaxUint64-dynamic.Size {
		return nil, fmt.Errorf("%w: %s extent overflows", ErrInvalidSection, sectionDynamic)
	}

	count := dynamic.Size / dynamic.Entsize
	if dynamic.Size%dynamic.Entsize != 0 {
		count++
	}

	libs := []string{}
	for n := uint64(0); n < count; n++ {
		i := n * dynamic.Entsize
		if err := c.seek(dynamic.Offset + i); err != nil {
			return nil, err
		}
		tag, err := c.signed(kindSxword)
		if err != nil {
			return nil, fmt.Errorf("dynamic entry at %#x: %w", i, err)
		}
		if tag != dtNeeded {
			continue
		}

		// d_val and d_ptr share the address-width union.
		strndx, err := c.unsigned(kindAddr)
		if err != nil {
			return nil, fmt.Errorf("dynamic entry at %#x: %w", i, err)
		}
		if err := c.seekAdd(dynstr.Offset, strndx); err != nil {
			return nil, fmt.Errorf("DT_NEEDED name at %#x: %w", strndx, err)
		}
		lib, err := c.cstring()
		if err != nil {
			return nil, fmt.Errorf("DT_NEEDED name at %#x: %w", strndx, err)
		}
		libs = append(libs, lib)
	}

	logger.Debug("dynamic section parsed",
		slog.Uint64("entries", count),
		slog.Int("needed", len(libs)))
	return libs, nil
}
