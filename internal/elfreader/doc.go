// Package elfreader reads structural metadata from little-endian ELF files.
//
// It decodes the identification block, the file header and the section header
// table, and walks the .dynamic section to recover the shared libraries a
// binary declares as DT_NEEDED. Nothing is relocated, loaded or executed.
//
// # Usage
//
//	f, err := elfreader.Open("/usr/bin/curl")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	deps, err := f.Dependencies()
//	if err != nil {
//	    return err
//	}
//	fmt.Println(strings.Join(deps, ","))
//
// All parsing happens once in Open (or NewView). Every structure read goes
// through a width table selected by the file class, so 32-bit and 64-bit
// files share one set of field layouts.
//
// # Limitations
//
//   - Big-endian files are rejected with ErrUnsupportedByteOrder
//   - Extended section numbering (e_shnum == 0 with a real count in section 0) is not followed
//   - Only DT_NEEDED dynamic entries are interpreted
package elfreader
