//go:build linux

package safefileio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// noSymlinks refuses a symlink in any component of the path.
var noSymlinks = unix.OpenHow{
	Flags:   unix.O_RDONLY | unix.O_CLOEXEC,
	Resolve: unix.RESOLVE_NO_SYMLINKS,
}

// isOpenat2Available reports whether the kernel implements openat2 (5.6+).
func isOpenat2Available() bool {
	how := noSymlinks
	how.Flags |= unix.O_DIRECTORY
	fd, err := unix.Openat2(unix.AT_FDCWD, "/", &how)
	if err != nil {
		return false
	}
	_ = unix.Close(fd)
	return true
}

// safeOpenFileInternal resolves absPath in one openat2 call. Kernels
// without openat2 get the O_NOFOLLOW path instead.
func (fs *osFS) safeOpenFileInternal(absPath string, flag int, perm os.FileMode) (*os.File, error) {
	if !fs.openat2Available {
		return safeOpenFileFallback(absPath, flag, perm)
	}

	how := noSymlinks
	how.Flags = uint64(flag) | unix.O_CLOEXEC // #nosec G115 - open flags are non-negative
	how.Mode = uint64(perm)

	fd, err := unix.Openat2(unix.AT_FDCWD, absPath, &how)
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), absPath), nil // #nosec G115 - fd is non-negative on success
	case errors.Is(err, unix.ELOOP):
		return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
	default:
		// errno satisfies errors.Is for fs.ErrNotExist and fs.ErrPermission
		return nil, &os.PathError{Op: "openat2", Path: absPath, Err: err}
	}
}
