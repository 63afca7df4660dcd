//go:build !netbsd

package safefileio

import (
	"errors"
	"syscall"
)

// isNoFollowError reports whether err is the errno O_NOFOLLOW produces on a
// symlink: ELOOP on Linux and most BSDs, EMLINK on FreeBSD.
func isNoFollowError(err error) bool {
	return errors.Is(err, syscall.ELOOP) || errors.Is(err, syscall.EMLINK)
}
