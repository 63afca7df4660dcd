//go:build netbsd

package safefileio

import (
	"errors"
	"syscall"
)

// isNoFollowError reports whether err is the errno O_NOFOLLOW produces on a
// symlink. NetBSD uses EFTYPE.
func isNoFollowError(err error) bool {
	return errors.Is(err, syscall.EFTYPE)
}
