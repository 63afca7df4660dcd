// Package safefileio opens files for reading with protection against symlink
// substitution, non-regular files and oversized inputs.
package safefileio

import "errors"

var (
	// ErrInvalidFilePath indicates that the specified file path is invalid.
	ErrInvalidFilePath = errors.New("invalid file path")

	// ErrIsSymlink indicates that the specified path is a symbolic link, which is not allowed.
	ErrIsSymlink = errors.New("path is a symbolic link")

	// ErrNotRegularFile indicates a directory, device, FIFO or socket.
	ErrNotRegularFile = errors.New("not a regular file")

	// ErrFileTooLarge indicates that the file is too large.
	ErrFileTooLarge = errors.New("file too large")
)
