package safefileio

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

// DefaultMaxFileSize is the size limit applied when Options.MaxFileSize is zero (1 GB).
const DefaultMaxFileSize = 1 << 30

// File is an opened, validated, read-only file.
type File interface {
	io.ReaderAt
	io.Closer
	Stat() (os.FileInfo, error)
	Name() string
}

// Options controls OpenForRead.
type Options struct {
	// FollowSymlinks allows symbolic links anywhere in the path.
	FollowSymlinks bool
	// MaxFileSize rejects files larger than this many bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64
}

// FileSystem opens files for reading.
type FileSystem interface {
	OpenForRead(name string, opts Options) (File, error)
}

type osFS struct {
	openat2Available bool
}

// NewFileSystem returns a FileSystem backed by the local disk. On Linux it
// uses openat2(RESOLVE_NO_SYMLINKS) when the kernel supports it.
func NewFileSystem() FileSystem {
	return &osFS{openat2Available: isOpenat2Available()}
}

var defaultFS = sync.OnceValue(NewFileSystem)

// OpenForRead opens name read-only using the default FileSystem.
func OpenForRead(name string, opts Options) (File, error) {
	return defaultFS().OpenForRead(name, opts)
}

// OpenForRead implements FileSystem.
//
// When symlinks are not followed the file is opened first and every path
// component is checked afterwards, so a component swapped in between is
// still detected.
func (fs *osFS) OpenForRead(name string, opts Options) (File, error) {
	if name == "" {
		return nil, ErrInvalidFilePath
	}
	absPath, err := filepath.Abs(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFilePath, err)
	}

	var file *os.File
	if opts.FollowSymlinks {
		// #nosec G304 - the caller asked for symlinks to be followed
		file, err = os.Open(absPath)
	} else {
		file, err = fs.safeOpenFileInternal(absPath, os.O_RDONLY, 0)
	}
	if err != nil {
		return nil, err
	}

	if err := validate(file, absPath, opts); err != nil {
		if closeErr := file.Close(); closeErr != nil {
			slog.Warn("error closing rejected file", slog.String("path", absPath), slog.Any("error", closeErr))
		}
		return nil, err
	}

	return file, nil
}

func validate(file File, absPath string, opts Options) error {
	if !opts.FollowSymlinks {
		if err := verifyPathComponents(absPath); err != nil {
			return err
		}
	}

	fileInfo, err := validateFile(file, absPath)
	if err != nil {
		return err
	}

	limit := opts.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	if fileInfo.Size() > limit {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fileInfo.Size(), limit)
	}
	return nil
}

// safeOpenFileFallback opens absPath with O_NOFOLLOW on the final component.
// Parent directories are covered by verifyPathComponents.
func safeOpenFileFallback(absPath string, flag int, perm os.FileMode) (*os.File, error) {
	// #nosec G304 - absPath is cleaned above and O_NOFOLLOW rejects a final symlink
	file, err := os.OpenFile(absPath, flag|syscall.O_NOFOLLOW, perm)
	if err != nil {
		if isNoFollowError(err) {
			return nil, fmt.Errorf("%w: %s", ErrIsSymlink, absPath)
		}
		return nil, err
	}
	return file, nil
}

// verifyPathComponents checks if any directory component of the path is a symlink.
// This is called after opening the file to prevent TOCTOU attacks.
func verifyPathComponents(absPath string) error {
	current := filepath.Dir(absPath)
	for {
		parent := filepath.Dir(current)
		if parent == current {
			break // Reached root directory
		}

		fi, err := os.Lstat(current)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", current, err)
		}
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrIsSymlink, current)
		}

		current = parent
	}
	return nil
}

// validateFile checks if the file is a regular file and returns its FileInfo
// To prevent TOCTOU attacks, we use the file descriptor to get the file info
func validateFile(file File, filePath string) (os.FileInfo, error) {
	fileInfo, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotRegularFile, filePath, fileInfo.Mode().Type())
	}

	return fileInfo, nil
}
