// Package limits provides centralized size and naming limits for the upload
// pipeline. This ensures consistent validation across different components of
// the system.
package limits

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxFileSize is the default per-file size ceiling (2 GiB).
	// Deployments may lower this through validator configuration but may
	// never raise it above MaxBatchBytes.
	MaxFileSize int64 = 2 * 1024 * 1024 * 1024

	// MaxBatchBytes is the fixed ceiling for the combined size of one
	// validated batch (5 GiB). Unlike the per-file limit this is not
	// tunable; it bounds the aggregate transfer commitment a single batch
	// can place on the pipeline.
	MaxBatchBytes int64 = 5 * 1024 * 1024 * 1024

	// MaxFiles is the default maximum number of files a single owner may
	// have in the pipeline, counting files accepted in earlier batches.
	MaxFiles = 50

	// MaxFileNameLength is the maximum allowed file name length in bytes.
	// The value (255) matches typical filesystem limits.
	MaxFileNameLength = 255

	// MagicHeaderLength is the number of leading payload bytes read for
	// content sniffing. 12 bytes covers the longest signature checked
	// (RIFF....WEBP).
	MagicHeaderLength = 12
)

// ForbiddenNameChars are the characters rejected in file names. The set
// matches what object-store keys and common filesystems cannot represent
// portably.
const ForbiddenNameChars = `<>:"/\|?*`

var (
	// ErrFileTooLarge indicates a file exceeds the per-file size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBatchTooLarge indicates a batch exceeds MaxBatchBytes.
	ErrBatchTooLarge = errors.New("batch exceeds total size limit")

	// ErrNameEmpty indicates an empty file name was provided.
	ErrNameEmpty = errors.New("empty file name")

	// ErrNameTooLong indicates a file name exceeds MaxFileNameLength.
	ErrNameTooLong = errors.New("file name too long")

	// ErrNameForbiddenChars indicates a file name contains characters from
	// ForbiddenNameChars.
	ErrNameForbiddenChars = errors.New("file name contains forbidden characters")
)

// ValidateFileSize validates a file size against the specified maximum.
// Returns an error with context including the actual and maximum sizes.
func ValidateFileSize(size, maxSize int64) error {
	if size > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, size, maxSize)
	}
	return nil
}

// ValidateBatchBytes validates the combined size of a batch against
// MaxBatchBytes. Returns an error with context if the total exceeds the
// ceiling.
func ValidateBatchBytes(total int64) error {
	if total > MaxBatchBytes {
		return fmt.Errorf("%w: total size %d exceeds limit %d", ErrBatchTooLarge, total, MaxBatchBytes)
	}
	return nil
}

// ValidateFileName validates a file name against the empty, length and
// character rules, in that order. Returns the first rule violated.
func ValidateFileName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrNameTooLong, len(name), MaxFileNameLength)
	}
	if i := strings.IndexAny(name, ForbiddenNameChars); i >= 0 {
		return fmt.Errorf("%w: %q", ErrNameForbiddenChars, name[i:i+1])
	}
	return nil
}
