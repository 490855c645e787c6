package validate

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/uploadqueue/limits"
)

// ErrTypeNotAllowed indicates a file's MIME type is not on the allow-list.
var ErrTypeNotAllowed = errors.New("file type not allowed")

// ErrTooManyFiles indicates a batch would push the owner past the file count
// limit.
var ErrTooManyFiles = errors.New("too many files")

// ErrDuplicateNames indicates a batch contains files with identical names.
var ErrDuplicateNames = errors.New("duplicate file names in batch")

// File describes one candidate upload. The validator only inspects the
// declared metadata; Data is touched exclusively by content validation and
// digest computation.
type File struct {
	Name string
	Size int64
	MIME string

	// Data is the payload handle. It may be nil when only metadata checks
	// are performed.
	Data io.ReaderAt
}

// Result reports the outcome of validating a single file. Err is nil exactly
// when Valid is true; Reason carries the human-readable form of the first
// failing check.
type Result struct {
	Valid  bool
	Reason string
	Err    error
}

// FileError pairs a file name with its validation failure inside a batch.
type FileError struct {
	Name string
	Err  error
}

// BatchResult reports the outcome of validating a batch of files.
//
// ValidFiles and InvalidFiles partition the batch after per-file checks.
// BatchErrors carries batch-level failures (count limit, duplicate names,
// total size ceiling); duplicate names do not discard files, but the count
// limit and the size ceiling empty ValidFiles entirely.
type BatchResult struct {
	ValidFiles   []File
	InvalidFiles []FileError
	BatchErrors  []error
	TotalSize    int64
}

// OK reports whether the batch produced at least one valid file and no
// batch-level errors.
func (r BatchResult) OK() bool {
	return len(r.BatchErrors) == 0 && len(r.ValidFiles) > 0
}

// Config holds validator limits. Zero values fall back to the package
// defaults from the limits package.
type Config struct {
	// MaxFileSize is the per-file byte ceiling.
	MaxFileSize int64

	// AllowedTypes is the MIME allow-list. Entries are matched exactly or,
	// for entries of the form "image/*", by family prefix.
	AllowedTypes []string

	// MaxFiles caps the number of files in the pipeline, counting files
	// accepted earlier.
	MaxFiles int
}

// DefaultConfig returns a configuration accepting common media and document
// types up to the stock limits.
func DefaultConfig() Config {
	return Config{
		MaxFileSize: limits.MaxFileSize,
		AllowedTypes: []string{
			"image/*",
			"video/*",
			"audio/*",
			"application/pdf",
		},
		MaxFiles: limits.MaxFiles,
	}
}

// Validator applies the per-file and batch rules. Validation is deterministic
// for identical inputs and has no side effects beyond reading payload headers
// during content checks.
type Validator struct {
	config Config
}

// NewValidator creates a Validator, filling unset limits from defaults.
func NewValidator(config Config) *Validator {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = limits.MaxFileSize
	}
	if config.MaxFiles <= 0 {
		config.MaxFiles = limits.MaxFiles
	}
	if len(config.AllowedTypes) == 0 {
		config.AllowedTypes = DefaultConfig().AllowedTypes
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewValidator",
		"max_file_size": config.MaxFileSize,
		"max_files":     config.MaxFiles,
		"allowed_types": config.AllowedTypes,
	}).Debug("Creating file validator")

	return &Validator{config: config}
}

// ValidateFile checks a single file against the size, type and name rules.
//
// Checks short-circuit in a fixed order: size, type, empty name, name
// length, name characters. The Result reports the first failing check.
func (v *Validator) ValidateFile(f File) Result {
	if err := limits.ValidateFileSize(f.Size, v.config.MaxFileSize); err != nil {
		return invalid(f, err)
	}
	if !v.typeAllowed(f.MIME) {
		return invalid(f, fmt.Errorf("%w: %q", ErrTypeNotAllowed, f.MIME))
	}
	if err := limits.ValidateFileName(f.Name); err != nil {
		return invalid(f, err)
	}
	return Result{Valid: true}
}

// ValidateBatch checks a batch of files, given the number of files already
// accepted into the pipeline.
//
// The count limit rejects the whole batch up front, reporting the allowed
// remainder. Duplicate names surface as a batch-level error without
// discarding files. Every file then passes through ValidateFile
// independently, and finally the combined size of the valid files is checked
// against the fixed batch ceiling; exceeding it empties ValidFiles.
func (v *Validator) ValidateBatch(files []File, existingCount int) BatchResult {
	var result BatchResult

	if existingCount+len(files) > v.config.MaxFiles {
		remaining := v.config.MaxFiles - existingCount
		if remaining < 0 {
			remaining = 0
		}
		result.BatchErrors = append(result.BatchErrors,
			fmt.Errorf("%w: %d allowed, got %d", ErrTooManyFiles, remaining, len(files)))

		logrus.WithFields(logrus.Fields{
			"function":       "ValidateBatch",
			"existing_count": existingCount,
			"batch_size":     len(files),
			"max_files":      v.config.MaxFiles,
		}).Warn("Batch rejected: file count limit exceeded")
		return result
	}

	if dups := duplicateNames(files); len(dups) > 0 {
		result.BatchErrors = append(result.BatchErrors,
			fmt.Errorf("%w: %s", ErrDuplicateNames, strings.Join(dups, ", ")))
	}

	for _, f := range files {
		r := v.ValidateFile(f)
		if !r.Valid {
			result.InvalidFiles = append(result.InvalidFiles, FileError{Name: f.Name, Err: r.Err})
			continue
		}
		result.ValidFiles = append(result.ValidFiles, f)
		result.TotalSize += f.Size
	}

	if err := limits.ValidateBatchBytes(result.TotalSize); err != nil {
		result.BatchErrors = append(result.BatchErrors, err)
		result.ValidFiles = nil

		logrus.WithFields(logrus.Fields{
			"function":   "ValidateBatch",
			"total_size": result.TotalSize,
			"limit":      limits.MaxBatchBytes,
		}).Warn("Batch rejected: total size ceiling exceeded")
	}

	logrus.WithFields(logrus.Fields{
		"function":     "ValidateBatch",
		"batch_size":   len(files),
		"valid_count":  len(result.ValidFiles),
		"batch_errors": len(result.BatchErrors),
	}).Debug("Batch validation finished")

	return result
}

// typeAllowed reports whether a MIME type matches the allow-list, either
// exactly or through a family wildcard like "image/*".
func (v *Validator) typeAllowed(mimeType string) bool {
	for _, allowed := range v.config.AllowedTypes {
		if allowed == mimeType {
			return true
		}
		if family, ok := strings.CutSuffix(allowed, "/*"); ok &&
			strings.HasPrefix(mimeType, family+"/") {
			return true
		}
	}
	return false
}

// duplicateNames returns the case-sensitively duplicated names in order of
// first repetition.
func duplicateNames(files []File) []string {
	seen := make(map[string]int, len(files))
	var dups []string
	for _, f := range files {
		seen[f.Name]++
		if seen[f.Name] == 2 {
			dups = append(dups, f.Name)
		}
	}
	return dups
}

func invalid(f File, err error) Result {
	logrus.WithFields(logrus.Fields{
		"function":  "ValidateFile",
		"file_name": f.Name,
		"file_size": f.Size,
		"mime_type": f.MIME,
		"error":     err.Error(),
	}).Debug("File failed validation")

	return Result{Valid: false, Reason: err.Error(), Err: err}
}
