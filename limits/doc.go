// Package limits provides centralized size and naming constants and
// validation functions for the upload pipeline. This package ensures
// consistent enforcement across all components of the uploadqueue
// implementation.
//
// # Size Hierarchy
//
// The package defines a hierarchy of limits that support different stages of
// batch validation:
//
//   - MaxFileSize (2 GiB): The default per-file ceiling. Validator
//     configuration may lower this per deployment.
//
//   - MaxBatchBytes (5 GiB): The fixed ceiling for the combined size of one
//     validated batch. A batch whose valid files sum past this limit is
//     rejected as a whole, independent of the per-file checks.
//
//   - MaxFiles (50): The default cap on files in the pipeline, counting
//     files accepted in earlier batches.
//
//   - MaxFileNameLength (255): The file name length cap, matching typical
//     filesystem limits.
//
// # Validation Functions
//
// Each validation function returns a sentinel error wrapped with context:
//
//	err := limits.ValidateFileSize(size, limits.MaxFileSize)
//	if errors.Is(err, limits.ErrFileTooLarge) {
//	    // Handle oversized file
//	}
//
// Name validation applies the empty, length and character rules in a fixed
// order and reports the first violation:
//
//	err := limits.ValidateFileName(name)
//
// # Error Types
//
//   - ErrFileTooLarge: File exceeds the per-file limit
//   - ErrBatchTooLarge: Batch exceeds MaxBatchBytes
//   - ErrNameEmpty: Empty file name
//   - ErrNameTooLong: Name exceeds MaxFileNameLength
//   - ErrNameForbiddenChars: Name contains characters from ForbiddenNameChars
//
// # Forbidden Characters
//
// ForbiddenNameChars lists the characters (<>:"/\|?*) that object-store keys
// and common filesystems cannot represent portably. Names containing any of
// them are rejected before a file enters the queue.
package limits
