// Package validate implements per-file and batch validation for the upload
// pipeline, keeping invalid files out of the queue before any transfer work
// is scheduled.
//
// # Overview
//
// The package provides one primary component:
//
//   - Validator: Stateless checks on individual files (size, MIME type,
//     name rules) and on batches (count limit, duplicate names, aggregate
//     size ceiling), plus optional payload content checks
//
// Validation is fully deterministic for identical inputs and has no side
// effects beyond reading payload headers during content checks.
//
// # Per-File Validation
//
// ValidateFile short-circuits on the first failing check, in a fixed order:
// size, type, empty name, name length, name characters:
//
//	validator := validate.NewValidator(validate.DefaultConfig())
//	result := validator.ValidateFile(validate.File{
//	    Name: "photo.jpg",
//	    Size: 4 << 20,
//	    MIME: "image/jpeg",
//	})
//	if !result.Valid {
//	    fmt.Println(result.Reason)
//	}
//
// The MIME allow-list accepts exact entries ("application/pdf") and family
// wildcards ("image/*").
//
// # Batch Validation
//
// ValidateBatch layers the batch rules around the per-file checks:
//
//	result := validator.ValidateBatch(files, existingCount)
//	for _, f := range result.ValidFiles { ... }
//	for _, fe := range result.InvalidFiles { ... }
//	for _, err := range result.BatchErrors { ... }
//
// The count limit rejects the whole batch and reports the allowed remainder.
// Duplicate names are a batch-level error that does not discard files; every
// file still passes through individual validation. The 5 GiB aggregate
// ceiling (limits.MaxBatchBytes) empties ValidFiles when exceeded, leaving
// the per-file partition intact for reporting.
//
// # Content Validation
//
// ValidateContent rejects zero-byte payloads and checks image payloads
// against known magic numbers (JPEG, PNG, GIF, WebP). A signature mismatch
// is reported as ErrCorruptedContent rather than a type failure, since the
// declared type already passed the allow-list.
//
// ContentDigest computes a BLAKE2b-256 digest of the payload for duplicate
// detection and post-transfer integrity checks.
//
// # Error Handling
//
// The package provides sentinel errors for common failure modes:
//
//	var (
//	    ErrTypeNotAllowed    // MIME type not on the allow-list
//	    ErrTooManyFiles      // batch pushes past the file count limit
//	    ErrDuplicateNames    // identical names within one batch
//	    ErrEmptyFile         // zero-byte payload
//	    ErrCorruptedContent  // payload header contradicts declared type
//	    ErrNoPayload         // content check without a payload handle
//	)
//
// Size and name failures reuse the sentinels from the limits package. All
// errors are wrapped with context for debugging.
package validate
