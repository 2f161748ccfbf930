package fsx

import (
	"errors"
	"fmt"
)

// ============================================================================
// Engine Error Taxonomy
// ============================================================================

// These sentinel errors provide a consistent way to indicate failure
// kinds across every layer of the engine — validation, the metadata
// store, the blob store, and the file-system service. Callers check for
// a kind with errors.Is; implementations wrap a sentinel with
// call-specific context via fmt.Errorf("%w: ...", ErrX, ...).
//
// Usage Pattern:
//
//	err := service.WriteFile(ctx, tenant, path, data)
//	if errors.Is(err, fsx.ErrConflict) {
//	    // path already exists as a directory, or similar
//	}
//
// External collaborators map these kinds to their own protocol; the
// engine itself does not format messages for end users.
var (
	// ErrInvalidPath indicates a path failed the validation rules of
	// ParsePath.
	ErrInvalidPath = errors.New("invalid path")

	// ErrInvalidHash indicates a hash string failed the format
	// validation of ParseHash.
	ErrInvalidHash = errors.New("invalid content hash")

	// ErrNotFound indicates a path does not resolve to any node.
	// Reported generically here; callers needing to distinguish a
	// missing file from a missing directory use ErrFileNotFound /
	// ErrDirectoryNotFound, both of which also satisfy
	// errors.Is(err, ErrNotFound).
	ErrNotFound = errors.New("not found")

	// ErrFileNotFound specializes ErrNotFound for a missing FileNode.
	ErrFileNotFound = fmt.Errorf("file not found: %w", ErrNotFound)

	// ErrDirectoryNotFound specializes ErrNotFound for a missing
	// DirectoryNode.
	ErrDirectoryNotFound = fmt.Errorf("directory not found: %w", ErrNotFound)

	// ErrConflict indicates a path already exists when creating, a
	// directory was found where a file was expected (or vice versa),
	// or a non-empty directory was targeted for deletion.
	ErrConflict = errors.New("conflict")

	// ErrBlobMissing indicates a FileNode's hash has no corresponding
	// bytes in the blob store — a hash-integrity invariant violation,
	// reported as Corruption.
	ErrBlobMissing = errors.New("corruption: referenced blob is missing")

	// ErrStoreUnavailable indicates a transient backend error from
	// either store. The engine does not retry internally; the caller
	// decides whether to retry the whole operation.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvariant indicates an internal check failed — e.g. a
	// refcount decrement that would go negative. Non-retryable; it
	// signals a bug in the engine or a corrupted store, not a
	// transient condition.
	ErrInvariant = errors.New("invariant violation")
)

// wrapf wraps a sentinel error with formatted context, preserving
// errors.Is matching against the sentinel.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}

// Wrap is the exported form of wrapf, used by other packages in this
// module to attach context to a sentinel without losing errors.Is
// matching.
func Wrap(sentinel error, format string, args ...any) error {
	return wrapf(sentinel, format, args...)
}
