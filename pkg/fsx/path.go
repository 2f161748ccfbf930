// Package fsx provides the pure, storage-free value types and validation
// rules shared by every layer of the deduplicating file-system engine:
// paths, content hashes, and the error taxonomy used to report rejections.
//
// Nothing in this package touches a store. Validation here is total and
// synchronous: given a string, ParsePath and ParseHash always terminate
// with either a validated value or a descriptive error, never a partial
// result.
package fsx

import (
	"strings"
)

// Path is a validated, absolute, POSIX-like path within a tenant's
// namespace. The zero value is not a valid Path; always obtain one via
// ParsePath.
type Path struct {
	clean string
}

// Root is the tenant root path, "/".
var Root = Path{clean: "/"}

// ParsePath validates s and returns the corresponding Path.
//
// A path is rejected with ErrInvalidPath when it:
//   - does not start with "/"
//   - contains the two-character sequence ".."
//   - contains a NUL byte
//   - is empty
//
// ParsePath performs no normalization beyond these checks — it does not
// collapse "//" or a trailing "/" into canonical form. The contract
// defines validity, not rewriting.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, wrapf(ErrInvalidPath, "path is empty")
	}
	if !strings.HasPrefix(s, "/") {
		return Path{}, wrapf(ErrInvalidPath, "path %q does not start with /", s)
	}
	if strings.Contains(s, "..") {
		return Path{}, wrapf(ErrInvalidPath, "path %q contains ..", s)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return Path{}, wrapf(ErrInvalidPath, "path %q contains a NUL byte", s)
	}
	return Path{clean: s}, nil
}

// String returns the canonical string form of the path.
func (p Path) String() string {
	return p.clean
}

// IsRoot reports whether p is the tenant root, "/".
func (p Path) IsRoot() bool {
	return p.clean == "/"
}

// Base returns the final path component, e.g. Base("/a/b/c") == "c" and
// Base("/") == "".
func (p Path) Base() string {
	if p.IsRoot() {
		return ""
	}
	idx := strings.LastIndexByte(p.clean, '/')
	return p.clean[idx+1:]
}

// Parent returns the path of p's parent directory.
//
// Parent must never be called on the root path — callers are expected to
// check IsRoot first, since parent("/") is undefined. Calling it on the
// root returns Root itself rather than panicking, since a defensive
// panic here would turn a caller bug into a process crash with no
// additional diagnostic value.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return Root
	}
	idx := strings.LastIndexByte(p.clean, '/')
	if idx <= 0 {
		return Root
	}
	return Path{clean: p.clean[:idx]}
}

// Equal reports whether p and other denote the same path.
func (p Path) Equal(other Path) bool {
	return p.clean == other.clean
}
