package fsx

import (
	"crypto/sha256"
	"encoding/hex"
)

// hashHexLen is the length in hex characters of a SHA-256 digest.
const hashHexLen = 64

// ContentHash is a validated, lowercase-hex-encoded SHA-256 content hash.
// The zero value is not valid; obtain one via ParseHash or HashOf.
type ContentHash struct {
	hex string
}

// ParseHash validates s as a content hash: exactly 64 lowercase hex
// characters. Anything else fails with ErrInvalidHash.
func ParseHash(s string) (ContentHash, error) {
	if len(s) != hashHexLen {
		return ContentHash{}, wrapf(ErrInvalidHash, "hash %q: want %d hex chars, got %d", s, hashHexLen, len(s))
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		isLowerHexDigit := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
		if !isLowerHexDigit {
			return ContentHash{}, wrapf(ErrInvalidHash, "hash %q: not lowercase hex", s)
		}
	}
	return ContentHash{hex: s}, nil
}

// HashOf computes the canonical ContentHash of bytes: the lowercase hex
// form of its SHA-256 digest.
func HashOf(bytes []byte) ContentHash {
	sum := sha256.Sum256(bytes)
	return ContentHash{hex: hex.EncodeToString(sum[:])}
}

// String returns the lowercase hex form of the hash.
func (h ContentHash) String() string {
	return h.hex
}

// Equal reports whether h and other are the same canonical hash.
func (h ContentHash) Equal(other ContentHash) bool {
	return h.hex == other.hex
}

// IsZero reports whether h is the zero value (never produced by
// ParseHash or HashOf; useful for callers distinguishing "no hash yet"
// from a parsed value).
func (h ContentHash) IsZero() bool {
	return h.hex == ""
}

// ShardPrefix returns the first four hex characters of the hash, split
// into the two two-character path segments used by the sharded blob
// store layout: <root>/<hash[0:2]>/<hash[2:4]>/<hash>.
func (h ContentHash) ShardPrefix() (first, second string) {
	return h.hex[0:2], h.hex[2:4]
}
