// Package tenant defines the opaque isolation key the engine consumes on
// every operation. Request dispatch and authentication are an external
// collaborator's concern; this package only validates and carries the
// identifier.
package tenant

import (
	"github.com/google/uuid"
)

// ID is an opaque tenant identifier: a UUID. The engine treats it as an
// isolation key only — it never inspects its structure.
type ID struct {
	uuid uuid.UUID
}

// Parse validates s as a UUID and returns the corresponding ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, err
	}
	return ID{uuid: u}, nil
}

// New generates a fresh random tenant ID.
func New() ID {
	return ID{uuid: uuid.New()}
}

// String returns the canonical string form of the tenant ID.
func (t ID) String() string {
	return t.uuid.String()
}

// Equal reports whether t and other identify the same tenant.
func (t ID) Equal(other ID) bool {
	return t.uuid == other.uuid
}

// IsZero reports whether t is the zero-value ID (never assigned to a
// real tenant).
func (t ID) IsZero() bool {
	return t.uuid == uuid.Nil
}
