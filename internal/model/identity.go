// Package model defines domain entities shared by the api client, stores and views.
package model

import "strings"

// Role is a normalized account role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// NormalizeRole trims and lowercases raw; anything other than "admin" becomes "user".
func NormalizeRole(raw string) Role {
	if Role(strings.ToLower(strings.TrimSpace(raw))) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// Identity is the authenticated account as last reported by the backend.
// It is always replaced as a whole, never patched.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	RawRole string `json:"rawRole,omitempty"`
	Role    Role   `json:"role"`
}

// NewIdentity builds an Identity with Role derived from rawRole.
func NewIdentity(id, name, email, rawRole string) Identity {
	return Identity{ID: id, Name: name, Email: email, RawRole: rawRole, Role: NormalizeRole(rawRole)}
}

// IsAdmin is a pure function of the normalized role.
func (i Identity) IsAdmin() bool { return NormalizeRole(string(i.Role)) == RoleAdmin }
