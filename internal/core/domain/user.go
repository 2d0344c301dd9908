package domain

import (
	"fmt"
	"strings"
)

// Role is the application role attached to a profile.
type Role string

const (
	RoleUser      Role = "user"
	RoleConsumer  Role = "consumer"
	RoleRetailer  Role = "retailer"
	RoleLogistics Role = "logistics"
	RoleAdmin     Role = "admin"
)

// Roles lists every role in a stable order.
var Roles = []Role{RoleUser, RoleConsumer, RoleRetailer, RoleLogistics, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole normalises s and returns the matching Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Principal is the authenticated identity issued by the identity backend.
// It is mirrored read-only by the session.
type Principal struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// Clone returns a copy of p, or nil when p is nil.
func (p *Principal) Clone() *Principal {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
