// Package role defines the fixed privilege hierarchy used by the engine and the
// host application's route guards.
//
// Roles form a total order (GUEST < MEMBER < MANAGER < ADMIN < SUPER_ADMIN);
// authorization checks are a single integer comparison via [Role.AtLeast]. There
// is no permission registry here — the hierarchy has exactly five ranks and
// nothing else.
package role

import (
	"errors"
	"fmt"
	"strings"
)

// Role is a privilege level in the fixed hierarchy.
//
// The zero value is [Guest], the lowest rank.
type Role uint8

const (
	// Guest is an exported constant or variable used by the authentication engine.
	Guest Role = iota
	// Member is an exported constant or variable used by the authentication engine.
	Member
	// Manager is an exported constant or variable used by the authentication engine.
	Manager
	// Admin is an exported constant or variable used by the authentication engine.
	Admin
	// SuperAdmin is an exported constant or variable used by the authentication engine.
	SuperAdmin

	roleCount
)

// ErrUnknownRole is returned by [Parse] for a string outside the hierarchy.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = [roleCount]string{
	Guest:      "GUEST",
	Member:     "MEMBER",
	Manager:    "MANAGER",
	Admin:      "ADMIN",
	SuperAdmin: "SUPER_ADMIN",
}

// String returns the canonical upper-snake name of the role.
func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("ROLE(%d)", uint8(r))
	}
	return roleNames[r]
}

// Valid reports whether r is one of the five defined ranks.
func (r Role) Valid() bool {
	return r < roleCount
}

// AtLeast reports whether r sits at or above min in the hierarchy.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Parse resolves a role name (case-insensitive, upper-snake) to its rank.
func Parse(s string) (Role, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return Role(r), nil
		}
	}
	return Guest, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// MarshalText implements encoding.TextMarshaler so roles render as their
// canonical names in JSON payloads.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
