package authkit

import (
	"context"
	"time"

	"github.com/artawanmay/authkit/role"
)

// UserRecord is the full account record returned by [UserProvider].
// It carries the credential hash, profile fields, and role.
type UserRecord struct {
	UserID       string
	Email        string
	Name         string
	PasswordHash string
	Role         role.Role
}

// UserProvider is the primary interface that callers must implement to
// integrate authkit with their user database. It covers credential lookup
// and password hash updates; account creation and profile management stay
// with the host application.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error
}

// Principal is the authenticated caller resolved by [Engine.Authenticate].
// Role is re-read from the [UserProvider] on every call; it never comes
// from the session record.
type Principal struct {
	UserID    string
	Email     string
	Name      string
	Role      role.Role
	SessionID string
	CSRFToken string
	ExpiresAt time.Time
}

// LoginResult is returned by [Engine.Login]. The CSRF token is returned
// once at login; validation later compares against the stored session copy.
type LoginResult struct {
	SessionID string
	CSRFToken string
	ExpiresAt time.Time
	User      UserRecord
}
