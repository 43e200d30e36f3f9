// Package auth implements session based authentication and the access control
// gate that resolves a caller into a Principal.
package auth

import (
	"context"
	"time"

	"github.com/xenking/gamestore/internal/apperr"
)

// Role is the authorization class of a user. There is no hierarchy: a check
// for RoleAdmin only passes for admins, and RoleUser only for regular users.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var (
	ErrUnauthenticated    = apperr.New(apperr.Unauthenticated, "authentication required")
	ErrAccessDenied       = apperr.New(apperr.AccessDenied, "access denied: insufficient privileges")
	ErrInvalidCredentials = apperr.New(apperr.Unauthenticated, "invalid email or password")
	ErrAdminOnly          = apperr.New(apperr.AccessDenied, "access denied: not an admin")
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrEmailTaken         = apperr.New(apperr.Validation, "email or username already registered")
)

// User is a storefront account.
type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         Role
	DisplayName  string
	CreatedAt    time.Time
}

// Principal is the resolved identity of an authenticated caller. Domain
// services receive it instead of touching the session store.
type Principal struct {
	UserID   int64
	Email    string
	Username string
	Role     Role
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// SessionData is the identity persisted in the session store.
type SessionData struct {
	UserID       int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	LoginTime    time.Time `json:"loginTime"`
	LastActivity time.Time `json:"lastActivity"`
}

// Principal converts the session identity to a Principal.
func (d SessionData) Principal() Principal {
	return Principal{
		UserID:   d.UserID,
		Email:    d.Email,
		Username: d.Username,
		Role:     d.Role,
	}
}

// Session is a stored session together with its identifier.
type Session struct {
	ID   string
	Data SessionData
}

// SessionStore persists sessions outside of the process.
type SessionStore interface {
	// Get returns the session data and true, or false when the session is
	// absent or expired.
	Get(ctx context.Context, id string) (SessionData, bool, error)
	Save(ctx context.Context, id string, data SessionData) error
	Delete(ctx context.Context, id string) error
	// DeleteUserSessions removes every session of the user except the one
	// identified by keep.
	DeleteUserSessions(ctx context.Context, userID int64, keep string) error
}

// UserRepository provides account persistence.
type UserRepository interface {
	// Create inserts the user and sets its ID and CreatedAt. It returns
	// ErrEmailTaken when the email or username is already registered.
	Create(ctx context.Context, u *User) error
	// FindByEmail returns ErrUserNotFound when no account matches.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// FindByID returns ErrUserNotFound when no account matches.
	FindByID(ctx context.Context, id int64) (*User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
