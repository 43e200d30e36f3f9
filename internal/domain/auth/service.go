package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/gamestore/internal/apperr"
)

// RegisterRequest holds the input for creating an account.
type RegisterRequest struct {
	Email       string
	Username    string
	Password    string
	DisplayName string
}

// Service handles registration, login and logout.
type Service struct {
	users    UserRepository
	sessions SessionStore
	hasher   PasswordHasher
	newID    func() string
	now      func() time.Time
}

// NewService creates an auth Service.
func NewService(users UserRepository, sessions SessionStore, hasher PasswordHasher) *Service {
	return &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Register validates the input and creates a regular user account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, apperr.New(apperr.Validation, "a valid email is required")
	}
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(username) > 32 {
		return nil, apperr.New(apperr.Validation, "username must be between 3 and 32 characters")
	}
	if err := ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	u := &User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         RoleUser,
		DisplayName:  strings.TrimSpace(req.DisplayName),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, errors.Wrap(err, "create user")
	}
	return u, nil
}

// Login verifies credentials and opens a session for any role.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, *User, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.open(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return sess, u, nil
}

// AdminLogin is like Login but only admits admin accounts.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*Session, *User, error) {
	u, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	if u.Role != RoleAdmin {
		return nil, nil, ErrAdminOnly
	}
	sess, err := s.open(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return sess, u, nil
}

// Logout deletes the session. Unknown sessions are ignored.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// Me returns the account behind the principal.
func (s *Service) Me(ctx context.Context, p Principal) (*User, error) {
	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "find user")
	}
	return u, nil
}

// ChangePassword replaces the principal's password after verifying the
// current one and signs out every other session of the account. The session
// identified by sessionID stays valid.
func (s *Service) ChangePassword(ctx context.Context, p Principal, sessionID, current, next string) error {
	if current == "" || next == "" {
		return apperr.New(apperr.Validation, "current and new password are required")
	}
	if current == next {
		return apperr.New(apperr.Validation, "new password must differ from the current one")
	}
	if err := ValidatePassword(next); err != nil {
		return err
	}

	u, err := s.users.FindByID(ctx, p.UserID)
	if err != nil {
		return errors.Wrap(err, "find user")
	}
	if !s.hasher.Verify(current, u.PasswordHash) {
		return apperr.New(apperr.Validation, "current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return errors.Wrap(err, "update password")
	}
	if err := s.sessions.DeleteUserSessions(ctx, u.ID, sessionID); err != nil {
		return errors.Wrap(err, "revoke other sessions")
	}
	return nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.New(apperr.Validation, "email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "find user")
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) open(ctx context.Context, u *User) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID: s.newID(),
		Data: SessionData{
			UserID:       u.ID,
			Email:        u.Email,
			Username:     u.Username,
			Role:         u.Role,
			LoginTime:    now,
			LastActivity: now,
		},
	}
	if err := s.sessions.Save(ctx, sess.ID, sess.Data); err != nil {
		return nil, errors.Wrap(err, "save session")
	}
	return sess, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
