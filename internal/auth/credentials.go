// Package auth verifies admin credentials and manages server-side admin sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"portfolio-site/internal/models"
	"portfolio-site/internal/store"
)

// ErrInvalidCredentials is the single rejection for a failed login, whether
// the username is unknown or the password is wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Identity is the authenticated principal bound to a session.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserStore looks up and provisions admin accounts.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (models.User, error)
	InsertUser(ctx context.Context, u models.User) error
	UpdatePasswordHash(ctx context.Context, username, hash string) error
}

// Authenticator checks login attempts against the user store.
type Authenticator struct {
	users     UserStore
	logger    *slog.Logger
	dummyHash []byte
}

// NewAuthenticator builds an Authenticator over users.
func NewAuthenticator(users UserStore, logger *slog.Logger) *Authenticator {
	// compared against when the username is unknown so both failure paths cost a bcrypt round
	dummy, _ := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	return &Authenticator{users: users, logger: logger, dummyHash: dummy}
}

// Verify returns the identity for username when password matches.
func (a *Authenticator) Verify(ctx context.Context, username, password string) (Identity, error) {
	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return Identity{}, ErrInvalidCredentials
		}
		return Identity{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		a.logger.Warn("stored password hash could not be checked", "username", user.Username, "error", err)
		return Identity{}, ErrInvalidCredentials
	}
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{ID: user.ID.String(), Username: user.Username}, nil
}

// CreateUser provisions a new admin account.
func (a *Authenticator) CreateUser(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return models.User{}, errors.New("username is required")
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return models.User{}, fmt.Errorf("generate user id: %w", err)
	}
	user := models.User{
		ID:           id,
		Username:     username,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := a.users.InsertUser(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

// SetPassword replaces the password of an existing account.
func (a *Authenticator) SetPassword(ctx context.Context, username, password string) error {
	hashed, err := HashPassword(password)
	if err != nil {
		return err
	}
	return a.users.UpdatePasswordHash(ctx, strings.TrimSpace(username), hashed)
}
