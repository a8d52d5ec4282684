package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// CookieName is the admin session cookie.
const CookieName = "portfolio_session"

// sessionClaims only carries the session id. The identity always comes from the store.
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Manager binds authenticated identities to server-side sessions.
type Manager struct {
	store  SessionStore
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	Secret       string
	TTL          time.Duration
	CookieSecure bool
}

// NewManager builds a session manager over store.
func NewManager(store SessionStore, opts ManagerOptions) *Manager {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		secret: []byte(opts.Secret),
		ttl:    ttl,
		secure: opts.CookieSecure,
		now:    time.Now,
	}
}

// Login starts a new session for identity and writes the session cookie.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, identity Identity) error {
	sessionID := uuid.NewString()
	if err := m.store.Save(ctx, sessionID, identity, m.ttl); err != nil {
		return err
	}

	expires := m.now().Add(m.ttl)
	claims := &sessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(m.now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		_ = m.store.Delete(ctx, sessionID)
		return fmt.Errorf("sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Current returns the identity bound to the request's session, if any.
func (m *Manager) Current(r *http.Request) (Identity, bool) {
	sessionID, ok := m.sessionID(r)
	if !ok {
		return Identity{}, false
	}
	identity, found, err := m.store.Load(r.Context(), sessionID)
	if err != nil || !found {
		return Identity{}, false
	}
	return identity, true
}

// Logout invalidates the request's session and clears the cookie. When the
// server-side entry cannot be deleted the cookie is kept so the caller can retry.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if sessionID, ok := m.sessionID(r); ok {
		if err := m.store.Delete(ctx, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) sessionID(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	if value == "" {
		return "", false
	}
	claims, err := m.parse(value)
	if err != nil || claims.SessionID == "" {
		return "", false
	}
	return claims.SessionID, true
}

func (m *Manager) parse(tokenString string) (*sessionClaims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*sessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
