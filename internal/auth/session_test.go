package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(store SessionStore) *Manager {
	return NewManager(store, ManagerOptions{Secret: testSecret, TTL: time.Hour})
}

func loginCookie(t *testing.T, m *Manager, identity Identity) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Login(context.Background(), rec, identity))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/admin/projects", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestManager_LoginCurrentLogout(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	identity := Identity{ID: "u1", Username: "admin"}

	cookie := loginCookie(t, m, identity)
	assert.Equal(t, CookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	got, ok := m.Current(requestWith(cookie))
	require.True(t, ok)
	assert.Equal(t, identity, got)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Logout(context.Background(), rec, requestWith(cookie)))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)

	// the old cookie must stop working immediately
	_, ok = m.Current(requestWith(cookie))
	assert.False(t, ok)
}

func TestManager_CurrentRejects(t *testing.T) {
	m := newTestManager(NewMemoryStore())

	t.Run("no cookie", func(t *testing.T) {
		_, ok := m.Current(requestWith(nil))
		assert.False(t, ok)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		_, ok := m.Current(requestWith(&http.Cookie{Name: CookieName, Value: "not-a-token"}))
		assert.False(t, ok)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewManager(NewMemoryStore(), ManagerOptions{Secret: "another-secret-another-secret", TTL: time.Hour})
		cookie := loginCookie(t, other, Identity{ID: "u1", Username: "admin"})
		_, ok := m.Current(requestWith(cookie))
		assert.False(t, ok)
	})

	t.Run("valid signature but unknown session", func(t *testing.T) {
		claims := &sessionClaims{
			SessionID:        "forged",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, ok := m.Current(requestWith(&http.Cookie{Name: CookieName, Value: token}))
		assert.False(t, ok)
	})

	t.Run("expired token", func(t *testing.T) {
		store := NewMemoryStore()
		require.NoError(t, store.Save(context.Background(), "sid", Identity{ID: "u1"}, time.Hour))
		claims := &sessionClaims{
			SessionID:        "sid",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)
		_, ok := newTestManager(store).Current(requestWith(&http.Cookie{Name: CookieName, Value: token}))
		assert.False(t, ok)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &sessionClaims{SessionID: "sid"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, ok := m.Current(requestWith(&http.Cookie{Name: CookieName, Value: token}))
		assert.False(t, ok)
	})
}

func TestManager_LogoutWithoutSession(t *testing.T) {
	m := newTestManager(NewMemoryStore())
	rec := httptest.NewRecorder()
	require.NoError(t, m.Logout(context.Background(), rec, requestWith(nil)))
	assert.Len(t, rec.Result().Cookies(), 1)
}

type failingDeleteStore struct {
	*MemoryStore
}

func (failingDeleteStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestManager_LogoutStoreFailure(t *testing.T) {
	m := newTestManager(failingDeleteStore{NewMemoryStore()})
	cookie := loginCookie(t, m, Identity{ID: "u1", Username: "admin"})

	rec := httptest.NewRecorder()
	err := m.Logout(context.Background(), rec, requestWith(cookie))
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, rec.Result().Cookies())
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(ctx, "a", Identity{ID: "1"}, time.Minute))
	_, ok, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, err = s.Load(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Save(ctx, "b", Identity{ID: "2"}, time.Minute))
	require.NoError(t, s.Delete(ctx, "b"))
	_, ok, _ = s.Load(ctx, "b")
	assert.False(t, ok)
}
