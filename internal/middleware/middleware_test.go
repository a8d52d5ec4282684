package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolio-site/internal/auth"
)

type staticSessions struct {
	identity auth.Identity
	ok       bool
}

func (s staticSessions) Current(*http.Request) (auth.Identity, bool) {
	return s.identity, s.ok
}

func TestRequireAdmin(t *testing.T) {
	admin := auth.Identity{ID: uuid.NewString(), Username: "admin"}
	var seen auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("no session redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(staticSessions{})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/projects", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, LoginPath, rec.Header().Get("Location"))
	})

	t.Run("session passes identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin(staticSessions{identity: admin, ok: true})(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/projects", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, admin, seen)
	})
}

func TestIdentityFromEmptyContext(t *testing.T) {
	_, ok := IdentityFrom(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(1, 2)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")

	clock = clock.Add(time.Second)
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	h := l.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/contact", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusNoContent, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "GET is never limited")
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Metrics)
	r.Get("/metrics-test/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/metrics-test/{id}", http.MethodGet, "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test/abc", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/metrics-test/{id}", http.MethodGet, "418"))
	assert.Equal(t, before+1, after)
}
