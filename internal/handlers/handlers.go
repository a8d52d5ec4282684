// Package handlers wires the HTTP surface of the site: public pages, the
// admin area, the read-only JSON API and the live project feed.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolio-site/internal/auth"
	"portfolio-site/internal/middleware"
	"portfolio-site/internal/models"
	"portfolio-site/internal/notify"
	"portfolio-site/internal/projects"
	"portfolio-site/internal/web"
	"portfolio-site/internal/ws"
)

// ProjectService is the project repository as seen by the handlers.
type ProjectService interface {
	List(ctx context.Context) ([]models.Project, error)
	Get(ctx context.Context, id string) (models.Project, error)
	Create(ctx context.Context, fields models.ProjectFields, img *projects.Image) (models.Project, error)
	Update(ctx context.Context, id string, fields models.ProjectFields, img *projects.Image) (models.Project, error)
	Delete(ctx context.Context, id string) error
}

// Verifier checks admin credentials.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (auth.Identity, error)
}

// Sessions binds identities to requests.
type Sessions interface {
	Login(ctx context.Context, w http.ResponseWriter, identity auth.Identity) error
	Current(r *http.Request) (auth.Identity, bool)
	Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// ContactSender delivers contact form messages.
type ContactSender interface {
	SendContactMessage(ctx context.Context, msg notify.ContactMessage) error
}

// Deps are the collaborators the router needs.
type Deps struct {
	Projects ProjectService
	Verifier Verifier
	Sessions Sessions
	Contact  ContactSender
	Renderer *web.Renderer
	Hub      *ws.Hub
	Logger   *slog.Logger

	// BaseURL makes sitemap links absolute. Empty means derive from the request.
	BaseURL        string
	StaticDir      string
	AllowedOrigins []string
	MaxUploadBytes int64
	FormLimiter    *middleware.RateLimiter
}

// Handler serves every route of the site.
type Handler struct {
	Deps
}

// NewRouter builds the chi router for the whole site.
func NewRouter(d Deps) http.Handler {
	h := &Handler{Deps: d}
	if h.MaxUploadBytes <= 0 {
		h.MaxUploadBytes = 10 << 20
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)

	r.NotFound(h.Renderer.NotFound)
	r.MethodNotAllowed(h.Renderer.NotFound)

	limit := func(next http.Handler) http.Handler { return next }
	if h.FormLimiter != nil {
		if h.FormLimiter.OnLimit == nil {
			h.FormLimiter.OnLimit = h.Renderer.TooManyRequests
		}
		limit = h.FormLimiter.Limit
	}

	r.Get("/", h.Index)
	r.Get("/about", h.About)
	r.Get("/tools", h.Tools)
	r.With(limit).Get("/contact", h.ContactForm)
	r.With(limit).Post("/contact", h.SubmitContact)
	r.Get("/projects", h.ListProjects)
	r.Get("/projects/{id}", h.ProjectDetail)
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/robots.txt", h.Robots)

	r.Route("/admin", func(r chi.Router) {
		r.With(limit).Get("/login", h.LoginForm)
		r.With(limit).Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(h.Sessions))
			r.Get("/logout", h.Logout)
			r.Get("/projects", h.AdminProjects)
			r.Get("/projects/add", h.NewProjectForm)
			r.Post("/projects/add", h.CreateProject)
			r.Get("/projects/edit/{id}", h.EditProjectForm)
			r.Post("/projects/edit/{id}", h.UpdateProject)
			r.Post("/projects/delete/{id}", h.DeleteProject)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Get("/projects", h.APIListProjects)
		r.Get("/projects/{id}", h.APIGetProject)
	})

	if h.Hub != nil {
		r.Get("/ws/projects", h.ServeWs)
	}
	r.Handle("/metrics", promhttp.Handler())

	if h.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(h.StaticDir))
		r.Handle("/static/*", http.StripPrefix("/static", fileServer))
	}

	return r
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// redirect finishes a POST with a flash notice and a 303 to target.
func redirect(w http.ResponseWriter, r *http.Request, target string, notice web.Notice) {
	web.WriteFlash(w, r, notice)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// baseURL returns the configured public origin or derives one from r.
func (h *Handler) baseURL(r *http.Request) string {
	if h.BaseURL != "" {
		return strings.TrimRight(h.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
