// Package web renders the HTML pages of the site from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"portfolio-site/internal/auth"
	"portfolio-site/internal/config"
)

//go:embed templates
var templateFS embed.FS

// Page names accepted by Render.
const (
	PageIndex         = "index"
	PageAbout         = "about"
	PageContact       = "contact"
	PageProjects      = "projects"
	PageProjectDetail = "project_detail"
	PageTools         = "tools"
	PageLogin         = "admin/login"
	PageAdminProjects = "admin/project_list"
	PageProjectForm   = "admin/project_form"
	PageNotFound      = "errors/404"
	PageServerError   = "errors/500"
	PageTooMany       = "errors/429"
)

var pages = []string{
	PageIndex, PageAbout, PageContact, PageProjects, PageProjectDetail, PageTools,
	PageLogin, PageAdminProjects, PageProjectForm,
	PageNotFound, PageServerError, PageTooMany,
}

// IdentityFunc resolves the admin bound to a request, if any.
type IdentityFunc func(r *http.Request) (auth.Identity, bool)

// View is what every template receives.
type View struct {
	Title    string
	Site     config.SiteContent
	Year     int
	Flash    *Notice
	Identity *auth.Identity
	Path     string
	Data     any
}

// Renderer executes page templates inside the shared layout.
type Renderer struct {
	templates map[string]*template.Template
	site      config.SiteContent
	identity  IdentityFunc
	logger    *slog.Logger
	now       func() time.Time
}

// NewRenderer parses every page. identity may be nil.
func NewRenderer(site config.SiteContent, identity IdentityFunc, logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New("layout.html").Funcs(Funcs()).ParseFS(templateFS,
			"templates/layout.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Renderer{
		templates: templates,
		site:      site,
		identity:  identity,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Site returns the site copy pages are rendered with.
func (rd *Renderer) Site() config.SiteContent { return rd.site }

// Render writes page with status. A pending flash cookie is consumed unless
// notice overrides it.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any, notice ...Notice) {
	t, ok := rd.templates[page]
	if !ok {
		rd.logger.Error("unknown page template", "page", page)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	view := View{
		Title: title,
		Site:  rd.site,
		Year:  rd.now().Year(),
		Path:  r.URL.Path,
		Data:  data,
	}
	if len(notice) > 0 {
		n := notice[0]
		view.Flash = &n
	} else if n, ok := ReadFlash(w, r); ok {
		view.Flash = &n
	}
	if rd.identity != nil {
		if id, ok := rd.identity(r); ok {
			view.Identity = &id
		}
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", view); err != nil {
		rd.logger.Error("render page", "page", page, "error", err)
		if page != PageServerError {
			rd.ServerError(w, r, err)
			return
		}
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the 404 page.
func (rd *Renderer) NotFound(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusNotFound, PageNotFound, "Page not found", nil)
}

// ServerError logs err and renders the 500 page.
func (rd *Renderer) ServerError(w http.ResponseWriter, r *http.Request, err error) {
	rd.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	rd.Render(w, r, http.StatusInternalServerError, PageServerError, "Server error", nil)
}

// TooManyRequests renders the 429 page.
func (rd *Renderer) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	rd.Render(w, r, http.StatusTooManyRequests, PageTooMany, "Slow down", nil)
}
