package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"portfolio-site/internal/projects"
	"portfolio-site/internal/web"
)

// --- PUBLIC PAGES ---

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projects.List(r.Context())
	if err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageProjects, "Projects", list)
}

// ProjectDetail renders one project. Unknown and malformed ids are both 404.
func (h *Handler) ProjectDetail(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			h.Renderer.NotFound(w, r)
			return
		}
		h.Renderer.ServerError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageProjectDetail, p.Title, p)
}

// --- JSON API ---

func (h *Handler) APIListProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projects.List(r.Context())
	if err != nil {
		h.Logger.Error("api list projects", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to retrieve projects")
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *Handler) APIGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Project not found")
			return
		}
		h.Logger.Error("api get project", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to retrieve project")
		return
	}
	respondJSON(w, http.StatusOK, p)
}
