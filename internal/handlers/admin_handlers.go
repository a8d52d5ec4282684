package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"portfolio-site/internal/assets"
	"portfolio-site/internal/models"
	"portfolio-site/internal/projects"
	"portfolio-site/internal/web"
)

const adminProjectsPath = "/admin/projects"

var errFormTooLarge = errors.New("form too large")

func (h *Handler) AdminProjects(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projects.List(r.Context())
	if err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageAdminProjects, "Manage projects", list)
}

func (h *Handler) NewProjectForm(w http.ResponseWriter, r *http.Request) {
	form := web.ProjectForm{Heading: "Add project", Action: "/admin/projects/add"}
	h.Renderer.Render(w, r, http.StatusOK, web.PageProjectForm, form.Heading, form)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	const formPath = "/admin/projects/add"
	fields, img, err := h.readProjectForm(w, r)
	if err != nil {
		redirect(w, r, formPath, web.Danger(formErrorMessage(err)))
		return
	}
	if img != nil {
		defer img.close()
	}

	p, err := h.Projects.Create(r.Context(), fields, img.image())
	if err != nil {
		h.mutationFailed(w, r, formPath, err)
		return
	}
	redirect(w, r, adminProjectsPath, web.Success(fmt.Sprintf("Project %q added.", p.Title)))
}

func (h *Handler) EditProjectForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.Projects.Get(r.Context(), id)
	if err != nil {
		h.mutationFailed(w, r, adminProjectsPath, err)
		return
	}
	form := web.ProjectForm{
		Heading: "Edit project",
		Action:  "/admin/projects/edit/" + p.ID.String(),
		Project: p,
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageProjectForm, form.Heading, form)
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	formPath := "/admin/projects/edit/" + url.PathEscape(id)
	fields, img, err := h.readProjectForm(w, r)
	if err != nil {
		redirect(w, r, formPath, web.Danger(formErrorMessage(err)))
		return
	}
	if img != nil {
		defer img.close()
	}

	p, err := h.Projects.Update(r.Context(), id, fields, img.image())
	if err != nil {
		h.mutationFailed(w, r, formPath, err)
		return
	}
	redirect(w, r, adminProjectsPath, web.Success(fmt.Sprintf("Project %q updated.", p.Title)))
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.mutationFailed(w, r, adminProjectsPath, err)
		return
	}
	redirect(w, r, adminProjectsPath, web.Success("Project deleted."))
}

// mutationFailed maps service errors onto flash + redirect. Only unexpected
// errors reach the 500 page.
func (h *Handler) mutationFailed(w http.ResponseWriter, r *http.Request, back string, err error) {
	var uploadErr *assets.UploadError
	switch {
	case errors.Is(err, projects.ErrNotFound):
		redirect(w, r, adminProjectsPath, web.Danger("Project not found."))
	case errors.Is(err, projects.ErrInvalid):
		redirect(w, r, back, web.Warning("A title is required."))
	case errors.As(err, &uploadErr):
		h.Logger.Warn("image upload failed", "reason", uploadErr.Reason, "error", uploadErr.Err)
		redirect(w, r, back, web.Danger("Image upload failed: "+uploadErr.Reason+". Nothing was saved."))
	default:
		h.Renderer.ServerError(w, r, err)
	}
}

type uploadedFile struct {
	img    projects.Image
	closer func() error
}

func (u *uploadedFile) image() *projects.Image {
	if u == nil {
		return nil
	}
	return &u.img
}

func (u *uploadedFile) close() {
	if u.closer != nil {
		_ = u.closer()
	}
}

// readProjectForm parses the multipart admin form. The image is optional;
// an empty file input counts as no image.
func (h *Handler) readProjectForm(w http.ResponseWriter, r *http.Request) (models.ProjectFields, *uploadedFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return models.ProjectFields{}, nil, errFormTooLarge
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			return models.ProjectFields{}, nil, err
		}
		if err := r.ParseForm(); err != nil {
			return models.ProjectFields{}, nil, err
		}
	}

	fields := models.ProjectFields{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Technologies: projects.ParseTechnologies(r.PostFormValue("technologies")),
		ProjectURL:   r.PostFormValue("project_url"),
		GitHubURL:    r.PostFormValue("github_url"),
	}

	if r.MultipartForm == nil {
		return fields, nil, nil
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return fields, nil, nil
		}
		return models.ProjectFields{}, nil, err
	}
	if header.Filename == "" {
		file.Close()
		return fields, nil, nil
	}
	return fields, &uploadedFile{
		img:    projects.Image{Filename: header.Filename, Content: file},
		closer: file.Close,
	}, nil
}

func formErrorMessage(err error) string {
	if errors.Is(err, errFormTooLarge) {
		return "The upload is too large."
	}
	return "The form could not be read. Please try again."
}
