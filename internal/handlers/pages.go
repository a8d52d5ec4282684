package handlers

import (
	"errors"
	"net/http"

	"portfolio-site/internal/notify"
	"portfolio-site/internal/web"
)

const recentProjects = 3

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	list, err := h.Projects.List(r.Context())
	if err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	if len(list) > recentProjects {
		list = list[:recentProjects]
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageIndex, "", list)
}

func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, r, http.StatusOK, web.PageAbout, "About", nil)
}

func (h *Handler) Tools(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, r, http.StatusOK, web.PageTools, "Tools", nil)
}

func (h *Handler) ContactForm(w http.ResponseWriter, r *http.Request) {
	h.Renderer.Render(w, r, http.StatusOK, web.PageContact, "Contact", nil)
}

// SubmitContact sends the message and redirects back to the form. Nothing
// from the form is stored.
func (h *Handler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "/contact", web.Warning("The form could not be read. Please try again."))
		return
	}
	msg := notify.ContactMessage{
		Name:    r.PostForm.Get("name"),
		Email:   r.PostForm.Get("email"),
		Subject: r.PostForm.Get("subject"),
		Body:    r.PostForm.Get("message"),
	}

	err := h.Contact.SendContactMessage(r.Context(), msg)
	var sendErr *notify.SendError
	switch {
	case err == nil:
		redirect(w, r, "/contact", web.Success("Your message has been sent. I will get back to you soon."))
	case errors.Is(err, notify.ErrMissingField):
		redirect(w, r, "/contact", web.Warning("Please fill in every field."))
	case errors.Is(err, notify.ErrInvalidEmail):
		redirect(w, r, "/contact", web.Warning("Please enter a valid email address."))
	case errors.As(err, &sendErr):
		redirect(w, r, "/contact", web.Danger("Sorry, your message could not be sent. Please try again later."))
	default:
		h.Renderer.ServerError(w, r, err)
	}
}
