package handlers

import (
	"errors"
	"net/http"

	"portfolio-site/internal/auth"
	"portfolio-site/internal/web"
)

// LoginRejected is shown for every failed login, whatever the cause.
const LoginRejected = "Invalid username or password."

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.Current(r); ok {
		http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
		return
	}
	h.Renderer.Render(w, r, http.StatusOK, web.PageLogin, "Admin login", nil)
}

// Login handles the login form.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.Current(r); ok {
		http.Redirect(w, r, "/admin/projects", http.StatusSeeOther)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 16<<10)
	if err := r.ParseForm(); err != nil {
		h.Renderer.Render(w, r, http.StatusBadRequest, web.PageLogin, "Admin login", nil, web.Danger(LoginRejected))
		return
	}

	identity, err := h.Verifier.Verify(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			h.Logger.Error("login lookup failed", "error", err)
		}
		h.Renderer.Render(w, r, http.StatusOK, web.PageLogin, "Admin login", nil, web.Danger(LoginRejected))
		return
	}

	if err := h.Sessions.Login(r.Context(), w, identity); err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	h.Logger.Info("admin logged in", "username", identity.Username)
	redirect(w, r, "/admin/projects", web.Success("Logged in."))
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(r.Context(), w, r); err != nil {
		h.Renderer.ServerError(w, r, err)
		return
	}
	redirect(w, r, "/admin/login", web.Info("You have been logged out."))
}
