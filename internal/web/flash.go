package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// FlashCookieName holds a one-time notice between a redirect and the next page.
const FlashCookieName = "portfolio_flash"

// Kind classifies how a notice is shown.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindDanger  Kind = "danger"
)

// Notice is a single flash message.
type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func Success(msg string) Notice { return Notice{Kind: KindSuccess, Message: msg} }
func Info(msg string) Notice    { return Notice{Kind: KindInfo, Message: msg} }
func Warning(msg string) Notice { return Notice{Kind: KindWarning, Message: msg} }
func Danger(msg string) Notice  { return Notice{Kind: KindDanger, Message: msg} }

// WriteFlash stores notice for the next page render.
func WriteFlash(w http.ResponseWriter, r *http.Request, notice Notice) {
	normalized, ok := normalizeNotice(notice)
	if !ok {
		return
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadFlash returns the pending notice, if any, and expires the cookie.
func ReadFlash(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil {
		return Notice{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	return decodeNotice(cookie.Value)
}

func decodeNotice(raw string) (Notice, bool) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(decoded, &notice); err != nil {
		return Notice{}, false
	}
	return normalizeNotice(notice)
}

func normalizeNotice(notice Notice) (Notice, bool) {
	notice.Message = strings.TrimSpace(notice.Message)
	if notice.Message == "" {
		return Notice{}, false
	}
	notice.Kind = Kind(strings.ToLower(strings.TrimSpace(string(notice.Kind))))
	switch notice.Kind {
	case KindSuccess, KindInfo, KindWarning, KindDanger:
		return notice, true
	default:
		return Notice{}, false
	}
}
