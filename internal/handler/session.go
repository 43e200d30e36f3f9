package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/xenking/gamestore/internal/domain/auth"
)

// HeaderSessionID carries an out-of-band session identifier.
const HeaderSessionID = "X-Session-ID"

type sessionKey struct{}

// sessionID returns the primary session the Gate resolved for r.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey{}).(string)
	return id
}

type principalHandler func(w http.ResponseWriter, r *http.Request, p auth.Principal)

// authed resolves the caller through the Gate. An empty role admits any
// authenticated caller. When the identity came from the X-Session-ID header
// the primary session cookie is (re)issued.
func (h *Handler) authed(role auth.Role, next principalHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := h.Gate.Authorize(r.Context(), h.credentials(r), role)
		if res.Rebound {
			h.setSession(w, res.SessionID)
		}
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, res.SessionID)
		next(w, r.WithContext(ctx), res.Principal)
	}
}

func (h *Handler) credentials(r *http.Request) auth.Credentials {
	creds := auth.Credentials{FallbackSessionID: strings.TrimSpace(r.Header.Get(HeaderSessionID))}
	if c, err := r.Cookie(h.cfg.CookieName); err == nil {
		creds.SessionID = c.Value
	}
	return creds
}

func (h *Handler) setSession(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(h.cfg.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
