package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/auth"
)

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeBody(w, r, map[string]field{
		"email":       {required: true, decode: str(&req.Email)},
		"username":    {required: true, decode: str(&req.Username)},
		"password":    {required: true, decode: str(&req.Password)},
		"displayName": {decode: str(&req.DisplayName)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	u, err := h.Accounts.Register(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Registration successful", func(e *jx.Encoder) {
		e.FieldStart("user")
		encodeUser(e, *u)
	})
}

func decodeLogin(w http.ResponseWriter, r *http.Request) (email, password string, err error) {
	err = decodeBody(w, r, map[string]field{
		"email":    {required: true, decode: str(&email)},
		"password": {required: true, decode: str(&password)},
	})
	return email, password, err
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	email, password, err := decodeLogin(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sess, u, err := h.Accounts.Login(r.Context(), email, password)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.loggedIn(w, sess, u, "Login successful")
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	email, password, err := decodeLogin(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	sess, u, err := h.Accounts.AdminLogin(r.Context(), email, password)
	if err != nil {
		fail(w, r, err)
		return
	}
	h.loggedIn(w, sess, u, "Admin login successful")
}

func (h *Handler) loggedIn(w http.ResponseWriter, sess *auth.Session, u *auth.User, msg string) {
	h.setSession(w, sess.ID)
	respond(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.FieldStart("sessionId")
		e.Str(sess.ID)
		e.FieldStart("user")
		encodeUser(e, *u)
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	creds := h.credentials(r)
	for _, id := range []string{creds.SessionID, creds.FallbackSessionID} {
		if err := h.Accounts.Logout(r.Context(), id); err != nil {
			fail(w, r, err)
			return
		}
	}
	h.clearSession(w)
	respond(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	u, err := h.Accounts.Me(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User retrieved", func(e *jx.Encoder) {
		e.FieldStart("user")
		encodeUser(e, *u)
	})
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var current, next string
	if err := decodeBody(w, r, map[string]field{
		"currentPassword": {required: true, decode: str(&current)},
		"newPassword":     {required: true, decode: str(&next)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	if err := h.Accounts.ChangePassword(r.Context(), p, sessionID(r), current, next); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Password changed", nil)
}
