package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/auth"
)

func (h *Handler) stats(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	s, err := h.Admin.Stats(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Stats retrieved", func(e *jx.Encoder) { encodeStats(e, s) })
}

func (h *Handler) adminUsers(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	users, total, err := h.Admin.ListUsers(r.Context(), p, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Users retrieved", "users", users, total, req, encodeUser)
}
