package handler

import (
	"net/http"

	"github.com/xenking/gamestore/internal/domain/auth"
)

func (h *Handler) getLibrary(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	entries, total, err := h.Library.List(r.Context(), p.UserID, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Library retrieved successfully", "games", entries, total, req, encodeLibraryEntry)
}
