package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/billing"
)

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	items, err := h.Addresses.List(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Billing addresses retrieved", func(e *jx.Encoder) {
		e.FieldStart("addresses")
		e.ArrStart()
		for _, a := range items {
			encodeAddress(e, a)
		}
		e.ArrEnd()
	})
}

func (h *Handler) createAddress(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var a billing.Address
	if err := decodeBody(w, r, map[string]field{
		"fullName":   {required: true, decode: str(&a.FullName)},
		"line1":      {required: true, decode: str(&a.Line1)},
		"line2":      {decode: str(&a.Line2)},
		"city":       {required: true, decode: str(&a.City)},
		"postalCode": {required: true, decode: str(&a.PostalCode)},
		"country":    {required: true, decode: str(&a.Country)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	created, err := h.Addresses.Create(r.Context(), p.UserID, a)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Billing address saved", func(e *jx.Encoder) {
		e.FieldStart("address")
		encodeAddress(e, *created)
	})
}
