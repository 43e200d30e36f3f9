package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/payment"
)

func (h *Handler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.Payments.Methods(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Payment methods retrieved", func(e *jx.Encoder) {
		e.FieldStart("methods")
		e.ArrStart()
		for _, m := range methods {
			encodeMethod(e, m)
		}
		e.ArrEnd()
	})
}

// createPayment reports through data.created whether a new row was written
// or the order's initiated payment was returned again.
func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var req payment.CreateRequest
	if err := decodeBody(w, r, map[string]field{
		"orderId":       {required: true, decode: integer(&req.OrderID)},
		"paymentMethod": {required: true, decode: str(&req.Method)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	res, err := h.Payments.CreatePayment(r.Context(), p, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	msg := "Payment already initiated"
	if res.Created {
		msg = "Payment created"
	}
	respond(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.FieldStart("payment")
		encodePayment(e, *res.Payment)
		e.FieldStart("created")
		e.Bool(res.Created)
	})
}

func (h *Handler) adminPayments(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, total, err := h.Payments.List(r.Context(), p, r.URL.Query().Get("status"), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Payments retrieved", "payments", items, total, req, encodeSummary)
}

func (h *Handler) pendingPayments(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, total, err := h.Payments.ListPending(r.Context(), p, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Pending payments retrieved", "payments", items, total, req, encodeSummary)
}

func (h *Handler) adminPayment(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	s, err := h.Payments.Get(r.Context(), p, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Payment retrieved", func(e *jx.Encoder) {
		e.FieldStart("payment")
		encodeSummary(e, *s)
	})
}

func (h *Handler) updatePaymentStatus(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var status string
	if err := decodeBody(w, r, map[string]field{
		"payment_status": {required: true, decode: str(&status)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	pay, err := h.Payments.UpdateStatus(r.Context(), p, id, status)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Payment status updated", func(e *jx.Encoder) {
		e.FieldStart("payment")
		encodePayment(e, *pay)
	})
}
