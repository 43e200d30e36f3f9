package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
)

const recentOrdersLimit = 10

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var req order.CreateRequest
	if err := decodeBody(w, r, map[string]field{
		"appIds":           {required: true, decode: integers(&req.AppIDs)},
		"couponCode":       {decode: str(&req.CouponCode)},
		"billingAddressId": {decode: optInteger(&req.BillingAddressID)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.Orders.CreateOrder(r.Context(), p, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondOrder(w, http.StatusCreated, "Order created", o)
}

func (h *Handler) listMyOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	orders, total, err := h.Orders.ListMine(r.Context(), p, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Orders retrieved", "orders", orders, total, req, encodeOrder)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), p, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondOrder(w, http.StatusOK, "Order retrieved", o)
}

// adminOrders accepts optional status and userId filters.
func (h *Handler) adminOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var f order.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = order.Status(s)
		if !f.Status.Valid() {
			fail(w, r, apperr.Newf(apperr.Validation, "unknown order status %q", s))
			return
		}
	}
	if s := r.URL.Query().Get("userId"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			fail(w, r, apperr.New(apperr.Validation, "invalid userId"))
			return
		}
		f.UserID = id
	}
	orders, total, err := h.Orders.List(r.Context(), p, f, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Orders retrieved", "orders", orders, total, req, encodeOrder)
}

// recentOrders lists the newest orders of every user. Only limit is read from
// the query.
func (h *Handler) recentOrders(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	req := page.Request{Limit: recentOrdersLimit, SortBy: "createdAt", Desc: true}
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			fail(w, r, apperr.New(apperr.Validation, "limit must be a positive integer"))
			return
		}
		req.Limit = n
	}
	req = req.Normalize()
	orders, total, err := h.Orders.List(r.Context(), p, order.Filter{}, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Recent orders retrieved", "orders", orders, total, req, encodeOrder)
}

func respondOrder(w http.ResponseWriter, status int, msg string, o *order.Order) {
	respond(w, status, msg, func(e *jx.Encoder) {
		e.FieldStart("order")
		encodeOrder(e, *o)
	})
}
