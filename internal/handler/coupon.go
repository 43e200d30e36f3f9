package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/coupon"
)

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	var (
		code     string
		subtotal decimal.Decimal
	)
	if err := decodeBody(w, r, map[string]field{
		"code":     {required: true, decode: str(&code)},
		"subtotal": {required: true, decode: amount(&subtotal)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	if subtotal.IsNegative() {
		fail(w, r, apperr.New(apperr.Validation, "subtotal must not be negative"))
		return
	}
	ev, err := h.Evaluator.Validate(r.Context(), code, p.UserID, subtotal)
	if err != nil {
		fail(w, r, err)
		return
	}
	msg := "Coupon is valid"
	if !ev.Valid {
		msg = "Coupon is not valid"
	}
	respond(w, http.StatusOK, msg, func(e *jx.Encoder) { encodeEvaluation(e, ev) })
}

func (h *Handler) adminCoupons(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, total, err := h.Coupons.List(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Coupons retrieved", "coupons", items, total, req, encodeCoupon)
}

func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var (
		req   coupon.CreateRequest
		dtype string
	)
	if err := decodeBody(w, r, map[string]field{
		"code":         {required: true, decode: str(&req.Code)},
		"discountType": {required: true, decode: str(&dtype)},
		"value":        {required: true, decode: amount(&req.Value)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	req.DiscountType = coupon.DiscountType(dtype)
	c, err := h.Coupons.Create(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Coupon created", func(e *jx.Encoder) {
		e.FieldStart("coupon")
		encodeCoupon(e, *c)
	})
}
