package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/cart"
	"github.com/xenking/gamestore/internal/domain/wishlist"
)

func decodeAppID(w http.ResponseWriter, r *http.Request) (int64, error) {
	var id int64
	err := decodeBody(w, r, map[string]field{
		"appId": {required: true, decode: integer(&id)},
	})
	return id, err
}

func respondCart(w http.ResponseWriter, status int, msg string, c *cart.Cart) {
	respond(w, status, msg, func(e *jx.Encoder) { encodeCart(e, c) })
}

func respondWishlist(w http.ResponseWriter, status int, msg string, items []wishlist.Item) {
	respond(w, status, msg, func(e *jx.Encoder) {
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range items {
			encodeWishlistItem(e, it)
		}
		e.ArrEnd()
		e.FieldStart("count")
		e.Int(len(items))
	})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	c, err := h.Carts.Get(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCart(w, http.StatusOK, "Cart retrieved", c)
}

func (h *Handler) addToCart(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := decodeAppID(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.Carts.Add(r.Context(), p.UserID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCart(w, http.StatusOK, "Added to cart", c)
}

func (h *Handler) removeFromCart(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "appId")
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.Carts.Remove(r.Context(), p.UserID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondCart(w, http.StatusOK, "Removed from cart", c)
}

func (h *Handler) getWishlist(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	items, err := h.Wishlists.List(r.Context(), p.UserID)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondWishlist(w, http.StatusOK, "Wishlist retrieved", items)
}

func (h *Handler) addToWishlist(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := decodeAppID(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	items, err := h.Wishlists.Add(r.Context(), p.UserID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondWishlist(w, http.StatusOK, "Added to wishlist", items)
}

func (h *Handler) removeFromWishlist(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	id, err := pathID(r, "appId")
	if err != nil {
		fail(w, r, err)
		return
	}
	items, err := h.Wishlists.Remove(r.Context(), p.UserID, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondWishlist(w, http.StatusOK, "Removed from wishlist", items)
}
