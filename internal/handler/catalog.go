package handler

import (
	"net/http"
	"strconv"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/catalog"
)

// listGames accepts optional genre, category and discounted filters.
func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	req, err := pageRequest(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	q := r.URL.Query()
	f := catalog.Filter{Genre: q.Get("genre"), Category: q.Get("category")}
	if s := q.Get("discounted"); s != "" {
		if f.Discounted, err = strconv.ParseBool(s); err != nil {
			fail(w, r, apperr.New(apperr.Validation, "discounted must be true or false"))
			return
		}
	}
	games, total, err := h.Catalog.List(r.Context(), f, req)
	if err != nil {
		fail(w, r, err)
		return
	}
	list(w, "Games retrieved", "games", games, total, req, encodeGame)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	g, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondGame(w, http.StatusOK, "Game retrieved", g)
}

func (h *Handler) listGenres(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Catalog.Genres(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respondTags(w, "Genres retrieved", "genres", tags)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	tags, err := h.Catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respondTags(w, "Categories retrieved", "categories", tags)
}

func respondTags(w http.ResponseWriter, msg, name string, tags []catalog.Tag) {
	respond(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.FieldStart(name)
		e.ArrStart()
		for _, t := range tags {
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(t.ID)
			e.FieldStart("name")
			e.Str(t.Name)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("count")
		e.Int(len(tags))
	})
}

func (h *Handler) adminGames(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	h.listGames(w, r)
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	var g catalog.Game
	if err := decodeBody(w, r, map[string]field{
		"appId":           {required: true, decode: integer(&g.AppID)},
		"name":            {required: true, decode: str(&g.Name)},
		"priceFinal":      {required: true, decode: amount(&g.PriceFinal)},
		"priceOrg":        {decode: amount(&g.PriceOrg)},
		"discountPercent": {decode: smallInt(&g.DiscountPercent)},
		"currency":        {decode: str(&g.Currency)},
		"genres":          {decode: strs(&g.Genres)},
		"categories":      {decode: strs(&g.Categories)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	created, err := h.Catalog.Create(r.Context(), g)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondGame(w, http.StatusCreated, "Game created", created)
}

func (h *Handler) updateGamePrice(w http.ResponseWriter, r *http.Request, _ auth.Principal) {
	id, err := pathID(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	var (
		price   decimal.Decimal
		percent int
	)
	if err := decodeBody(w, r, map[string]field{
		"priceFinal":      {required: true, decode: amount(&price)},
		"discountPercent": {decode: smallInt(&percent)},
	}); err != nil {
		fail(w, r, err)
		return
	}
	g, err := h.Catalog.UpdatePrice(r.Context(), id, price, percent)
	if err != nil {
		fail(w, r, err)
		return
	}
	respondGame(w, http.StatusOK, "Price updated", g)
}

func respondGame(w http.ResponseWriter, status int, msg string, g *catalog.Game) {
	respond(w, status, msg, func(e *jx.Encoder) {
		e.FieldStart("game")
		encodeGame(e, *g)
	})
}
