package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// respond writes {"success":true,"data":{...},"message":msg}. data encodes the
// fields of the data object.
func respond(w http.ResponseWriter, status int, msg string, data func(e *jx.Encoder)) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(true) })
		e.Field("data", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				if data != nil {
					data(e)
				}
			})
		})
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
	})
	writeJSON(w, status, &e)
}

// fail maps err to its code and writes the error envelope. Errors without a
// business code are logged and reported as a generic internal error.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	code := apperr.CodeOf(err)
	msg := "internal server error"
	if e, found := apperr.From(err); found {
		msg = e.Message
	}
	lg := zctx.From(r.Context())
	if code == apperr.Internal {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request rejected", zap.String("code", string(code)), zap.Error(err))
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("success", func(e *jx.Encoder) { e.Bool(false) })
		e.Field("error", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
				e.Field("code", func(e *jx.Encoder) { e.Str(string(code)) })
			})
		})
	})
	writeJSON(w, code.HTTPStatus(), &e)
}

// list writes a paginated collection under name.
func list[T any](w http.ResponseWriter, msg, name string, items []T, total int, req page.Request, enc func(*jx.Encoder, T)) {
	req = req.Normalize()
	respond(w, http.StatusOK, msg, func(e *jx.Encoder) {
		e.Field(name, func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range items {
					enc(e, it)
				}
			})
		})
		e.Field("count", func(e *jx.Encoder) { e.Int(len(items)) })
		e.Field("total", func(e *jx.Encoder) { e.Int(total) })
		e.Field("limit", func(e *jx.Encoder) { e.Int(req.Limit) })
		e.Field("offset", func(e *jx.Encoder) { e.Int(req.Offset) })
	})
}

func money(e *jx.Encoder, name string, d decimal.Decimal) {
	e.FieldStart(name)
	e.Str(d.StringFixed(2))
}

func timestamp(e *jx.Encoder, name string, t time.Time) {
	e.FieldStart(name)
	if t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.UTC().Format(time.RFC3339))
}

func optInt64(e *jx.Encoder, name string, v *int64) {
	e.FieldStart(name)
	if v == nil {
		e.Null()
		return
	}
	e.Int64(*v)
}

func optStr(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}

// names always encodes an array, empty when v is nil.
func names(e *jx.Encoder, name string, v []string) {
	e.FieldStart(name)
	e.ArrStart()
	for _, s := range v {
		e.Str(s)
	}
	e.ArrEnd()
}
