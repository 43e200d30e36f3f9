package handler

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

const maxBodyBytes = 64 << 10

var errMalformedBody = apperr.New(apperr.Validation, "malformed JSON body")

// field describes one member of a strictly decoded request object.
type field struct {
	required bool
	decode   func(d *jx.Decoder) error
}

// decodeBody decodes a JSON object from the request body. Unknown and
// duplicate members, missing required members and type mismatches are
// validation errors. A JSON null is treated as an absent member. Anything but
// whitespace after the object is malformed.
func decodeBody(w http.ResponseWriter, r *http.Request, fields map[string]field) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.New(apperr.Validation, "request body too large")
		}
		return errMalformedBody
	}
	obj, err := singleObject(data)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(fields))
	d := jx.DecodeBytes(obj)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		f, known := fields[key]
		if !known {
			return apperr.Newf(apperr.Validation, "unknown field %q", key)
		}
		if seen[key] {
			return apperr.Newf(apperr.Validation, "duplicate field %q", key)
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		seen[key] = true
		if err := f.decode(d); err != nil {
			if e, found := apperr.From(err); found {
				return e
			}
			return apperr.Newf(apperr.Validation, "invalid value for %q", key)
		}
		return nil
	})
	if err != nil {
		if e, found := apperr.From(err); found {
			return e
		}
		return errMalformedBody
	}
	for name, f := range fields {
		if f.required && !seen[name] {
			return apperr.Newf(apperr.Validation, "%s is required", name)
		}
	}
	return nil
}

// singleObject returns the JSON object that makes up data, rejecting any
// other value and trailing content.
func singleObject(data []byte) ([]byte, error) {
	data = bytes.TrimLeft(data, " \t\r\n")
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, errMalformedBody
	}
	raw, err := d.Raw()
	if err != nil {
		return nil, errMalformedBody
	}
	if len(bytes.TrimSpace(data[len(raw):])) > 0 {
		return nil, errMalformedBody
	}
	return raw, nil
}

func str(dst *string) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Str()
		*dst = v
		return err
	}
}

func integer(dst *int64) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Int64()
		*dst = v
		return err
	}
}

func smallInt(dst *int) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Int()
		*dst = v
		return err
	}
}

func optInteger(dst **int64) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		v, err := d.Int64()
		if err != nil {
			return err
		}
		*dst = &v
		return nil
	}
}

func integers(dst *[]int64) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			v, err := d.Int64()
			if err != nil {
				return err
			}
			*dst = append(*dst, v)
			return nil
		})
	}
}

func strs(dst *[]string) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			v, err := d.Str()
			if err != nil {
				return err
			}
			*dst = append(*dst, v)
			return nil
		})
	}
}

// amount accepts a JSON number or a decimal string.
func amount(dst *decimal.Decimal) func(*jx.Decoder) error {
	return func(d *jx.Decoder) error {
		var raw string
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			if err != nil {
				return err
			}
			raw = s
		case jx.Number:
			n, err := d.Num()
			if err != nil {
				return err
			}
			raw = n.String()
		default:
			return errors.New("expected number")
		}
		v, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}

// pageRequest reads limit, offset, sortBy and order query parameters.
func pageRequest(r *http.Request) (page.Request, error) {
	q := r.URL.Query()
	req := page.Request{SortBy: strings.TrimSpace(q.Get("sortBy")), Desc: true}
	for name, dst := range map[string]*int{"limit": &req.Limit, "offset": &req.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return page.Request{}, apperr.Newf(apperr.Validation, "%s must be a non-negative integer", name)
		}
		*dst = v
	}
	switch strings.ToLower(q.Get("order")) {
	case "", "desc":
	case "asc":
		req.Desc = false
	default:
		return page.Request{}, apperr.New(apperr.Validation, "order must be asc or desc")
	}
	return req, nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Newf(apperr.Validation, "invalid %s", name)
	}
	return id, nil
}
