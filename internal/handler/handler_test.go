package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
	"github.com/xenking/gamestore/internal/domain/payment"
)

type memSessions struct {
	mu   sync.Mutex
	data map[string]auth.SessionData
}

func (m *memSessions) Get(_ context.Context, id string) (auth.SessionData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	return d, ok, nil
}

func (m *memSessions) Save(_ context.Context, id string, d auth.SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = d
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memSessions) DeleteUserSessions(_ context.Context, userID int64, keep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.data {
		if d.UserID == userID && id != keep {
			delete(m.data, id)
		}
	}
	return nil
}

type stubAccounts struct {
	Accounts
	loggedOut []string
	kept      []string
}

func (s *stubAccounts) ChangePassword(_ context.Context, _ auth.Principal, sessionID, current, _ string) error {
	if current != "secret123" {
		return apperr.New(apperr.Validation, "current password is incorrect")
	}
	s.kept = append(s.kept, sessionID)
	return nil
}

func (s *stubAccounts) Login(_ context.Context, email, password string) (*auth.Session, *auth.User, error) {
	if password != "secret123" {
		return nil, nil, auth.ErrInvalidCredentials
	}
	u := &auth.User{ID: 7, Email: email, Username: "neo", Role: auth.RoleUser}
	return &auth.Session{ID: "new-session"}, u, nil
}

func (s *stubAccounts) Logout(_ context.Context, id string) error {
	if id != "" {
		s.loggedOut = append(s.loggedOut, id)
	}
	return nil
}

type stubOrders struct {
	Orders
	got     order.CreateRequest
	err     error
	filters []order.Filter
	reqs    []page.Request
}

func (s *stubOrders) List(_ context.Context, _ auth.Principal, f order.Filter, req page.Request) ([]order.Order, int, error) {
	s.filters = append(s.filters, f)
	s.reqs = append(s.reqs, req)
	return []order.Order{{ID: 5, UserID: 7, Status: order.StatusPaid}}, 42, nil
}

type stubCatalog struct {
	Catalog
	filters []catalog.Filter
	reqs    []page.Request
}

func (s *stubCatalog) List(_ context.Context, f catalog.Filter, req page.Request) ([]catalog.Game, int, error) {
	s.filters = append(s.filters, f)
	s.reqs = append(s.reqs, req)
	return []catalog.Game{{
		AppID:           367520,
		Name:            "Hollow Knight",
		PriceFinal:      decimal.RequireFromString("7.49"),
		PriceOrg:        decimal.RequireFromString("14.99"),
		DiscountPercent: 50,
		Currency:        "USD",
		Genres:          []string{"Action", "Indie"},
	}}, 1, nil
}

func (s *stubCatalog) Genres(context.Context) ([]catalog.Tag, error) {
	return []catalog.Tag{{ID: 1, Name: "Action"}, {ID: 2, Name: "Indie"}}, nil
}

func (s *stubOrders) CreateOrder(_ context.Context, p auth.Principal, req order.CreateRequest) (*order.Order, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &order.Order{
		ID:     11,
		UserID: p.UserID,
		Items: []order.LineItem{
			{AppID: 10, Name: "Portal", PriceFinal: decimal.RequireFromString("10")},
			{AppID: 20, Name: "Half-Life", PriceFinal: decimal.RequireFromString("15")},
		},
		Subtotal:       decimal.RequireFromString("25"),
		DiscountAmount: decimal.Zero,
		TotalPrice:     decimal.RequireFromString("25"),
		Status:         order.StatusPending,
		CreatedAt:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil
}

type stubPayments struct {
	Payments
	created  bool
	status   string
	reqs     []page.Request
	statuses []string
}

func (s *stubPayments) CreatePayment(_ context.Context, _ auth.Principal, req payment.CreateRequest) (*payment.CreateResult, error) {
	return &payment.CreateResult{
		Payment: &payment.Payment{ID: 3, OrderID: req.OrderID, MethodID: 1, MethodName: req.Method, Status: payment.StatusInitiated, Amount: decimal.RequireFromString("25")},
		Created: s.created,
	}, nil
}

func (s *stubPayments) UpdateStatus(_ context.Context, _ auth.Principal, id int64, status string) (*payment.Payment, error) {
	s.status = status
	if status == "bogus" {
		return nil, errors.Wrap(payment.ErrNotFound, "update")
	}
	return &payment.Payment{ID: id, Status: payment.Status(status), Amount: decimal.RequireFromString("25")}, nil
}

func (s *stubPayments) List(_ context.Context, _ auth.Principal, status string, req page.Request) ([]payment.Summary, int, error) {
	s.reqs = append(s.reqs, req)
	s.statuses = append(s.statuses, status)
	return nil, 0, nil
}

type stubEvaluator struct{}

func (stubEvaluator) Validate(_ context.Context, code string, _ int64, subtotal decimal.Decimal) (coupon.Evaluation, error) {
	if code == "BROKEN" {
		return coupon.Evaluation{}, errors.New("connection reset")
	}
	return coupon.Evaluation{
		Valid:    true,
		Discount: subtotal.Div(decimal.NewFromInt(10)).Round(2),
		Coupon:   &coupon.Coupon{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10)},
	}, nil
}

type env struct {
	mux      *http.ServeMux
	sessions *memSessions
	accounts *stubAccounts
	orders   *stubOrders
	payments *stubPayments
	catalog  *stubCatalog
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		mux: http.NewServeMux(),
		sessions: &memSessions{data: map[string]auth.SessionData{
			"user-sid":  {UserID: 7, Email: "neo@example.com", Username: "neo", Role: auth.RoleUser},
			"admin-sid": {UserID: 1, Email: "admin@example.com", Username: "admin", Role: auth.RoleAdmin},
		}},
		accounts: &stubAccounts{},
		orders:   &stubOrders{},
		payments: &stubPayments{},
		catalog:  &stubCatalog{},
	}
	New(Config{SessionTTL: time.Hour}, Services{
		Gate:      auth.NewGate(e.sessions),
		Accounts:  e.accounts,
		Catalog:   e.catalog,
		Orders:    e.orders,
		Payments:  e.payments,
		Evaluator: stubEvaluator{},
	}).Register(e.mux)
	return e
}

func (e *env) do(method, path, sid, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	return w
}

// envelope flattens the response into dotted paths for assertions.
func envelope(t *testing.T, body []byte) map[string]string {
	t.Helper()
	out := map[string]string{}
	var walk func(d *jx.Decoder, prefix string) error
	walk = func(d *jx.Decoder, prefix string) error {
		switch d.Next() {
		case jx.Object:
			return d.Obj(func(d *jx.Decoder, key string) error {
				return walk(d, prefix+key+".")
			})
		case jx.Array:
			i := 0
			return d.Arr(func(d *jx.Decoder) error {
				err := walk(d, prefix+string(rune('0'+i))+".")
				i++
				return err
			})
		default:
			raw, err := d.Raw()
			if err != nil {
				return err
			}
			out[strings.TrimSuffix(prefix, ".")] = strings.Trim(raw.String(), `"`)
			return nil
		}
	}
	require.NoError(t, walk(jx.DecodeBytes(body), ""))
	return out
}

func TestCheckout(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/orders", "user-sid", `{"appIds":[10,20],"couponCode":null}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "true", body["success"])
	assert.Equal(t, "25.00", body["data.order.total_price"])
	assert.Equal(t, "10.00", body["data.order.items.0.price_final"])
	assert.Equal(t, "pending", body["data.order.order_status"])
	assert.Equal(t, "null", body["data.order.discount_code"])
	assert.Equal(t, "2024-01-02T03:04:05Z", body["data.order.created_at"])
	assert.Equal(t, []int64{10, 20}, e.orders.got.AppIDs)
	assert.Nil(t, e.orders.got.BillingAddressID)
}

func TestCheckout_CouponAlreadyUsed(t *testing.T) {
	e := newEnv(t)
	e.orders.err = errors.Wrap(coupon.ErrAlreadyUsed, "record coupon usage")
	w := e.do(http.MethodPost, "/api/orders", "user-sid", `{"appIds":[10],"couponCode":"SAVE10"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "false", body["success"])
	assert.Equal(t, "ALREADY_USED", body["error.code"])
	assert.Equal(t, "coupon already used", body["error.message"])
}

func TestStrictDecoding(t *testing.T) {
	e := newEnv(t)
	for _, tt := range []struct {
		name string
		body string
		msg  string
	}{
		{"UnknownField", `{"appIds":[1],"quantity":2}`, `unknown field "quantity"`},
		{"MissingRequired", `{"couponCode":"SAVE10"}`, "appIds is required"},
		{"WrongType", `{"appIds":"10"}`, `invalid value for "appIds"`},
		{"Duplicate", `{"appIds":[1],"appIds":[2]}`, `duplicate field "appIds"`},
		{"Malformed", `{"appIds":[1]`, "malformed JSON body"},
		{"Empty", ``, "malformed JSON body"},
		{"TrailingValue", `{"appIds":[1]} {"x":1}`, "malformed JSON body"},
		{"TrailingGarbage", `{"appIds":[1]}garbage`, "malformed JSON body"},
		{"NotAnObject", `[1]`, "malformed JSON body"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/orders", "user-sid", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := envelope(t, w.Body.Bytes())
			assert.Equal(t, "VALIDATION_ERROR", body["error.code"])
			assert.Equal(t, tt.msg, body["error.message"])
		})
	}
}

func TestGate(t *testing.T) {
	e := newEnv(t)

	t.Run("Unauthenticated", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/orders", "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "UNAUTHENTICATED", envelope(t, w.Body.Bytes())["error.code"])
	})
	t.Run("UnknownCookie", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/orders", "expired", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("UserOnAdminRoute", func(t *testing.T) {
		w := e.do(http.MethodGet, "/api/admin/payments", "user-sid", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ACCESS_DENIED", envelope(t, w.Body.Bytes())["error.code"])
	})
	t.Run("FallbackHeaderReissuesCookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/coupons/validate", strings.NewReader(`{"code":"save10","subtotal":"25.00"}`))
		req.Header.Set(HeaderSessionID, "user-sid")
		w := httptest.NewRecorder()
		e.mux.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "sid", cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		_, ok, err := e.sessions.Get(context.Background(), cookies[0].Value)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2.50", envelope(t, w.Body.Bytes())["data.discount"])
	})
}

func TestInternalErrorIsGeneric(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/coupons/validate", "user-sid", `{"code":"BROKEN","subtotal":10}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "INTERNAL_ERROR", body["error.code"])
	assert.Equal(t, "internal server error", body["error.message"])
}

func TestCreatePayment(t *testing.T) {
	e := newEnv(t)

	e.payments.created = true
	w := e.do(http.MethodPost, "/api/payments", "user-sid", `{"orderId":11,"paymentMethod":"paypal"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "initiated", body["data.payment.payment_status"])
	assert.Equal(t, "25.00", body["data.payment.payment_price"])
	assert.Equal(t, "true", body["data.created"])
	assert.Equal(t, "Payment created", body["message"])

	e.payments.created = false
	w = e.do(http.MethodPost, "/api/payments", "user-sid", `{"orderId":11,"paymentMethod":"paypal"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "false", envelope(t, w.Body.Bytes())["data.created"])
}

func TestUpdatePaymentStatus(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPut, "/api/admin/payments/3/status", "admin-sid", `{"payment_status":"captured"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "captured", e.payments.status)
	assert.Equal(t, "captured", envelope(t, w.Body.Bytes())["data.payment.payment_status"])

	w = e.do(http.MethodPut, "/api/admin/payments/3/status", "admin-sid", `{"payment_status":"bogus"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPut, "/api/admin/payments/abc/status", "admin-sid", `{"payment_status":"captured"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPagination(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/admin/payments?limit=500&offset=20&sortBy=payment_price&order=asc&status=captured", "admin-sid", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, e.payments.reqs, 1)
	assert.Equal(t, page.Request{Limit: 500, Offset: 20, SortBy: "payment_price", Desc: false}, e.payments.reqs[0])
	assert.Equal(t, "captured", e.payments.statuses[0])

	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "100", body["data.limit"])
	assert.Equal(t, "0", body["data.count"])

	for _, q := range []string{"limit=-1", "offset=x", "order=sideways"} {
		w := e.do(http.MethodGet, "/api/admin/payments?"+q, "admin-sid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestLoginAndLogout(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/login", "", `{"email":"neo@example.com","password":"secret123"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "new-session", body["data.sessionId"])
	assert.Equal(t, "neo", body["data.user.username"])
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, "new-session", w.Result().Cookies()[0].Value)

	w = e.do(http.MethodPost, "/api/auth/login", "", `{"email":"neo@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/api/auth/logout", "user-sid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"user-sid"}, e.accounts.loggedOut)
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, -1, w.Result().Cookies()[0].MaxAge)
}

func TestLoginLimit(t *testing.T) {
	mux := http.NewServeMux()
	calls := 0
	New(Config{
		LoginLimit: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(http.StatusTooManyRequests)
			})
		},
	}, Services{Accounts: &stubAccounts{}}).Register(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/admin/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 1, calls)
}

func TestSingleObject(t *testing.T) {
	raw, err := singleObject([]byte("\n {\"a\":1}\r\n\t "))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	for _, in := range []string{``, `   `, `null`, `"x"`, `{"a":1}}`, `{"a":1},`, `{"a":1} 2`} {
		_, err := singleObject([]byte(in))
		assert.ErrorIs(t, err, errMalformedBody, "%q", in)
	}
}

func TestChangePasswordKeepsCallerSession(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/api/auth/change-password", "user-sid",
		`{"currentPassword":"secret123","newPassword":"n3w-secret"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"user-sid"}, e.accounts.kept)

	// A header resume keeps the freshly minted session, not the header one.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/change-password",
		strings.NewReader(`{"currentPassword":"secret123","newPassword":"n3w-secret"}`))
	req.Header.Set(HeaderSessionID, "user-sid")
	w = httptest.NewRecorder()
	e.mux.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, w.Result().Cookies(), 1)
	assert.Equal(t, w.Result().Cookies()[0].Value, e.accounts.kept[1])
	assert.NotEqual(t, "user-sid", e.accounts.kept[1])

	w = e.do(http.MethodPost, "/api/auth/change-password", "user-sid",
		`{"currentPassword":"wrong","newPassword":"n3w-secret"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGamesFilters(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/games?genre=Indie&category=Single-player&discounted=true&limit=5", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, e.catalog.filters, 1)
	assert.Equal(t, catalog.Filter{Genre: "Indie", Category: "Single-player", Discounted: true}, e.catalog.filters[0])
	assert.Equal(t, 5, e.catalog.reqs[0].Limit)

	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "Hollow Knight", body["data.games.0.name"])
	assert.Equal(t, "Indie", body["data.games.0.genres.1"])
	assert.Equal(t, "1", body["data.total"])

	w = e.do(http.MethodGet, "/api/games", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, catalog.Filter{}, e.catalog.filters[1])

	w = e.do(http.MethodGet, "/api/games?discounted=maybe", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, e.catalog.filters, 2)
}

func TestListGenres(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodGet, "/api/genres", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "2", body["data.count"])
	assert.Equal(t, "Action", body["data.genres.0.name"])
	assert.Equal(t, "2", body["data.genres.1.id"])
}

func TestRecentOrders(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/admin/orders/recent", "user-sid", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, e.orders.reqs)

	w = e.do(http.MethodGet, "/api/admin/orders/recent", "admin-sid", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, e.orders.reqs, 1)
	assert.Equal(t, order.Filter{}, e.orders.filters[0])
	assert.Equal(t, page.Request{Limit: 10, SortBy: "createdAt", Desc: true}, e.orders.reqs[0])

	body := envelope(t, w.Body.Bytes())
	assert.Equal(t, "5", body["data.orders.0.id"])
	assert.Equal(t, "1", body["data.count"])

	w = e.do(http.MethodGet, "/api/admin/orders/recent?limit=500&sortBy=total&order=asc", "admin-sid", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, page.Request{Limit: page.MaxLimit, SortBy: "createdAt", Desc: true}, e.orders.reqs[1])

	for _, q := range []string{"limit=0", "limit=-3", "limit=ten"} {
		w := e.do(http.MethodGet, "/api/admin/orders/recent?"+q, "admin-sid", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}
