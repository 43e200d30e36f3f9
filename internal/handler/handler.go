// Package handler exposes the storefront over HTTP/JSON.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/domain/admin"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/billing"
	"github.com/xenking/gamestore/internal/domain/cart"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/page"
	"github.com/xenking/gamestore/internal/domain/payment"
	"github.com/xenking/gamestore/internal/domain/wishlist"
	"github.com/xenking/gamestore/pkg/httpmiddleware"
)

// Gate authorizes a request's session credentials.
type Gate interface {
	Authorize(ctx context.Context, creds auth.Credentials, required auth.Role) (auth.Resolution, error)
}

// Accounts is the subset of auth.Service used by the handlers.
type Accounts interface {
	Register(ctx context.Context, req auth.RegisterRequest) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, *auth.User, error)
	AdminLogin(ctx context.Context, email, password string) (*auth.Session, *auth.User, error)
	Logout(ctx context.Context, sessionID string) error
	Me(ctx context.Context, p auth.Principal) (*auth.User, error)
	ChangePassword(ctx context.Context, p auth.Principal, sessionID, current, next string) error
}

// Catalog serves game listings, the genre and category taxonomy and admin
// price management.
type Catalog interface {
	List(ctx context.Context, f catalog.Filter, req page.Request) ([]catalog.Game, int, error)
	Genres(ctx context.Context) ([]catalog.Tag, error)
	Categories(ctx context.Context) ([]catalog.Tag, error)
	Get(ctx context.Context, appID int64) (*catalog.Game, error)
	Create(ctx context.Context, g catalog.Game) (*catalog.Game, error)
	UpdatePrice(ctx context.Context, appID int64, priceFinal decimal.Decimal, discountPercent int) (*catalog.Game, error)
}

// Carts manages shopping carts.
type Carts interface {
	Get(ctx context.Context, userID int64) (*cart.Cart, error)
	Add(ctx context.Context, userID, appID int64) (*cart.Cart, error)
	Remove(ctx context.Context, userID, appID int64) (*cart.Cart, error)
}

// Wishlists manages wishlists.
type Wishlists interface {
	List(ctx context.Context, userID int64) ([]wishlist.Item, error)
	Add(ctx context.Context, userID, appID int64) ([]wishlist.Item, error)
	Remove(ctx context.Context, userID, appID int64) ([]wishlist.Item, error)
}

// Addresses manages billing addresses.
type Addresses interface {
	Create(ctx context.Context, userID int64, a billing.Address) (*billing.Address, error)
	List(ctx context.Context, userID int64) ([]billing.Address, error)
}

// CouponEvaluator previews a coupon for a subtotal.
type CouponEvaluator interface {
	Validate(ctx context.Context, code string, userID int64, subtotal decimal.Decimal) (coupon.Evaluation, error)
}

// Coupons administers coupon definitions.
type Coupons interface {
	Create(ctx context.Context, req coupon.CreateRequest) (*coupon.Coupon, error)
	List(ctx context.Context, req page.Request) ([]coupon.Coupon, int, error)
}

// Orders places and reads orders.
type Orders interface {
	CreateOrder(ctx context.Context, p auth.Principal, req order.CreateRequest) (*order.Order, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*order.Order, error)
	ListMine(ctx context.Context, p auth.Principal, req page.Request) ([]order.Order, int, error)
	List(ctx context.Context, p auth.Principal, f order.Filter, req page.Request) ([]order.Order, int, error)
}

// Payments is the payment ledger.
type Payments interface {
	CreatePayment(ctx context.Context, p auth.Principal, req payment.CreateRequest) (*payment.CreateResult, error)
	UpdateStatus(ctx context.Context, p auth.Principal, paymentID int64, status string) (*payment.Payment, error)
	Get(ctx context.Context, p auth.Principal, id int64) (*payment.Summary, error)
	List(ctx context.Context, p auth.Principal, status string, req page.Request) ([]payment.Summary, int, error)
	ListPending(ctx context.Context, p auth.Principal, req page.Request) ([]payment.Summary, int, error)
	Methods(ctx context.Context) ([]payment.Method, error)
}

// Library lists owned titles.
type Library interface {
	List(ctx context.Context, userID int64, req page.Request) ([]library.Entry, int, error)
}

// Admin serves back office reads.
type Admin interface {
	Stats(ctx context.Context, p auth.Principal) (*admin.Stats, error)
	ListUsers(ctx context.Context, p auth.Principal, req page.Request) ([]auth.User, int, error)
}

// Services groups the domain collaborators of Handler.
type Services struct {
	Gate      Gate
	Accounts  Accounts
	Catalog   Catalog
	Carts     Carts
	Wishlists Wishlists
	Addresses Addresses
	Evaluator CouponEvaluator
	Coupons   Coupons
	Orders    Orders
	Payments  Payments
	Library   Library
	Admin     Admin
}

// Config holds session cookie settings.
type Config struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	// LoginLimit wraps the login endpoints when set.
	LoginLimit httpmiddleware.Middleware
}

// Handler serves the storefront API.
type Handler struct {
	cfg Config
	Services
}

// New creates a Handler.
func New(cfg Config, s Services) *Handler {
	if cfg.CookieName == "" {
		cfg.CookieName = "sid"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &Handler{cfg: cfg, Services: s}
}

// Register mounts every API route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	limited := func(fn http.HandlerFunc) http.Handler {
		if h.cfg.LoginLimit == nil {
			return fn
		}
		return h.cfg.LoginLimit(fn)
	}
	user := func(fn principalHandler) http.HandlerFunc { return h.authed("", fn) }
	adm := func(fn principalHandler) http.HandlerFunc { return h.authed(auth.RoleAdmin, fn) }

	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.Handle("POST /api/auth/login", limited(h.login))
	mux.HandleFunc("POST /api/auth/logout", user(h.logout))
	mux.HandleFunc("GET /api/auth/me", user(h.me))
	mux.HandleFunc("POST /api/auth/change-password", user(h.changePassword))
	mux.Handle("POST /api/admin/login", limited(h.adminLogin))

	mux.HandleFunc("GET /api/games", h.listGames)
	mux.HandleFunc("GET /api/games/{id}", h.getGame)
	mux.HandleFunc("GET /api/genres", h.listGenres)
	mux.HandleFunc("GET /api/categories", h.listCategories)

	mux.HandleFunc("GET /api/cart", user(h.getCart))
	mux.HandleFunc("POST /api/cart", user(h.addToCart))
	mux.HandleFunc("DELETE /api/cart/{appId}", user(h.removeFromCart))
	mux.HandleFunc("GET /api/wishlist", user(h.getWishlist))
	mux.HandleFunc("POST /api/wishlist", user(h.addToWishlist))
	mux.HandleFunc("DELETE /api/wishlist/{appId}", user(h.removeFromWishlist))
	mux.HandleFunc("GET /api/billing-addresses", user(h.listAddresses))
	mux.HandleFunc("POST /api/billing-addresses", user(h.createAddress))

	mux.HandleFunc("POST /api/coupons/validate", user(h.validateCoupon))
	mux.HandleFunc("POST /api/orders", user(h.checkout))
	mux.HandleFunc("GET /api/orders", user(h.listMyOrders))
	mux.HandleFunc("GET /api/orders/{id}", user(h.getOrder))
	mux.HandleFunc("GET /api/payments/methods", h.listPaymentMethods)
	mux.HandleFunc("POST /api/payments", user(h.createPayment))
	mux.HandleFunc("GET /api/library", user(h.getLibrary))

	mux.HandleFunc("GET /api/admin/stats", adm(h.stats))
	mux.HandleFunc("GET /api/admin/orders", adm(h.adminOrders))
	mux.HandleFunc("GET /api/admin/orders/recent", adm(h.recentOrders))
	mux.HandleFunc("GET /api/admin/users", adm(h.adminUsers))
	mux.HandleFunc("GET /api/admin/games", adm(h.adminGames))
	mux.HandleFunc("POST /api/admin/games", adm(h.createGame))
	mux.HandleFunc("PUT /api/admin/games/{id}/price", adm(h.updateGamePrice))
	mux.HandleFunc("GET /api/admin/payments", adm(h.adminPayments))
	mux.HandleFunc("GET /api/admin/payments/pending", adm(h.pendingPayments))
	mux.HandleFunc("GET /api/admin/payments/{id}", adm(h.adminPayment))
	mux.HandleFunc("PUT /api/admin/payments/{id}/status", adm(h.updatePaymentStatus))
	mux.HandleFunc("GET /api/admin/coupons", adm(h.adminCoupons))
	mux.HandleFunc("POST /api/admin/coupons", adm(h.createCoupon))
}
