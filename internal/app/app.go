// Package app wires storage, domain services and the HTTP surface into the
// API server.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/gamestore/internal/domain/admin"
	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/billing"
	"github.com/xenking/gamestore/internal/domain/cart"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/domain/library"
	"github.com/xenking/gamestore/internal/domain/order"
	"github.com/xenking/gamestore/internal/domain/payment"
	"github.com/xenking/gamestore/internal/domain/wishlist"
	"github.com/xenking/gamestore/internal/handler"
	"github.com/xenking/gamestore/internal/storage/postgres"
	"github.com/xenking/gamestore/internal/storage/redis"
	"github.com/xenking/gamestore/pkg/health"
	"github.com/xenking/gamestore/pkg/httpmiddleware"
)

const serviceName = "gamestore-api"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	rdb, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	defer func() { _ = rdb.Close() }()

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 2*time.Second, health.PingCheck(pool))
	healthSvc.AddReadinessCheck("redis", 2*time.Second, health.CmdCheck(func(ctx context.Context) health.StatusCmd {
		return rdb.Ping(ctx)
	}))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	users := postgres.NewUserRepository(pool)
	games := postgres.NewGameRepository(pool)
	coupons := postgres.NewCouponRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	payments := postgres.NewPaymentRepository(pool)
	libraryRepo := postgres.NewLibraryRepository(pool)
	carts := postgres.NewCartRepository(pool)
	wishlists := postgres.NewWishlistRepository(pool)
	addresses := postgres.NewBillingRepository(pool)
	stats := postgres.NewStatsRepository(pool)
	sessions := redis.NewSessionStore(rdb, cfg.Session.KeyPrefix, cfg.Session.TTL)
	loginLimiter, err := redis.NewFixedWindowLimiter(rdb, "gamestore:login", cfg.LoginLimit.Max, cfg.LoginLimit.Window)
	if err != nil {
		return errors.Wrap(err, "create login limiter")
	}

	// Domain services.
	evaluator := coupon.NewEvaluator(coupons, coupons)
	ledger := payment.NewLedger(
		postgres.NewPaymentTxManager(pool),
		payments,
		payment.WithMeter(m.MeterProvider().Meter(serviceName)),
		payment.WithTracer(m.TracerProvider().Tracer(serviceName)),
	)
	h := handler.New(handler.Config{
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		SessionTTL:   cfg.Session.TTL,
		LoginLimit: httpmiddleware.RateLimit(httpmiddleware.RateLimitConfig{
			Limiter: loginLimiter,
			Window:  cfg.LoginLimit.Window,
		}),
	}, handler.Services{
		Gate:      auth.NewGate(sessions),
		Accounts:  auth.NewService(users, sessions, auth.NewBcryptHasher(cfg.BcryptCost)),
		Catalog:   catalog.NewService(games),
		Carts:     cart.NewService(carts, games, libraryRepo),
		Wishlists: wishlist.NewService(wishlists, games),
		Addresses: billing.NewService(addresses),
		Evaluator: evaluator,
		Coupons:   coupon.NewService(coupons),
		Orders:    order.NewService(games, evaluator, libraryRepo, addresses, orders, postgres.NewOrderTxManager(pool)),
		Payments:  ledger,
		Library:   library.NewService(libraryRepo),
		Admin:     admin.NewService(stats, users),
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", handler.HeaderSessionID, httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
			httpmiddleware.Labeler(),
		),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
