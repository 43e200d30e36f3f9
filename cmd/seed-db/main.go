package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/catalog"
	"github.com/xenking/gamestore/internal/domain/coupon"
	"github.com/xenking/gamestore/internal/storage/postgres"
)

type gameJSON struct {
	AppID           int64           `json:"app_id"`
	Name            string          `json:"name"`
	PriceFinal      decimal.Decimal `json:"price_final"`
	PriceOrg        decimal.Decimal `json:"price_org"`
	DiscountPercent int             `json:"discount_percent"`
	Currency        string          `json:"price_currency"`
	Genres          []string        `json:"genres"`
	Categories      []string        `json:"categories"`
}

var paymentMethods = []string{"Credit Card", "PayPal", "Bank Transfer"}

var demoCoupons = []coupon.Coupon{
	{Code: "SAVE10", DiscountType: coupon.DiscountPercentage, Value: decimal.NewFromInt(10)},
	{Code: "FIVEOFF", DiscountType: coupon.DiscountFixedAmount, Value: decimal.NewFromInt(5)},
}

type options struct {
	databaseURL   string
	gamesFile     string
	adminEmail    string
	adminPassword string
	bcryptCost    int
}

func main() {
	var opts options
	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.gamesFile, "games-file", "db/seed/games.json", "path to games JSON file")
	flag.StringVar(&opts.adminEmail, "admin-email", "admin@gamestore.local", "admin account email")
	flag.StringVar(&opts.adminPassword, "admin-password", "", "admin account password (or GAMESTORE_ADMIN_PASSWORD env)")
	flag.IntVar(&opts.bcryptCost, "bcrypt-cost", 12, "bcrypt cost for the admin password")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if opts.adminPassword == "" {
		opts.adminPassword = os.Getenv("GAMESTORE_ADMIN_PASSWORD")
	}
	if opts.adminPassword == "" {
		slog.Error("admin password is required: set --admin-password or GAMESTORE_ADMIN_PASSWORD")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedGames(ctx, postgres.NewGameRepository(pool), opts.gamesFile); err != nil {
		return errors.Wrap(err, "seed games")
	}

	payments := postgres.NewPaymentRepository(pool)
	for _, name := range paymentMethods {
		if err := payments.UpsertMethod(ctx, name); err != nil {
			return errors.Wrapf(err, "upsert payment method %s", name)
		}
	}
	slog.Info("upserted payment methods", slog.Int("count", len(paymentMethods)))

	n, err := postgres.NewCouponRepository(pool).UpsertBatch(ctx, demoCoupons)
	if err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	slog.Info("upserted coupons", slog.Int("count", n))

	if err := seedAdmin(ctx, postgres.NewUserRepository(pool), opts); err != nil {
		return errors.Wrap(err, "seed admin")
	}
	return nil
}

func seedGames(ctx context.Context, repo *postgres.GameRepository, path string) error {
	slog.Info("reading games file", slog.String("path", path))
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read games file")
	}
	var games []gameJSON
	if err := json.Unmarshal(data, &games); err != nil {
		return errors.Wrap(err, "parse games JSON")
	}

	for _, g := range games {
		game := &catalog.Game{
			AppID:           g.AppID,
			Name:            g.Name,
			PriceFinal:      g.PriceFinal,
			PriceOrg:        g.PriceOrg,
			DiscountPercent: g.DiscountPercent,
			Currency:        g.Currency,
			Genres:          catalog.NormalizeTags(g.Genres),
			Categories:      catalog.NormalizeTags(g.Categories),
		}
		if err := repo.Upsert(ctx, game); err != nil {
			return errors.Wrapf(err, "upsert game %d", g.AppID)
		}
	}
	slog.Info("upserted games", slog.Int("count", len(games)))
	return nil
}

func seedAdmin(ctx context.Context, repo *postgres.UserRepository, opts options) error {
	if err := auth.ValidatePassword(opts.adminPassword); err != nil {
		return err
	}
	hash, err := auth.NewBcryptHasher(opts.bcryptCost).Hash(opts.adminPassword)
	if err != nil {
		return errors.Wrap(err, "hash admin password")
	}
	u := &auth.User{
		Email:        opts.adminEmail,
		Username:     "admin",
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
		DisplayName:  "Administrator",
	}
	if err := repo.Upsert(ctx, u); err != nil {
		return err
	}
	slog.Info("upserted admin", slog.String("email", u.Email), slog.Int64("id", u.ID))
	return nil
}
