package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/gamestore/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		cfg         importConfig
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&cfg.capacity, "bloom-capacity", 1_000_000, "expected codes per batch file")
	flag.Float64Var(&cfg.fpr, "bloom-fpr", 0.001, "bloom filter false positive rate")
	flag.IntVar(&cfg.batchSize, "batch-size", 1000, "coupons per database batch")
	flag.Usage = func() {
		_, _ = os.Stderr.WriteString("usage: coupon-import [flags] batch1.csv.gz [batch2.csv.gz ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, files, cfg); err != nil {
		slog.Error("coupon import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("coupon import completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string, cfg importConfig) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	slog.Info("connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	st, err := importCoupons(ctx, files, postgres.NewCouponRepository(pool), cfg)
	if err != nil {
		return err
	}
	slog.Info("import summary",
		slog.Int("rows", st.rows),
		slog.Int("invalid", st.invalid),
		slog.Int("conflicting", st.conflicting),
		slog.Int("written", st.written),
	)
	return nil
}
