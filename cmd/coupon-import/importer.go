package main

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/gamestore/internal/domain/coupon"
)

type importConfig struct {
	capacity  uint
	fpr       float64
	batchSize int
}

// upserter writes coupon definitions.
type upserter interface {
	UpsertBatch(ctx context.Context, coupons []coupon.Coupon) (int, error)
}

type stats struct {
	rows        int
	invalid     int
	conflicting int
	written     int
}

// importCoupons loads gzip CSV batches of "CODE,discount_type,value" rows.
// A code that appears in more than one batch is conflicting and skipped
// everywhere; malformed rows are skipped. Everything else is upserted.
func importCoupons(ctx context.Context, files []string, dst upserter, cfg importConfig) (stats, error) {
	if cfg.batchSize <= 0 {
		cfg.batchSize = 1000
	}

	slog.Info("pass 1: building bloom filters", slog.Int("files", len(files)))
	filters, err := buildFilters(ctx, files, cfg)
	if err != nil {
		return stats{}, errors.Wrap(err, "build bloom filters")
	}

	slog.Info("pass 2: confirming cross-batch duplicates")
	conflicts, err := findConflicts(ctx, files, filters)
	if err != nil {
		return stats{}, errors.Wrap(err, "find conflicts")
	}
	slog.Info("conflicting codes", slog.Int("count", len(conflicts)))

	slog.Info("pass 3: writing coupons")
	var (
		st    stats
		batch = make([]coupon.Coupon, 0, cfg.batchSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := dst.UpsertBatch(ctx, batch)
		st.written += n
		batch = batch[:0]
		return err
	}
	for _, path := range files {
		err := streamRows(ctx, path, func(rec []string) error {
			st.rows++
			c, ok := parseRow(rec)
			if !ok {
				st.invalid++
				return nil
			}
			if _, dup := conflicts[c.Code]; dup {
				st.conflicting++
				return nil
			}
			batch = append(batch, c)
			if len(batch) == cfg.batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return st, errors.Wrapf(err, "import %s", path)
		}
	}
	if err := flush(); err != nil {
		return st, errors.Wrap(err, "write coupons")
	}
	return st, nil
}

// buildFilters creates one bloom filter per file, concurrently.
func buildFilters(ctx context.Context, files []string, cfg importConfig) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(cfg.capacity, cfg.fpr)
			var n int
			err := streamRows(ctx, path, func(rec []string) error {
				if code, ok := rowCode(rec); ok {
					filter.AddString(code)
					n++
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "build filter for %s", path)
			}
			slog.Info("pass 1 complete", slog.String("file", path), slog.Int("codes", n))
			filters[i] = filter
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findConflicts re-reads every file and records, per file, the codes that
// another file's filter may contain. Merging those per-file bitmasks leaves
// the exact set of codes present in two or more files.
func findConflicts(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	candidates := make([]map[string]uint, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			found := make(map[string]uint)
			bit := uint(1) << uint(i)
			err := streamRows(ctx, path, func(rec []string) error {
				code, ok := rowCode(rec)
				if !ok {
					return nil
				}
				for j, f := range filters {
					if j != i && f.TestString(code) {
						found[code] |= bit
						break
					}
				}
				return nil
			})
			if err != nil {
				return errors.Wrapf(err, "scan %s", path)
			}
			candidates[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, found := range candidates {
		for code, mask := range found {
			merged[code] |= mask
		}
	}
	conflicts := make(map[string]struct{})
	for code, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			conflicts[code] = struct{}{}
		}
	}
	return conflicts, nil
}

func rowCode(rec []string) (string, bool) {
	if len(rec) == 0 {
		return "", false
	}
	code := coupon.NormalizeCode(rec[0])
	if code == "" || code == "CODE" {
		return "", false
	}
	return code, true
}

// parseRow converts a CSV record into a valid coupon definition.
func parseRow(rec []string) (coupon.Coupon, bool) {
	code, ok := rowCode(rec)
	if !ok || len(rec) != 3 {
		return coupon.Coupon{}, false
	}
	value, err := decimal.NewFromString(strings.TrimSpace(rec[2]))
	if err != nil {
		return coupon.Coupon{}, false
	}
	c := coupon.Coupon{
		Code:         code,
		DiscountType: coupon.DiscountType(strings.ToLower(strings.TrimSpace(rec[1]))),
		Value:        value,
	}
	if coupon.Check(&c) != nil {
		return coupon.Coupon{}, false
	}
	return c, true
}

// streamRows calls fn for each CSV record of a gzip-compressed file.
func streamRows(ctx context.Context, path string, fn func(rec []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	r := csv.NewReader(gz)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return errors.Wrapf(err, "read %s", path)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
