package main

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/domain/coupon"
)

type captureUpserter struct {
	batches [][]coupon.Coupon
}

func (c *captureUpserter) UpsertBatch(_ context.Context, coupons []coupon.Coupon) (int, error) {
	c.batches = append(c.batches, append([]coupon.Coupon(nil), coupons...))
	return len(coupons), nil
}

func (c *captureUpserter) codes() []string {
	var out []string
	for _, b := range c.batches {
		for _, cp := range b {
			out = append(out, cp.Code)
		}
	}
	sort.Strings(out)
	return out
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestImportCoupons(t *testing.T) {
	dir := t.TempDir()
	a := writeGz(t, dir, "a.csv.gz",
		"code,discount_type,value",
		"SAVE10,percentage,10",
		"shared,fixed_amount,5",
		"BROKEN,percentage,150",
	)
	b := writeGz(t, dir, "b.csv.gz",
		"FIVEOFF,fixed_amount,5.00",
		"SHARED,percentage,20",
		"NOVALUE,percentage",
	)
	c := writeGz(t, dir, "c.csv.gz",
		"SOLO,percentage,15",
	)

	dst := &captureUpserter{}
	st, err := importCoupons(context.Background(), []string{a, b, c}, dst, importConfig{
		capacity:  1000,
		fpr:       0.001,
		batchSize: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"FIVEOFF", "SAVE10", "SOLO"}, dst.codes())
	assert.Equal(t, 3, st.written)
	assert.Equal(t, 2, st.conflicting)
	assert.Equal(t, 3, st.invalid, "header, out-of-range value and short row")
	for _, batch := range dst.batches {
		assert.LessOrEqual(t, len(batch), 2)
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name string
		rec  []string
		ok   bool
	}{
		{"Percentage", []string{"save5", "percentage", "5"}, true},
		{"FixedUpper", []string{"OFF", "FIXED_AMOUNT", "2.50"}, true},
		{"UnknownType", []string{"X", "bogo", "1"}, false},
		{"BadValue", []string{"X", "percentage", "ten"}, false},
		{"ZeroValue", []string{"X", "fixed_amount", "0"}, false},
		{"EmptyCode", []string{"  ", "percentage", "5"}, false},
		{"ExtraField", []string{"X", "percentage", "5", "extra"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := parseRow(tt.rec)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, coupon.NormalizeCode(tt.rec[0]), c.Code)
			}
		})
	}
}

func TestImportCoupons_MissingFile(t *testing.T) {
	_, err := importCoupons(context.Background(), []string{filepath.Join(t.TempDir(), "nope.gz")}, &captureUpserter{}, importConfig{capacity: 10, fpr: 0.01})
	require.Error(t, err)
}
