package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/apperr"
	"github.com/xenking/gamestore/internal/domain/page"
)

type mockRepo struct {
	games      map[int64]*Game
	lastReq    page.Request
	lastFilter Filter
}

func (m *mockRepo) List(_ context.Context, f Filter, req page.Request) ([]Game, int, error) {
	m.lastReq = req
	m.lastFilter = f
	out := make([]Game, 0, len(m.games))
	for _, g := range m.games {
		out = append(out, *g)
	}
	return out, len(out), nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Game, error) {
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []int64) ([]Game, error) {
	var out []Game
	for _, id := range ids {
		if g, ok := m.games[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockRepo) Create(_ context.Context, g *Game) error {
	if _, ok := m.games[g.AppID]; ok {
		return ErrExists
	}
	m.games[g.AppID] = g
	return nil
}

func (m *mockRepo) UpdatePrice(_ context.Context, id int64, price decimal.Decimal, pct int) (*Game, error) {
	g, ok := m.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	g.PriceFinal = price
	g.DiscountPercent = pct
	return g, nil
}

func (m *mockRepo) Genres(context.Context) ([]Tag, error) {
	return []Tag{{ID: 1, Name: "Action"}}, nil
}

func (m *mockRepo) Categories(context.Context) ([]Tag, error) {
	return []Tag{{ID: 1, Name: "Single-player"}}, nil
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{games: map[int64]*Game{}}
	svc := NewService(repo)

	g, err := svc.Create(ctx, Game{AppID: 10, Name: " Portal ", PriceFinal: decimal.RequireFromString("9.999")})
	require.NoError(t, err)
	assert.Equal(t, "Portal", g.Name)
	assert.Equal(t, "USD", g.Currency)
	assert.Equal(t, "10.00", g.PriceFinal.StringFixed(2))
	assert.True(t, g.PriceOrg.Equal(g.PriceFinal))

	_, err = svc.Create(ctx, Game{AppID: 10, Name: "Again", PriceFinal: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, ErrExists)

	for _, bad := range []Game{
		{AppID: 0, Name: "x"},
		{AppID: 1, Name: ""},
		{AppID: 1, Name: "x", PriceFinal: decimal.NewFromInt(-1)},
		{AppID: 1, Name: "x", DiscountPercent: 101},
		{AppID: 1, Name: "x", Currency: "EURO"},
	} {
		_, err := svc.Create(ctx, bad)
		assert.Equal(t, apperr.Validation, apperr.CodeOf(err), "%+v", bad)
	}
}

func TestService_UpdatePrice(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{games: map[int64]*Game{
		1: {AppID: 1, Name: "Half-Life", PriceFinal: decimal.NewFromInt(10)},
	}}
	svc := NewService(repo)

	g, err := svc.UpdatePrice(ctx, 1, decimal.RequireFromString("4.99"), 50)
	require.NoError(t, err)
	assert.Equal(t, "4.99", g.PriceFinal.StringFixed(2))
	assert.Equal(t, 50, g.DiscountPercent)

	_, err = svc.UpdatePrice(ctx, 2, decimal.NewFromInt(1), 0)
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}

func TestService_ListNormalizes(t *testing.T) {
	repo := &mockRepo{games: map[int64]*Game{}}
	_, _, err := NewService(repo).List(context.Background(), Filter{}, page.Request{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, page.MaxLimit, repo.lastReq.Limit)
	assert.Equal(t, 0, repo.lastReq.Offset)
}

func TestService_ListFilters(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepo{games: map[int64]*Game{}}
	svc := NewService(repo)

	_, _, err := svc.List(ctx, Filter{Genre: " Indie ", Category: "Co-op\t"}, page.Request{SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, Filter{Genre: "Indie", Category: "Co-op"}, repo.lastFilter)
	assert.Equal(t, "name", repo.lastReq.SortBy)

	_, _, err = svc.List(ctx, Filter{Discounted: true}, page.Request{})
	require.NoError(t, err)
	assert.Equal(t, "discount", repo.lastReq.SortBy)
	assert.True(t, repo.lastReq.Desc)

	_, _, err = svc.List(ctx, Filter{Discounted: true}, page.Request{SortBy: "price"})
	require.NoError(t, err)
	assert.Equal(t, "price", repo.lastReq.SortBy)
	assert.False(t, repo.lastReq.Desc)
}

func TestService_CreateNormalizesTags(t *testing.T) {
	repo := &mockRepo{games: map[int64]*Game{}}
	g, err := NewService(repo).Create(context.Background(), Game{
		AppID:      620,
		Name:       "Portal 2",
		PriceFinal: decimal.RequireFromString("9.99"),
		Genres:     []string{" Puzzle", "Action", "puzzle", ""},
		Categories: []string{"Co-op", "Single-player", "CO-OP "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Puzzle"}, g.Genres)
	assert.Equal(t, []string{"Co-op", "Single-player"}, g.Categories)
	assert.Equal(t, g.Genres, repo.games[620].Genres)
}

func TestNormalizeTags(t *testing.T) {
	for _, tt := range []struct {
		name string
		in   []string
		want []string
	}{
		{name: "nil", in: nil, want: []string{}},
		{name: "blank only", in: []string{" ", "\t"}, want: []string{}},
		{name: "first spelling wins", in: []string{"RPG", "rpg", "Rpg"}, want: []string{"RPG"}},
		{name: "sorted", in: []string{"Strategy", "Indie", "Action"}, want: []string{"Action", "Indie", "Strategy"}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestService_Taxonomy(t *testing.T) {
	svc := NewService(&mockRepo{games: map[int64]*Game{}})

	genres, err := svc.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Tag{{ID: 1, Name: "Action"}}, genres)

	categories, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Tag{{ID: 1, Name: "Single-player"}}, categories)
}
