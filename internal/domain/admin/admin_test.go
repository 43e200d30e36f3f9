package admin

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/page"
)

type mapCounter struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
	calls  int
}

func (m *mapCounter) Count(_ context.Context, t Table, status string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.counts[string(t)+"/"+status], nil
}

type noUsers struct{}

func (noUsers) List(context.Context, page.Request) ([]auth.User, int, error) {
	return nil, 0, nil
}

var root = auth.Principal{UserID: 1, Role: auth.RoleAdmin}

func TestStats(t *testing.T) {
	c := &mapCounter{counts: map[string]int{
		"users/":             3,
		"games/":             6,
		"orders/":            4,
		"orders/paid":        2,
		"payments/initiated": 1,
		"library/":           5,
	}}
	st, err := NewService(c, noUsers{}).Stats(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 3, Games: 6, Orders: 4, PaidOrders: 2, PendingPayments: 1, LibraryEntries: 5}, *st)
	assert.Equal(t, 6, c.calls)
}

func TestStats_Errors(t *testing.T) {
	svc := NewService(&mapCounter{err: errors.New("timeout")}, noUsers{})
	_, err := svc.Stats(context.Background(), root)
	require.Error(t, err)

	_, err = svc.Stats(context.Background(), auth.Principal{UserID: 2, Role: auth.RoleUser})
	require.ErrorIs(t, err, auth.ErrAccessDenied)

	_, _, err = svc.ListUsers(context.Background(), auth.Principal{UserID: 2, Role: auth.RoleUser}, page.Request{})
	require.ErrorIs(t, err, auth.ErrAccessDenied)
}
