// Package admin serves the back office: simple counts and user listings.
package admin

import (
	"context"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/gamestore/internal/domain/auth"
	"github.com/xenking/gamestore/internal/domain/page"
)

// Table names a countable entity.
type Table string

const (
	TableUsers    Table = "users"
	TableGames    Table = "games"
	TableOrders   Table = "orders"
	TablePayments Table = "payments"
	TableLibrary  Table = "library"
)

// Stats are dashboard counters.
type Stats struct {
	Users           int
	Games           int
	Orders          int
	PaidOrders      int
	PendingPayments int
	LibraryEntries  int
}

// Counter counts rows, optionally restricted to one status value.
type Counter interface {
	Count(ctx context.Context, t Table, status string) (int, error)
}

// Users lists accounts.
type Users interface {
	List(ctx context.Context, req page.Request) ([]auth.User, int, error)
}

// Service implements admin reads. Every method requires an admin principal.
type Service struct {
	counter Counter
	users   Users
}

// NewService creates an admin Service.
func NewService(counter Counter, users Users) *Service {
	return &Service{counter: counter, users: users}
}

// Stats runs the dashboard counts concurrently.
func (s *Service) Stats(ctx context.Context, p auth.Principal) (*Stats, error) {
	if !p.IsAdmin() {
		return nil, auth.ErrAccessDenied
	}

	var st Stats
	counts := []struct {
		dst    *int
		table  Table
		status string
	}{
		{&st.Users, TableUsers, ""},
		{&st.Games, TableGames, ""},
		{&st.Orders, TableOrders, ""},
		{&st.PaidOrders, TableOrders, "paid"},
		{&st.PendingPayments, TablePayments, "initiated"},
		{&st.LibraryEntries, TableLibrary, ""},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		g.Go(func() error {
			n, err := s.counter.Count(gctx, c.table, c.status)
			if err != nil {
				return errors.Wrapf(err, "count %s", c.table)
			}
			*c.dst = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &st, nil
}

// ListUsers returns a page of accounts.
func (s *Service) ListUsers(ctx context.Context, p auth.Principal, req page.Request) ([]auth.User, int, error) {
	if !p.IsAdmin() {
		return nil, 0, auth.ErrAccessDenied
	}
	users, total, err := s.users.List(ctx, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	return users, total, nil
}
