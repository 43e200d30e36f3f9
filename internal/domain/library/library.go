// Package library grants purchased titles into a user's permanent collection.
package library

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/gamestore/internal/domain/page"
)

// Entry is proof that a user owns a title.
type Entry struct {
	UserID  int64
	AppID   int64
	Name    string
	OrderID *int64
	AddedAt time.Time
}

// Granter inserts a library entry if the (user, title) pair is absent. It
// reports whether a row was inserted; an existing entry is not an error.
// Implementations run on the caller's transaction and never commit.
type Granter interface {
	Grant(ctx context.Context, userID, appID int64, orderID *int64) (bool, error)
}

// Grant grants every title in appIDs to the user on behalf of orderID and
// returns the number of entries that were actually inserted.
func Grant(ctx context.Context, g Granter, userID, orderID int64, appIDs []int64) (int, error) {
	inserted := 0
	for _, appID := range appIDs {
		ok, err := g.Grant(ctx, userID, appID, &orderID)
		if err != nil {
			return inserted, errors.Wrapf(err, "grant app %d", appID)
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

// Repository reads library entries.
type Repository interface {
	List(ctx context.Context, userID int64, req page.Request) ([]Entry, int, error)
	// Owned returns the subset of appIDs the user already owns.
	Owned(ctx context.Context, userID int64, appIDs []int64) ([]int64, error)
}

// Service lists a user's library.
type Service struct {
	repo Repository
}

// NewService creates a library Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of the user's library entries, newest first by default.
func (s *Service) List(ctx context.Context, userID int64, req page.Request) ([]Entry, int, error) {
	entries, total, err := s.repo.List(ctx, userID, req.Normalize())
	if err != nil {
		return nil, 0, errors.Wrap(err, "list library")
	}
	return entries, total, nil
}
