// Package billing stores the addresses users may attach to orders.
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/gamestore/internal/apperr"
)

// Address is a billing address owned by one user.
type Address struct {
	ID         int64
	UserID     int64
	FullName   string
	Line1      string
	Line2      string
	City       string
	PostalCode string
	Country    string
	CreatedAt  time.Time
}

// Repository persists billing addresses.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	ListByUser(ctx context.Context, userID int64) ([]Address, error)
	BelongsTo(ctx context.Context, addressID, userID int64) (bool, error)
}

// Service manages billing addresses.
type Service struct {
	repo Repository
}

// NewService creates a billing Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores an address for the user.
func (s *Service) Create(ctx context.Context, userID int64, a Address) (*Address, error) {
	a.UserID = userID
	a.FullName = strings.TrimSpace(a.FullName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.Line2 = strings.TrimSpace(a.Line2)
	a.City = strings.TrimSpace(a.City)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))

	for field, v := range map[string]string{
		"fullName":   a.FullName,
		"line1":      a.Line1,
		"city":       a.City,
		"postalCode": a.PostalCode,
	} {
		if v == "" {
			return nil, apperr.Newf(apperr.Validation, "%s is required", field)
		}
	}
	if len(a.Country) != 2 {
		return nil, apperr.New(apperr.Validation, "country must be a 2-letter code")
	}

	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, errors.Wrap(err, "create billing address")
	}
	return &a, nil
}

// List returns the user's addresses.
func (s *Service) List(ctx context.Context, userID int64) ([]Address, error) {
	out, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list billing addresses")
	}
	return out, nil
}
