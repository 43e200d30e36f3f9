package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/apperr"
)

type memRepo struct {
	rows []Address
}

func (m *memRepo) Create(_ context.Context, a *Address) error {
	a.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memRepo) ListByUser(_ context.Context, userID int64) ([]Address, error) {
	var out []Address
	for _, a := range m.rows {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memRepo) BelongsTo(_ context.Context, id, userID int64) (bool, error) {
	for _, a := range m.rows {
		if a.ID == id {
			return a.UserID == userID, nil
		}
	}
	return false, nil
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	repo := &memRepo{}
	svc := NewService(repo)

	a, err := svc.Create(ctx, 1, Address{
		FullName: " Ada Lovelace ", Line1: "1 Main St", City: "London", PostalCode: "N1", Country: "gb",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", a.FullName)
	assert.Equal(t, "GB", a.Country)
	assert.Equal(t, int64(1), a.UserID)

	_, err = svc.Create(ctx, 1, Address{FullName: "x", Line1: "y", City: "z", PostalCode: "1", Country: "GBR"})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	_, err = svc.Create(ctx, 1, Address{Line1: "y", City: "z", PostalCode: "1", Country: "GB"})
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}
