package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/gamestore/internal/apperr"
)

func TestTransition(t *testing.T) {
	all := []Status{StatusPending, StatusPaid, StatusCanceled, StatusFailed, StatusRefunded}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusPaid}:     true,
		{StatusPending, StatusFailed}:   true,
		{StatusPending, StatusCanceled}: true,
		{StatusPending, StatusRefunded}: true,
		{StatusPaid, StatusCanceled}:    true,
		{StatusPaid, StatusRefunded}:    true,
	}

	for _, from := range all {
		for _, to := range all {
			changed, err := Transition(from, to)
			switch {
			case from == to:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.False(t, changed)
			case allowed[[2]Status{from, to}]:
				require.NoError(t, err, "%s -> %s", from, to)
				assert.True(t, changed)
			default:
				assert.Equal(t, apperr.InvalidStatus, apperr.CodeOf(err), "%s -> %s", from, to)
			}
		}
	}
}

func TestNothingReturnsToPending(t *testing.T) {
	for _, from := range []Status{StatusPaid, StatusCanceled, StatusFailed, StatusRefunded} {
		assert.False(t, CanTransition(from, StatusPending))
	}
}
