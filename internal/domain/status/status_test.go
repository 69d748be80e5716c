package status

import (
	"context"
	"testing"

	domainErrors "github.com/cassiomorais/checkout/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRegistry struct {
	calls int
}

func (c *countingRegistry) FindByName(_ context.Context, name Name) (Status, error) {
	c.calls++
	for i, n := range Names {
		if n == name {
			return Status{ID: i + 1, Name: n}, nil
		}
	}
	return Status{}, domainErrors.ErrStatusNotFound
}

func TestName_IsTerminal(t *testing.T) {
	assert.False(t, Pending.IsTerminal())
	for _, n := range []Name{Approved, Declined, Voided, Error} {
		assert.True(t, n.IsTerminal(), string(n))
	}
}

func TestName_Valid(t *testing.T) {
	assert.True(t, Voided.Valid())
	assert.False(t, Name("REFUNDED").Valid())
}

func TestCachedRegistry_FindByName(t *testing.T) {
	ctx := context.Background()
	backing := &countingRegistry{}
	reg := NewCachedRegistry(backing)

	s, err := reg.FindByName(ctx, Pending)
	require.NoError(t, err)
	assert.Equal(t, Status{ID: 1, Name: Pending}, s)

	_, err = reg.FindByName(ctx, Pending)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.calls)

	_, err = reg.FindByName(ctx, "UNKNOWN")
	assert.ErrorIs(t, err, domainErrors.ErrStatusNotFound)
	_, _ = reg.FindByName(ctx, "UNKNOWN")
	assert.Equal(t, 3, backing.calls, "misses are not cached")
}
