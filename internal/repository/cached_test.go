package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

// flaky wraps a Memory repository and fails every call while down is set.
type flaky[T Entity] struct {
	*Memory[T]
	down bool
}

var errOffline = errors.New("offline")

func (f *flaky[T]) List(ctx context.Context) ([]T, error) {
	if f.down {
		return nil, errOffline
	}
	return f.Memory.List(ctx)
}

func (f *flaky[T]) Get(ctx context.Context, id string) (T, error) {
	if f.down {
		var zero T
		return zero, errOffline
	}
	return f.Memory.Get(ctx, id)
}

func (f *flaky[T]) Update(ctx context.Context, v T) error {
	if f.down {
		return errOffline
	}
	return f.Memory.Update(ctx, v)
}

func TestCachedServesListWhileOffline(t *testing.T) {
	ctx := context.Background()
	remote := &flaky[domain.Category]{Memory: NewMemory("category", domain.Category{ID: "c1", Name: "Drinks"})}
	c := NewCached[domain.Category]("category", remote)

	remote.down = true
	_, err := c.List(ctx)
	require.ErrorIs(t, err, errOffline, "nothing cached yet")

	remote.down = false
	got, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	remote.down = true
	got, err = c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Drinks", got[0].Name)
}

func TestCachedKeepsOptimisticWriteOnFailure(t *testing.T) {
	ctx := context.Background()
	remote := &flaky[domain.Category]{Memory: NewMemory("category", domain.Category{ID: "c1", Name: "Drinks"})}
	c := NewCached[domain.Category]("category", remote)
	_, err := c.List(ctx)
	require.NoError(t, err)

	remote.down = true
	err = c.Update(ctx, domain.Category{ID: "c1", Name: "Beverages"})
	require.ErrorIs(t, err, errOffline)

	got, err := c.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Beverages", got.Name)

	stored, _ := remote.Memory.Get(ctx, "c1")
	assert.Equal(t, "Drinks", stored.Name)
}

func TestCachedGetPrefersRemote(t *testing.T) {
	ctx := context.Background()
	remote := &flaky[domain.Item]{Memory: NewMemory("item", domain.Item{ID: "i1", Name: "Soup", Price: decimal.NewFromInt(5), Active: true})}
	c := NewCached[domain.Item]("item", remote)

	got, err := c.Get(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(5)))

	// the back office changes the price and retires the item
	require.NoError(t, remote.Memory.Update(ctx, domain.Item{ID: "i1", Name: "Soup", Price: decimal.NewFromInt(7), Active: false}))
	got, err = c.Get(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(7)))
	assert.False(t, got.Active)

	remote.down = true
	got, err = c.Get(ctx, "i1")
	require.NoError(t, err, "served from cache while offline")
	assert.True(t, got.Price.Equal(decimal.NewFromInt(7)))

	remote.down = false
	require.NoError(t, remote.Memory.Delete(ctx, "i1"))
	_, err = c.Get(ctx, "i1")
	require.ErrorIs(t, err, ErrNotFound)

	remote.down = true
	_, err = c.Get(ctx, "i1")
	assert.ErrorIs(t, err, errOffline, "deleted item was evicted")
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	m := NewMemory[domain.Customer]("customer")

	require.NoError(t, m.Create(ctx, domain.Customer{ID: "b", Name: "Bo"}))
	require.NoError(t, m.Create(ctx, domain.Customer{ID: "a", Name: "Al"}))
	assert.Error(t, m.Create(ctx, domain.Customer{ID: "a"}))

	list, _ := m.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, m.Update(ctx, domain.Customer{ID: "a", Name: "Alice"}))
	assert.ErrorIs(t, m.Update(ctx, domain.Customer{ID: "zz"}), ErrNotFound)

	require.NoError(t, m.Delete(ctx, "a"))
	_, err := m.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}
