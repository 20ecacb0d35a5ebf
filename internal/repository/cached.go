package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"restaurant-pos/internal/common/logger"
)

// Cached puts an offline-first cache in front of a remote repository.
// Writes land in the cache first and stay there when the remote write
// fails; the error is still returned so the caller can surface it. Reads
// fall back to the cache while the remote is unreachable.
type Cached[T Entity] struct {
	remote Repository[T]
	cache  *Memory[T]
	primed atomic.Bool
	log    *logger.Logger
}

func NewCached[T Entity](entity string, remote Repository[T]) *Cached[T] {
	return &Cached[T]{
		remote: remote,
		cache:  NewMemory[T](entity),
		log:    logger.New("store").With(map[string]any{"entity": entity}),
	}
}

// Get asks the remote first so prices and flags stay current. The cached
// copy is served only while the remote is unreachable.
func (c *Cached[T]) Get(ctx context.Context, id string) (T, error) {
	v, err := c.remote.Get(ctx, id)
	switch {
	case err == nil:
		c.cache.put(v)
		return v, nil
	case errors.Is(err, ErrNotFound):
		c.cache.remove(id)
		return v, err
	}
	cached, cerr := c.cache.Get(ctx, id)
	if cerr != nil {
		return v, err
	}
	c.log.Error("get_served_from_cache", err, map[string]any{"id": id})
	return cached, nil
}

func (c *Cached[T]) List(ctx context.Context) ([]T, error) {
	vs, err := c.remote.List(ctx)
	if err != nil {
		if c.primed.Load() {
			c.log.Error("list_served_from_cache", err, nil)
			return c.cache.List(ctx)
		}
		return nil, err
	}
	c.cache.replace(vs)
	c.primed.Store(true)
	return vs, nil
}

func (c *Cached[T]) Create(ctx context.Context, v T) error {
	c.cache.put(v)
	return c.remote.Create(ctx, v)
}

func (c *Cached[T]) Update(ctx context.Context, v T) error {
	c.cache.put(v)
	return c.remote.Update(ctx, v)
}

func (c *Cached[T]) Delete(ctx context.Context, id string) error {
	c.cache.remove(id)
	return c.remote.Delete(ctx, id)
}

// WithCache wraps every entity repository of s in an offline cache.
func WithCache(s *Store) *Store {
	return &Store{
		Tables:     NewCached("table", s.Tables),
		Items:      NewCached("item", s.Items),
		Categories: NewCached("category", s.Categories),
		Customers:  NewCached("customer", s.Customers),
		Sales:      s.Sales,
	}
}
