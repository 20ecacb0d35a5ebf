package repository

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

type Entity interface {
	EntityID() string
}

// Repository is the typed CRUD surface of the remote store, one per entity
// type (tables, items, categories, customers).
type Repository[T Entity] interface {
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, v T) error
	Update(ctx context.Context, v T) error
	Delete(ctx context.Context, id string) error
}
