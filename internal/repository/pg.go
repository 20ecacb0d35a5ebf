package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

type RowScanner interface {
	Scan(dest ...any) error
}

// Spec maps an entity type onto one SQL table. Columns[0] is the primary
// key; Values returns the column values in the same order.
type Spec[T Entity] struct {
	Entity  string
	Table   string
	Columns []string
	Scan    func(RowScanner) (T, error)
	Values  func(T) ([]any, error)
}

// PG is a Postgres Repository over database/sql with the pgx driver.
type PG[T Entity] struct {
	db   *sql.DB
	spec Spec[T]

	selectSQL string
	insertSQL string
	updateSQL string
	deleteSQL string
}

func NewPG[T Entity](db *sql.DB, spec Spec[T]) *PG[T] {
	cols := strings.Join(spec.Columns, ", ")
	marks := make([]string, len(spec.Columns))
	sets := make([]string, 0, len(spec.Columns)-1)
	for i, c := range spec.Columns {
		marks[i] = fmt.Sprintf("$%d", i+1)
		if i > 0 {
			sets = append(sets, fmt.Sprintf("%s=$%d", c, i+1))
		}
	}
	key := spec.Columns[0]
	return &PG[T]{
		db:        db,
		spec:      spec,
		selectSQL: fmt.Sprintf("SELECT %s FROM %s", cols, spec.Table),
		insertSQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", spec.Table, cols, strings.Join(marks, ", ")),
		updateSQL: fmt.Sprintf("UPDATE %s SET %s, updated_at=now() WHERE %s=$1", spec.Table, strings.Join(sets, ", "), key),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE %s=$1", spec.Table, key),
	}
}

func (r *PG[T]) Get(ctx context.Context, id string) (T, error) {
	row := r.db.QueryRowContext(ctx, r.selectSQL+" WHERE "+r.spec.Columns[0]+"=$1", id)
	v, err := r.spec.Scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", r.spec.Entity, id, ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s %s: %w", r.spec.Entity, id, err)
	}
	return v, nil
}

func (r *PG[T]) List(ctx context.Context) ([]T, error) {
	rows, err := r.db.QueryContext(ctx, r.selectSQL+" ORDER BY "+r.spec.Columns[0])
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.spec.Entity, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := r.spec.Scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", r.spec.Entity, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PG[T]) Create(ctx context.Context, v T) error {
	args, err := r.spec.Values(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", r.spec.Entity, v.EntityID(), err)
	}
	if _, err := r.db.ExecContext(ctx, r.insertSQL, args...); err != nil {
		return fmt.Errorf("failed to insert %s %s: %w", r.spec.Entity, v.EntityID(), err)
	}
	return nil
}

func (r *PG[T]) Update(ctx context.Context, v T) error {
	args, err := r.spec.Values(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", r.spec.Entity, v.EntityID(), err)
	}
	res, err := r.db.ExecContext(ctx, r.updateSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", r.spec.Entity, v.EntityID(), err)
	}
	return requireAffected(res, r.spec.Entity, v.EntityID())
}

func (r *PG[T]) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.deleteSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", r.spec.Entity, id, err)
	}
	return requireAffected(res, r.spec.Entity, id)
}

func requireAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, ErrNotFound)
	}
	return nil
}
