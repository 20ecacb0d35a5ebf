package repository

import (
	"context"
	"database/sql"
	"errors"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

type TrackerRepoInterface interface {
	UpsertTableView(ctx context.Context, v models.TableView) error
	AppendEvent(ctx context.Context, e models.TableEvent) error
	GetTableView(ctx context.Context, id string) (models.TableView, bool, error)
	GetTableTimeline(ctx context.Context, id string, limit, offset int) ([]models.TableEvent, error)
}

type TrackerRepo struct {
	db *sql.DB
}

func NewTrackerRepo(db *sql.DB) *TrackerRepo { return &TrackerRepo{db: db} }

// UpsertTableView never moves the view back in time: an older event that
// arrives late leaves a newer status in place.
func (r *TrackerRepo) UpsertTableView(ctx context.Context, v models.TableView) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO table_status_view (table_id, status, changed_by, updated_at, last_event_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (table_id) DO UPDATE SET
  status = EXCLUDED.status,
  changed_by = EXCLUDED.changed_by,
  updated_at = EXCLUDED.updated_at,
  last_event_at = EXCLUDED.last_event_at
WHERE table_status_view.last_event_at <= EXCLUDED.last_event_at
`, v.TableID, string(v.Status), nullIfEmpty(v.ChangedBy), v.UpdatedAt, v.LastEventAt)
	return err
}

func (r *TrackerRepo) AppendEvent(ctx context.Context, e models.TableEvent) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO table_events (table_id, event_type, old_status, new_status, changed_by, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, e.TableID, e.EventType, string(e.OldStatus), string(e.NewStatus), nullIfEmpty(e.ChangedBy), e.OccurredAt)
	return err
}

func (r *TrackerRepo) GetTableView(ctx context.Context, id string) (models.TableView, bool, error) {
	var (
		v      models.TableView
		status string
		by     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
SELECT table_id, status, changed_by, updated_at, last_event_at
FROM table_status_view WHERE table_id=$1
`, id).Scan(&v.TableID, &status, &by, &v.UpdatedAt, &v.LastEventAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TableView{}, false, nil
	}
	if err != nil {
		return models.TableView{}, false, err
	}
	v.Status = domain.TableStatus(status)
	v.ChangedBy = by.String
	return v, true, nil
}

func (r *TrackerRepo) GetTableTimeline(ctx context.Context, id string, limit, offset int) ([]models.TableEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT event_type, old_status, new_status, changed_by, occurred_at
FROM table_events WHERE table_id=$1
ORDER BY occurred_at ASC, id ASC
LIMIT $2 OFFSET $3
`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.TableEvent{}
	for rows.Next() {
		var (
			e        models.TableEvent
			from, to string
			by       sql.NullString
		)
		if err := rows.Scan(&e.EventType, &from, &to, &by, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.TableID = id
		e.OldStatus = domain.TableStatus(from)
		e.NewStatus = domain.TableStatus(to)
		e.ChangedBy = by.String
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
