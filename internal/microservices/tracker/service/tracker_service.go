package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
	"restaurant-pos/internal/microservices/tracker/repository"
)

type TrackerServiceInterface interface {
	Apply(ctx context.Context, ev models.TableEvent) error
	GetTableView(ctx context.Context, id string) (models.TableView, bool, error)
	GetTableTimeline(ctx context.Context, id string, limit, offset int) ([]models.TableEvent, error)
}

type TrackerService struct {
	repo repository.TrackerRepoInterface
	now  func() time.Time
	log  *logger.Logger
}

func NewTrackerService(repo repository.TrackerRepoInterface) *TrackerService {
	return &TrackerService{repo: repo, now: time.Now, log: logger.New("table-tracker")}
}

// Apply records ev in the timeline and moves the table view.
func (s *TrackerService) Apply(ctx context.Context, ev models.TableEvent) error {
	if ev.TableID == "" || !ev.NewStatus.Valid() {
		return fmt.Errorf("%w: malformed table event", domain.ErrValidation)
	}
	if err := s.repo.AppendEvent(ctx, ev); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return s.repo.UpsertTableView(ctx, models.TableView{
		TableID:     ev.TableID,
		Status:      ev.NewStatus,
		ChangedBy:   ev.ChangedBy,
		UpdatedAt:   s.now().UTC(),
		LastEventAt: ev.OccurredAt,
	})
}

func (s *TrackerService) GetTableView(ctx context.Context, id string) (models.TableView, bool, error) {
	return s.repo.GetTableView(ctx, id)
}

func (s *TrackerService) GetTableTimeline(ctx context.Context, id string, limit, offset int) ([]models.TableEvent, error) {
	return s.repo.GetTableTimeline(ctx, id, limit, offset)
}

// Consume applies table.status_changed deliveries until ctx is done.
// Malformed messages are dead-lettered; store failures are requeued.
func (s *TrackerService) Consume(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				return
			}
			s.handle(ctx, d)
		}
	}
}

func (s *TrackerService) handle(ctx context.Context, d amqp.Delivery) {
	var msg domain.TableStatusMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		s.log.Error("table_event_rejected", err, map[string]any{"message_id": d.MessageId})
		_ = d.Nack(false, false)
		return
	}
	if err := s.Apply(ctx, models.EventFromMessage(msg)); err != nil {
		s.log.Error("table_event_not_applied", err, map[string]any{"table_id": msg.TableID})
		_ = d.Nack(false, !errors.Is(err, domain.ErrValidation))
		return
	}
	s.log.Debug("table_event_applied", map[string]any{"table_id": msg.TableID, "status": string(msg.NewStatus)})
	_ = d.Ack(false)
}
