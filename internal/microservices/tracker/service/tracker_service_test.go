package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

type memRepo struct {
	views  map[string]models.TableView
	events []models.TableEvent
	err    error
}

func newMemRepo() *memRepo { return &memRepo{views: map[string]models.TableView{}} }

func (m *memRepo) UpsertTableView(_ context.Context, v models.TableView) error {
	if cur, ok := m.views[v.TableID]; ok && cur.LastEventAt.After(v.LastEventAt) {
		return nil
	}
	m.views[v.TableID] = v
	return nil
}

func (m *memRepo) AppendEvent(_ context.Context, e models.TableEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memRepo) GetTableView(_ context.Context, id string) (models.TableView, bool, error) {
	v, ok := m.views[id]
	return v, ok, nil
}

func (m *memRepo) GetTableTimeline(_ context.Context, id string, _, _ int) ([]models.TableEvent, error) {
	var out []models.TableEvent
	for _, e := range m.events {
		if e.TableID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type ackRecorder struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked++; return nil }
func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}
func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func TestApplyMovesView(t *testing.T) {
	repo := newMemRepo()
	svc := NewTrackerService(repo)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, svc.Apply(context.Background(), models.TableEvent{
		TableID: "T1", EventType: "bind", OldStatus: domain.TableAvailable, NewStatus: domain.TableOccupied, OccurredAt: at,
	}))
	require.NoError(t, svc.Apply(context.Background(), models.TableEvent{
		TableID: "T1", EventType: "payment", OldStatus: domain.TableOccupied, NewStatus: domain.TablePaying, OccurredAt: at.Add(time.Minute),
	}))

	v, ok, err := svc.GetTableView(context.Background(), "T1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TablePaying, v.Status)

	events, err := svc.GetTableTimeline(context.Background(), "T1", 50, 0)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestApplyRejectsMalformed(t *testing.T) {
	svc := NewTrackerService(newMemRepo())
	err := svc.Apply(context.Background(), models.TableEvent{TableID: "T1", NewStatus: "dirty"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestConsumeAcksAndRequeues(t *testing.T) {
	repo := newMemRepo()
	svc := NewTrackerService(repo)

	good, err := json.Marshal(domain.TableStatusMessage{
		TableID: "T1", OldStatus: domain.TableAvailable, NewStatus: domain.TableOccupied, Reason: "bind", Timestamp: time.Now(),
	})
	require.NoError(t, err)

	ack := &ackRecorder{}
	msgs := make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: ack, Body: good}
	close(msgs)
	svc.Consume(context.Background(), msgs)
	assert.Equal(t, 1, ack.acked)

	repo.err = errors.New("db down")
	ack = &ackRecorder{}
	msgs = make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, Body: good}
	close(msgs)
	svc.Consume(context.Background(), msgs)
	assert.Equal(t, 1, ack.nacked)
	assert.True(t, ack.requeue)

	ack = &ackRecorder{}
	msgs = make(chan amqp.Delivery, 1)
	msgs <- amqp.Delivery{Acknowledger: ack, Body: []byte("{")}
	close(msgs)
	svc.Consume(context.Background(), msgs)
	assert.Equal(t, 1, ack.nacked)
	assert.False(t, ack.requeue)
}
