package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

type ackRecorder struct {
	acked, nacked []uint64
	requeue       bool
}

func (a *ackRecorder) Ack(tag uint64, _ bool) error {
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, _ bool, requeue bool) error {
	a.nacked = append(a.nacked, tag)
	a.requeue = requeue
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error { return a.Nack(tag, false, requeue) }

func body(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestDescribe(t *testing.T) {
	text, err := Describe(domain.EventTableStatusChanged, body(t, domain.TableStatusMessage{
		TableID: "T1", OldStatus: domain.TableAvailable, NewStatus: domain.TableOccupied, Reason: "bind",
	}))
	require.NoError(t, err)
	assert.Equal(t, "Table T1 changed from 'available' to 'occupied' (bind)", text)

	text, err = Describe(domain.EventSaleFinalized, body(t, domain.SaleFinalizedMessage{
		SaleID: "s1", GrandTotal: "25.00", Method: "cash", Items: []domain.SaleItem{{Name: "Pizza", Quantity: 2}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "Sale s1 closed for direct sale: 1 item(s), total 25.00 by cash", text)

	text, err = Describe(domain.EventSessionSignedOut, body(t, domain.SignedOutMessage{UserID: "u1", Automatic: true}))
	require.NoError(t, err)
	assert.Contains(t, text, "inactivity")

	_, err = Describe("kitchen.order", []byte(`{}`))
	assert.Error(t, err)
}

func TestNotifyAcksAndRejects(t *testing.T) {
	ack := &ackRecorder{}
	msgs := make(chan amqp.Delivery, 2)
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, RoutingKey: domain.EventRemoteWriteFailed,
		Body: body(t, domain.RemoteWriteFailedMessage{Op: "update", Entity: "table", ID: "T1", Error: "timeout", Timestamp: time.Now()})}
	msgs <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, RoutingKey: domain.EventSaleFinalized, Body: []byte("not json")}
	close(msgs)

	NewNotificatorService(nil).Notify(context.Background(), msgs)

	assert.Equal(t, []uint64{1}, ack.acked)
	assert.Equal(t, []uint64{2}, ack.nacked)
	assert.False(t, ack.requeue)
}

func TestNotifyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	go func() {
		NewNotificatorService(nil).Notify(ctx, make(chan amqp.Delivery))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify did not return after cancel")
	}
}
