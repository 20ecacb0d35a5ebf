package service

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
)

// NotificatorService turns terminal events into operator notifications.
type NotificatorService struct {
	log *logger.Logger
}

func NewNotificatorService(lg *logger.Logger) *NotificatorService {
	if lg == nil {
		lg = logger.New("notification-subscriber")
	}
	return &NotificatorService{log: lg}
}

// Notify drains msgs until ctx is done or the channel closes. A message that
// cannot be decoded is rejected without requeue and lands in the dead-letter
// queue.
func (ns *NotificatorService) Notify(ctx context.Context, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				ns.log.Warn("delivery_channel_closed", nil)
				return
			}
			ns.Handle(d)
		}
	}
}

func (ns *NotificatorService) Handle(d amqp.Delivery) {
	text, err := Describe(d.RoutingKey, d.Body)
	if err != nil {
		ns.log.Error("notification_rejected", err, map[string]any{"routing_key": d.RoutingKey, "message_id": d.MessageId})
		_ = d.Nack(false, false)
		return
	}
	ns.log.Info("notification_received", map[string]any{
		"routing_key": d.RoutingKey,
		"message_id":  d.MessageId,
		"details":     text,
	})
	_ = d.Ack(false)
}

// Describe renders a human-readable line for an event body.
func Describe(key string, body []byte) (string, error) {
	switch key {
	case domain.EventTableStatusChanged:
		var m domain.TableStatusMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return "", fmt.Errorf("decode %s: %w", key, err)
		}
		return fmt.Sprintf("Table %s changed from '%s' to '%s' (%s)", m.TableID, m.OldStatus, m.NewStatus, m.Reason), nil
	case domain.EventSaleFinalized:
		var m domain.SaleFinalizedMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return "", fmt.Errorf("decode %s: %w", key, err)
		}
		where := "direct sale"
		if m.TableID != "" {
			where = "table " + m.TableID
		}
		return fmt.Sprintf("Sale %s closed for %s: %d item(s), total %s by %s", m.SaleID, where, len(m.Items), m.GrandTotal, m.Method), nil
	case domain.EventSessionSignedOut:
		var m domain.SignedOutMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return "", fmt.Errorf("decode %s: %w", key, err)
		}
		if m.Automatic {
			return fmt.Sprintf("User %s was signed out after inactivity", m.UserID), nil
		}
		return fmt.Sprintf("User %s signed out", m.UserID), nil
	case domain.EventRemoteWriteFailed:
		var m domain.RemoteWriteFailedMessage
		if err := json.Unmarshal(body, &m); err != nil {
			return "", fmt.Errorf("decode %s: %w", key, err)
		}
		return fmt.Sprintf("Could not %s %s %s: %s", m.Op, m.Entity, m.ID, m.Error), nil
	}
	return "", fmt.Errorf("unknown routing key %q", key)
}
