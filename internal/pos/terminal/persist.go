package terminal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/pos/tables"
)

// persistTable writes tb to the remote store and announces ch. A zero
// Change still writes, since the order may have changed.
func (t *Terminal) persistTable(ctx context.Context, tb domain.Table, ch tables.Change) error {
	if ch.Event != "" {
		t.mu.Lock()
		op := t.operator
		snapshot := t.tables.List()
		t.mu.Unlock()

		t.observeTables(snapshot)
		if t.metrics != nil {
			t.metrics.TableTransitions.WithLabelValues(string(ch.Event)).Inc()
		}
		t.log.Info("table_status_changed", map[string]any{
			"table_id": ch.TableID, "from": string(ch.From), "to": string(ch.To), "event": string(ch.Event),
		})
		t.publish(ctx, domain.EventTableStatusChanged, domain.TableStatusMessage{
			TableID:   ch.TableID,
			OldStatus: ch.From,
			NewStatus: ch.To,
			Reason:    string(ch.Event),
			ChangedBy: op,
			Timestamp: t.clock.Now().UTC(),
		})
	}
	if err := t.store.Tables.Update(ctx, tb); err != nil {
		return t.remoteFailure(ctx, "update", "table", tb.ID, err)
	}
	return nil
}

// remoteFailure reports a write the store did not confirm. Local state is
// left as the optimistic mutation set it.
func (t *Terminal) remoteFailure(ctx context.Context, op, entity, id string, err error) error {
	t.log.Error("remote_write_failed", err, map[string]any{"op": op, "entity": entity, "id": id})
	if t.metrics != nil {
		t.metrics.RemoteWriteFailures.WithLabelValues(entity).Inc()
	}
	t.publish(ctx, domain.EventRemoteWriteFailed, domain.RemoteWriteFailedMessage{
		Op:        op,
		Entity:    entity,
		ID:        id,
		Error:     err.Error(),
		Timestamp: t.clock.Now().UTC(),
	})
	return &domain.RemoteWriteError{Op: op, Entity: entity, ID: id, Err: err}
}

// publish is fire-and-forget: a broker outage never fails a sale.
func (t *Terminal) publish(ctx context.Context, key string, v any) {
	if err := t.events.Publish(ctx, key, v); err != nil {
		t.log.Warn("event_not_published", map[string]any{"routing_key": key, "error": err.Error()})
	}
}

func newSaleRecord(order domain.Order, totals domain.Totals, payment domain.PaymentInfo, now time.Time) domain.SaleRecord {
	return domain.SaleRecord{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		TableID:    order.TableID,
		CustomerID: order.CustomerID,
		Lines:      order.Lines,
		Totals:     totals,
		Payment:    payment,
		Change:     payment.Tendered.Sub(totals.GrandTotal),
		CreatedAt:  now.UTC(),
	}
}

func saleMessage(rec domain.SaleRecord) domain.SaleFinalizedMessage {
	items := make([]domain.SaleItem, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		items = append(items, domain.SaleItem{Name: l.Name, Quantity: l.Quantity, Price: l.UnitPrice.StringFixed(2)})
	}
	return domain.SaleFinalizedMessage{
		SaleID:     rec.ID,
		OrderID:    rec.OrderID,
		TableID:    rec.TableID,
		GrandTotal: rec.Totals.GrandTotal.StringFixed(2),
		Method:     string(rec.Payment.Method),
		Items:      items,
		Timestamp:  rec.CreatedAt,
	}
}
