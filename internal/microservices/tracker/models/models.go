package models

import (
	"time"

	"restaurant-pos/internal/domain"
)

// TableEvent is one recorded status change of a table.
type TableEvent struct {
	TableID    string             `json:"table_id"`
	EventType  string             `json:"event_type"` // bind | payment | finalize | cancel_payment | release | force_free
	OldStatus  domain.TableStatus `json:"old_status"`
	NewStatus  domain.TableStatus `json:"new_status"`
	ChangedBy  string             `json:"changed_by,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// TableView is the latest known status of a table.
type TableView struct {
	TableID     string             `json:"table_id"`
	Status      domain.TableStatus `json:"status"`
	ChangedBy   string             `json:"changed_by,omitempty"`
	UpdatedAt   time.Time          `json:"updated_at"`
	LastEventAt time.Time          `json:"last_event_at"`
}

func EventFromMessage(m domain.TableStatusMessage) TableEvent {
	return TableEvent{
		TableID:    m.TableID,
		EventType:  m.Reason,
		OldStatus:  m.OldStatus,
		NewStatus:  m.NewStatus,
		ChangedBy:  m.ChangedBy,
		OccurredAt: m.Timestamp,
	}
}
