package domain

import "time"

// Routing keys on the pos_topic exchange.
const (
	EventTableStatusChanged = "table.status_changed"
	EventSaleFinalized      = "sale.finalized"
	EventSessionSignedOut   = "session.signed_out"
	EventRemoteWriteFailed  = "store.write_failed"
)

type TableStatusMessage struct {
	TableID   string      `json:"table_id"`
	OldStatus TableStatus `json:"old_status"`
	NewStatus TableStatus `json:"new_status"`
	Reason    string      `json:"reason"` // bind | payment | finalize | cancel_payment | release | force_free
	ChangedBy string      `json:"changed_by"`
	Timestamp time.Time   `json:"timestamp"`
}

type SaleFinalizedMessage struct {
	SaleID     string     `json:"sale_id"`
	OrderID    string     `json:"order_id"`
	TableID    string     `json:"table_id,omitempty"`
	GrandTotal string     `json:"grand_total"`
	Method     string     `json:"payment_method"`
	Items      []SaleItem `json:"items"`
	Timestamp  time.Time  `json:"timestamp"`
}

type SaleItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type SignedOutMessage struct {
	UserID    string    `json:"user_id"`
	Automatic bool      `json:"automatic"`
	Timestamp time.Time `json:"timestamp"`
}

type RemoteWriteFailedMessage struct {
	Op        string    `json:"op"`
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}
