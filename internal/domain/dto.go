package domain

import "github.com/shopspring/decimal"

type AddLineRequest struct {
	ItemID string `json:"item_id"`
}

type UpdateLineRequest struct {
	Quantity int `json:"quantity"`
}

type SelectTableRequest struct {
	TableID string `json:"table_id"`
}

type SetCustomerRequest struct {
	CustomerID string `json:"customer_id"`
}

type FinalizeRequest struct {
	Method   PaymentMethod `json:"method"`
	Tendered string        `json:"tendered"`
}

type NavigateRequest struct {
	Current string `json:"current"`
	Target  string `json:"target"`
}

type NavigateResponse struct {
	Allowed bool   `json:"allowed"`
	Target  string `json:"target_path,omitempty"`
}

type UnloadResponse struct {
	Prompt  bool   `json:"prompt"`
	Message string `json:"message,omitempty"`
}

type OrderResponse struct {
	Order      Order  `json:"order"`
	Totals     Totals `json:"totals"`
	Dirty      bool   `json:"dirty"`
	ForcedMode bool   `json:"forced_mode"`
}

// FinalizeResponse reports a closed sale. RemoteWriteFailed is set when the
// sale was closed locally but the store did not confirm it.
type FinalizeResponse struct {
	SaleID            string          `json:"sale_id"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	Change            decimal.Decimal `json:"change"`
	RemoteWriteFailed bool            `json:"remote_write_failed,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

type SignInRequest struct {
	UserID                 string `json:"user_id"`
	Name                   string `json:"name"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
}

type SignOutRequest struct {
	Current string `json:"current"`
}
