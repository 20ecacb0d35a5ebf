package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
	TablePaying    TableStatus = "paying"
)

func (s TableStatus) Valid() bool {
	switch s {
	case TableAvailable, TableOccupied, TablePaying:
		return true
	}
	return false
}

// OrderLine is one item of an in-progress sale. LineTotal is derived, set
// only through NewOrderLine / WithQuantity.
type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func NewOrderLine(itemID, name string, unitPrice decimal.Decimal, quantity int) OrderLine {
	l := OrderLine{ItemID: itemID, Name: name, UnitPrice: unitPrice}
	return l.WithQuantity(quantity)
}

func (l OrderLine) WithQuantity(quantity int) OrderLine {
	l.Quantity = quantity
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	return l
}

type Order struct {
	ID         string      `json:"id"`
	TableID    string      `json:"table_id,omitempty"` // empty = direct sale
	CustomerID string      `json:"customer_id,omitempty"`
	Lines      []OrderLine `json:"lines"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (o Order) IsEmpty() bool { return len(o.Lines) == 0 }

// Clone returns a copy whose Lines slice is not shared with o.
func (o Order) Clone() Order {
	if o.Lines != nil {
		lines := make([]OrderLine, len(o.Lines))
		copy(lines, o.Lines)
		o.Lines = lines
	}
	return o
}

type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Number int         `json:"number"`
	Status TableStatus `json:"status"`
	Order  Order       `json:"order"`
}

func (t Table) EntityID() string { return t.ID }

func (t Table) Clone() Table {
	t.Order = t.Order.Clone()
	return t
}

type Item struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Active     bool            `json:"active"`
}

func (i Item) EntityID() string { return i.ID }

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c Category) EntityID() string { return c.ID }

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (c Customer) EntityID() string { return c.ID }

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

type PaymentInfo struct {
	Method   PaymentMethod   `json:"method"`
	Tendered decimal.Decimal `json:"tendered"`
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// SaleRecord is the persisted result of a finalized sale.
type SaleRecord struct {
	ID         string          `json:"id"`
	OrderID    string          `json:"order_id"`
	TableID    string          `json:"table_id,omitempty"`
	CustomerID string          `json:"customer_id,omitempty"`
	Lines      []OrderLine     `json:"lines"`
	Totals     Totals          `json:"totals"`
	Payment    PaymentInfo     `json:"payment"`
	Change     decimal.Decimal `json:"change"`
	CreatedAt  time.Time       `json:"created_at"`
}

type Identity struct {
	UserID                 string `json:"user_id"`
	Name                   string `json:"name"`
	SessionDurationMinutes int    `json:"session_duration_minutes"`
}
