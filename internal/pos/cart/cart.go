// Package cart holds the line items of the sale being composed.
package cart

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-pos/internal/domain"
)

var ErrInvalidQuantity = fmt.Errorf("%w: quantity must not be negative", domain.ErrValidation)

type TaxMode string

const (
	TaxInclusive TaxMode = "inclusive"
	TaxExclusive TaxMode = "exclusive"
)

// ParseTaxMode accepts "inclusive" or "exclusive"; empty means inclusive.
func ParseTaxMode(s string) (TaxMode, error) {
	switch TaxMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", TaxInclusive:
		return TaxInclusive, nil
	case TaxExclusive:
		return TaxExclusive, nil
	}
	return "", errors.New("unknown tax mode " + s)
}

type TaxPolicy struct {
	Rate decimal.Decimal // 0.10 = 10%
	Mode TaxMode
}

const currencyPlaces = 2

// Engine is not safe for concurrent use; the owning terminal serializes
// access.
type Engine struct {
	order domain.Order
	tax   TaxPolicy
	now   func() time.Time
}

func New(tax TaxPolicy, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	if tax.Mode == "" {
		tax.Mode = TaxInclusive
	}
	return &Engine{tax: tax, now: now}
}

// AddLine increments the quantity of an existing line for itemID or appends
// a new line with quantity 1.
func (e *Engine) AddLine(itemID string, unitPrice decimal.Decimal, name string) {
	if i := e.index(itemID); i >= 0 {
		e.order.Lines[i] = e.order.Lines[i].WithQuantity(e.order.Lines[i].Quantity + 1)
		return
	}
	if e.order.IsEmpty() {
		e.start()
	}
	e.order.Lines = append(e.order.Lines, domain.NewOrderLine(itemID, name, unitPrice, 1))
}

// SetQuantity replaces the quantity of itemID. Zero removes the line.
func (e *Engine) SetQuantity(itemID string, quantity int) error {
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	i := e.index(itemID)
	if i < 0 {
		return nil
	}
	if quantity == 0 {
		e.removeAt(i)
		return nil
	}
	e.order.Lines[i] = e.order.Lines[i].WithQuantity(quantity)
	return nil
}

func (e *Engine) RemoveLine(itemID string) {
	if i := e.index(itemID); i >= 0 {
		e.removeAt(i)
	}
}

// Clear empties the order and drops its metadata, the table binding included.
func (e *Engine) Clear() { e.order = domain.Order{} }

func (e *Engine) IsDirty() bool { return len(e.order.Lines) > 0 }

func (e *Engine) Totals() domain.Totals { return ComputeTotals(e.order.Lines, e.tax) }

// Bind attaches the order to tableID; empty detaches it (direct sale).
func (e *Engine) Bind(tableID string) { e.order.TableID = tableID }

func (e *Engine) TableID() string { return e.order.TableID }

func (e *Engine) SetCustomer(customerID string) { e.order.CustomerID = customerID }

// Load replaces the engine state with a copy of order, e.g. to resume the
// order bound to a table.
func (e *Engine) Load(order domain.Order) { e.order = order.Clone() }

func (e *Engine) Snapshot() domain.Order { return e.order.Clone() }

func (e *Engine) Lines() []domain.OrderLine { return e.order.Clone().Lines }

func (e *Engine) start() {
	e.order.ID = uuid.NewString()
	e.order.CreatedAt = e.now().UTC()
}

func (e *Engine) index(itemID string) int {
	for i, l := range e.order.Lines {
		if l.ItemID == itemID {
			return i
		}
	}
	return -1
}

func (e *Engine) removeAt(i int) {
	e.order.Lines = append(e.order.Lines[:i], e.order.Lines[i+1:]...)
	if len(e.order.Lines) == 0 {
		e.order.Lines = nil
	}
}

// ComputeTotals is a pure function of lines and policy.
func ComputeTotals(lines []domain.OrderLine, tax TaxPolicy) domain.Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(currencyPlaces)

	t := domain.Totals{Subtotal: subtotal, Tax: decimal.Zero, GrandTotal: subtotal}
	if tax.Rate.IsZero() || subtotal.IsZero() {
		return t
	}
	switch tax.Mode {
	case TaxExclusive:
		t.Tax = subtotal.Mul(tax.Rate).Round(currencyPlaces)
		t.GrandTotal = subtotal.Add(t.Tax)
	default:
		net := subtotal.DivRound(decimal.NewFromInt(1).Add(tax.Rate), currencyPlaces+4)
		t.Tax = subtotal.Sub(net).Round(currencyPlaces)
	}
	return t
}
