// Package tables owns each table's lifecycle status and its bound order.
//
//	available --bind--> occupied --enter payment--> paying --finalize--> available
//	                    occupied <--cancel payment-- paying
//	occupied|paying --release / force free--> available
//
// Every transition into available leaves the order empty; every transition
// out of available requires a non-empty order.
package tables

import (
	"errors"
	"fmt"
	"sort"

	"restaurant-pos/internal/domain"
)

var (
	ErrInvalidTransition = fmt.Errorf("%w: invalid table transition", domain.ErrValidation)
	ErrTableNotAvailable = fmt.Errorf("%w: table is not available", domain.ErrValidation)
	ErrTableNotFound     = errors.New("table not found")
	ErrEmptyOrder        = fmt.Errorf("%w: order has no lines", domain.ErrValidation)
)

type Event string

const (
	EventBind          Event = "bind"
	EventEnterPayment  Event = "payment"
	EventFinalize      Event = "finalize"
	EventCancelPayment Event = "cancel_payment"
	EventRelease       Event = "release"
	EventForceFree     Event = "force_free"
)

type TransitionError struct {
	TableID string
	From    domain.TableStatus
	Event   Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("table %s: %s not allowed from %s", e.TableID, e.Event, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

var transitions = map[domain.TableStatus]map[Event]domain.TableStatus{
	domain.TableAvailable: {
		EventBind: domain.TableOccupied,
	},
	domain.TableOccupied: {
		EventEnterPayment: domain.TablePaying,
		EventRelease:      domain.TableAvailable,
		EventForceFree:    domain.TableAvailable,
	},
	domain.TablePaying: {
		EventFinalize:      domain.TableAvailable,
		EventCancelPayment: domain.TableOccupied,
		EventRelease:       domain.TableAvailable,
		EventForceFree:     domain.TableAvailable,
	},
}

// Next reports the status reached from from on ev.
func Next(from domain.TableStatus, ev Event) (domain.TableStatus, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// Change describes one applied transition.
type Change struct {
	TableID string
	From    domain.TableStatus
	To      domain.TableStatus
	Event   Event
	// Order is the order the table held before the transition.
	Order domain.Order
}

// Machine is not safe for concurrent use; the owning terminal serializes
// access. Callers only ever receive copies of tables.
type Machine struct {
	tables map[string]*domain.Table
}

func New() *Machine { return &Machine{tables: make(map[string]*domain.Table)} }

// Load replaces the collection, e.g. with the result of a remote list.
// Tables whose stored status contradicts their order are normalized.
func (m *Machine) Load(tables []domain.Table) {
	m.tables = make(map[string]*domain.Table, len(tables))
	for _, t := range tables {
		t := normalize(t.Clone())
		m.tables[t.ID] = &t
	}
}

// Upsert applies a management edit. Name and number are taken from t; an
// existing table keeps its status and order.
func (m *Machine) Upsert(t domain.Table) domain.Table {
	if cur, ok := m.tables[t.ID]; ok {
		cur.Name = t.Name
		cur.Number = t.Number
		return cur.Clone()
	}
	t = normalize(t.Clone())
	m.tables[t.ID] = &t
	return t.Clone()
}

func (m *Machine) Get(id string) (domain.Table, error) {
	t, ok := m.tables[id]
	if !ok {
		return domain.Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return t.Clone(), nil
}

// List returns copies ordered by table number, then id.
func (m *Machine) List() []domain.Table {
	out := make([]domain.Table, 0, len(m.tables))
	for _, t := range m.tables {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Number == out[j].Number {
			return out[i].ID < out[j].ID
		}
		return out[i].Number < out[j].Number
	})
	return out
}

// Bind attaches a non-empty order to an available table.
func (m *Machine) Bind(id string, order domain.Order) (Change, error) {
	if order.IsEmpty() {
		return Change{}, ErrEmptyOrder
	}
	return m.apply(id, EventBind, &order)
}

// SyncOrder mirrors the cart into a table. An available table is bound by
// the first line; an occupied or paying table takes the new order; an
// emptied order releases the table. A zero Change means no transition.
func (m *Machine) SyncOrder(id string, order domain.Order) (Change, error) {
	t, ok := m.tables[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	switch {
	case t.Status == domain.TableAvailable && order.IsEmpty():
		return Change{}, nil
	case t.Status == domain.TableAvailable:
		return m.Bind(id, order)
	case order.IsEmpty():
		return m.Release(id)
	}
	t.Order = order.Clone()
	t.Order.TableID = id
	return Change{}, nil
}

func (m *Machine) EnterPayment(id string) (Change, error) { return m.apply(id, EventEnterPayment, nil) }

func (m *Machine) CancelPayment(id string) (Change, error) {
	return m.apply(id, EventCancelPayment, nil)
}

// Finalize closes a paying table. The returned Change carries the order
// for the sale record.
func (m *Machine) Finalize(id string) (Change, error) { return m.apply(id, EventFinalize, nil) }

// Release drops the order of a cancelled sale.
func (m *Machine) Release(id string) (Change, error) { return m.apply(id, EventRelease, nil) }

// CanRelease reports whether Release would succeed without applying it.
func (m *Machine) CanRelease(id string) error {
	t, ok := m.tables[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if t.Status == domain.TableAvailable {
		return nil
	}
	if _, ok := Next(t.Status, EventRelease); !ok {
		return &TransitionError{TableID: id, From: t.Status, Event: EventRelease}
	}
	return nil
}

// ForceFree resets a table to available whatever its status, discarding
// the order. Freeing an available table is a no-op.
func (m *Machine) ForceFree(id string) (Change, error) {
	t, ok := m.tables[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if t.Status == domain.TableAvailable {
		t.Order = domain.Order{}
		return Change{}, nil
	}
	return m.apply(id, EventForceFree, nil)
}

// Delete removes an available table. Tables with a live order must be freed
// first.
func (m *Machine) Delete(id string) error {
	t, ok := m.tables[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	if t.Status != domain.TableAvailable {
		return fmt.Errorf("delete table %s (%s): %w", id, t.Status, ErrTableNotAvailable)
	}
	delete(m.tables, id)
	return nil
}

// Restore reinstates a deleted table.
func (m *Machine) Restore(t domain.Table) {
	t = normalize(t.Clone())
	m.tables[t.ID] = &t
}

func (m *Machine) apply(id string, ev Event, order *domain.Order) (Change, error) {
	t, ok := m.tables[id]
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	to, ok := Next(t.Status, ev)
	if !ok {
		return Change{}, &TransitionError{TableID: id, From: t.Status, Event: ev}
	}
	ch := Change{TableID: id, From: t.Status, To: to, Event: ev, Order: t.Order.Clone()}

	t.Status = to
	switch {
	case to == domain.TableAvailable:
		t.Order = domain.Order{}
	case order != nil:
		t.Order = order.Clone()
		t.Order.TableID = id
	}
	return ch, nil
}

func normalize(t domain.Table) domain.Table {
	if !t.Status.Valid() {
		t.Status = domain.TableAvailable
	}
	switch {
	case t.Status == domain.TableAvailable:
		t.Order = domain.Order{}
	case t.Order.IsEmpty():
		t.Status = domain.TableAvailable
		t.Order = domain.Order{}
	}
	return t
}
