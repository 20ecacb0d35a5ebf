// Package terminal is the single owner of a terminal's sale state: the
// cart, the table collection, the navigation guard and its coordinator.
// Callers get read copies and the operations below; nothing else mutates
// that state.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"restaurant-pos/internal/common/clock"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/events"
	"restaurant-pos/internal/metrics"
	"restaurant-pos/internal/pos/cart"
	"restaurant-pos/internal/pos/navguard"
	"restaurant-pos/internal/pos/tables"
	"restaurant-pos/internal/repository"
)

var (
	ErrOrderInProgress = fmt.Errorf("%w: a direct sale is in progress", domain.ErrValidation)
	ErrEmptyOrder      = tables.ErrEmptyOrder
	ErrItemInactive    = fmt.Errorf("%w: item is not available for sale", domain.ErrValidation)
	ErrInsufficient    = fmt.Errorf("%w: tendered amount is below the total", domain.ErrValidation)
)

// Location is where the client currently is and how to move it.
type Location interface {
	navguard.Navigator
	navguard.History
	Current() string
	Set(path string)
}

type Config struct {
	Tax        cart.TaxPolicy
	SaleRoutes []string
}

type Deps struct {
	Store    *repository.Store
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Location Location
	Clock    clock.Clock
	Log      *logger.Logger
}

type Terminal struct {
	store   *repository.Store
	events  events.Publisher
	metrics *metrics.Metrics
	loc     Location
	clock   clock.Clock
	log     *logger.Logger

	guard *navguard.Guard
	coord *navguard.Coordinator

	// mu serializes every mutation, standing in for the UI event loop.
	mu       sync.Mutex
	cart     *cart.Engine
	tables   *tables.Machine
	selected string
	forced   bool
	operator string
}

func New(cfg Config, deps Deps) *Terminal {
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Log == nil {
		deps.Log = logger.New("terminal")
	}
	if deps.Location == nil {
		deps.Location = navguard.NewLocation("/")
	}
	t := &Terminal{
		store:   deps.Store,
		events:  deps.Events,
		metrics: deps.Metrics,
		loc:     deps.Location,
		clock:   deps.Clock,
		log:     deps.Log,
		cart:    cart.New(cfg.Tax, deps.Clock.Now),
		tables:  tables.New(),
	}
	t.coord = navguard.NewCoordinator(t, t.loc, deps.Log)
	t.guard = navguard.NewGuard(cfg.SaleRoutes, t.IsDirty, t.coord, t.loc)
	return t
}

func (t *Terminal) Guard() *navguard.Guard { return t.guard }

func (t *Terminal) Location() Location { return t.loc }

// SetOperator names the signed-in user recorded on table transitions.
func (t *Terminal) SetOperator(userID string) {
	t.mu.Lock()
	t.operator = userID
	t.mu.Unlock()
}

// RefreshTables reloads the table collection from the remote store. Another
// terminal's writes win over local state.
func (t *Terminal) RefreshTables(ctx context.Context) error {
	list, err := t.store.Tables.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	t.mu.Lock()
	t.tables.Load(list)
	if t.selected != "" {
		if tb, err := t.tables.Get(t.selected); err == nil {
			t.cart.Load(tb.Order)
			t.cart.Bind(t.selected)
		} else {
			t.selected = ""
			t.cart.Clear()
		}
	}
	snapshot := t.tables.List()
	t.mu.Unlock()

	t.observeTables(snapshot)
	t.syncGuard()
	return nil
}

func (t *Terminal) Tables() []domain.Table {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tables.List()
}

func (t *Terminal) Table(id string) (domain.Table, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tables.Get(id)
}

// UpsertTable applies a management edit to the local collection and the
// store. Status and order are never taken from the edit.
func (t *Terminal) UpsertTable(ctx context.Context, tb domain.Table) (domain.Table, error) {
	t.mu.Lock()
	_, getErr := t.tables.Get(tb.ID)
	got := t.tables.Upsert(tb)
	t.mu.Unlock()

	var err error
	if errors.Is(getErr, tables.ErrTableNotFound) {
		err = t.store.Tables.Create(ctx, got)
	} else {
		err = t.store.Tables.Update(ctx, got)
	}
	if err != nil {
		op := "update"
		if getErr != nil {
			op = "create"
		}
		return got, t.remoteFailure(ctx, op, "table", got.ID, err)
	}
	return got, nil
}

// SelectTable resumes the order bound to id. A direct sale in progress must
// be finished or cleared first.
func (t *Terminal) SelectTable(id string) (domain.Table, error) {
	t.mu.Lock()
	if t.selected == "" && t.cart.IsDirty() {
		t.mu.Unlock()
		return domain.Table{}, ErrOrderInProgress
	}
	tb, err := t.tables.Get(id)
	if err != nil {
		t.mu.Unlock()
		return domain.Table{}, err
	}
	t.selected = id
	t.cart.Load(tb.Order)
	t.cart.Bind(id)
	t.mu.Unlock()

	t.syncGuard()
	return tb, nil
}

// StartDirectSale detaches the cart from any table. The table keeps its
// order; a direct sale already in progress is kept.
func (t *Terminal) StartDirectSale() {
	t.mu.Lock()
	if t.selected != "" {
		t.selected = ""
		t.cart.Clear()
	}
	t.mu.Unlock()
	t.syncGuard()
}

func (t *Terminal) SelectedTable() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

// AddToOrder adds one unit of itemID. The item lookup is the only remote
// read; the cart and table change before any remote write.
func (t *Terminal) AddToOrder(ctx context.Context, itemID string) error {
	item, err := t.store.Items.Get(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to look up item %s: %w", itemID, err)
	}
	if !item.Active {
		return ErrItemInactive
	}
	return t.mutate(ctx, func() error {
		t.cart.Bind(t.selected)
		t.cart.AddLine(item.ID, item.Price, item.Name)
		return nil
	})
}

// UpdateOrderLine sets the quantity of itemID; zero removes the line.
func (t *Terminal) UpdateOrderLine(ctx context.Context, itemID string, quantity int) error {
	return t.mutate(ctx, func() error { return t.cart.SetQuantity(itemID, quantity) })
}

func (t *Terminal) RemoveFromOrder(ctx context.Context, itemID string) error {
	return t.mutate(ctx, func() error {
		t.cart.RemoveLine(itemID)
		return nil
	})
}

// ClearOrder empties the cart; a bound table goes back to available.
func (t *Terminal) ClearOrder(ctx context.Context) error {
	return t.mutate(ctx, func() error {
		t.cart.Clear()
		t.cart.Bind(t.selected)
		return nil
	})
}

func (t *Terminal) SetCustomer(ctx context.Context, customerID string) error {
	if customerID != "" {
		if _, err := t.store.Customers.Get(ctx, customerID); err != nil {
			return fmt.Errorf("failed to look up customer %s: %w", customerID, err)
		}
	}
	return t.mutate(ctx, func() error {
		t.cart.SetCustomer(customerID)
		return nil
	})
}

// mutate applies fn to the cart under the lock, mirrors the result into the
// selected table and then persists the table.
func (t *Terminal) mutate(ctx context.Context, fn func() error) error {
	t.mu.Lock()
	if err := fn(); err != nil {
		t.mu.Unlock()
		return err
	}
	var (
		ch    tables.Change
		tb    domain.Table
		bound = t.selected != ""
	)
	if bound {
		var err error
		ch, err = t.tables.SyncOrder(t.selected, t.cart.Snapshot())
		if err != nil {
			t.mu.Unlock()
			return err
		}
		tb, _ = t.tables.Get(t.selected)
	}
	t.mu.Unlock()

	t.syncGuard()
	if !bound {
		return nil
	}
	return t.persistTable(ctx, tb, ch)
}

// EnterPayment moves the selected table to paying. A direct sale has no
// table to lock and passes.
func (t *Terminal) EnterPayment(ctx context.Context) error {
	return t.tableTransition(ctx, func(id string) (tables.Change, error) {
		if !t.cart.IsDirty() {
			return tables.Change{}, ErrEmptyOrder
		}
		return t.tables.EnterPayment(id)
	})
}

func (t *Terminal) CancelPayment(ctx context.Context) error {
	return t.tableTransition(ctx, t.tables.CancelPayment)
}

func (t *Terminal) tableTransition(ctx context.Context, fn func(id string) (tables.Change, error)) error {
	t.mu.Lock()
	id := t.selected
	if id == "" {
		t.mu.Unlock()
		return nil
	}
	ch, err := fn(id)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	tb, _ := t.tables.Get(id)
	t.mu.Unlock()

	return t.persistTable(ctx, tb, ch)
}

// FinalizeSale closes the sale. The cart is cleared and the table freed
// locally first; the sale record and table writes follow and a failure of
// either is reported without undoing the local change.
func (t *Terminal) FinalizeSale(ctx context.Context, payment domain.PaymentInfo) (domain.SaleRecord, error) {
	t.mu.Lock()
	if !t.cart.IsDirty() {
		t.mu.Unlock()
		return domain.SaleRecord{}, ErrEmptyOrder
	}
	order := t.cart.Snapshot()
	totals := t.cart.Totals()
	if payment.Method == "" {
		payment.Method = domain.PaymentCash
	}
	if payment.Tendered.IsZero() && payment.Method != domain.PaymentCash {
		payment.Tendered = totals.GrandTotal
	}
	if payment.Tendered.LessThan(totals.GrandTotal) {
		t.mu.Unlock()
		return domain.SaleRecord{}, ErrInsufficient
	}

	var (
		ch tables.Change
		tb domain.Table
		id = t.selected
	)
	if id != "" {
		var err error
		// Checkout straight from occupied passes through paying.
		if cur, _ := t.tables.Get(id); cur.Status == domain.TableOccupied {
			if _, err = t.tables.EnterPayment(id); err != nil {
				t.mu.Unlock()
				return domain.SaleRecord{}, err
			}
		}
		if ch, err = t.tables.Finalize(id); err != nil {
			t.mu.Unlock()
			return domain.SaleRecord{}, err
		}
		tb, _ = t.tables.Get(id)
	}
	t.cart.Clear()
	t.cart.Bind(id)
	t.mu.Unlock()

	rec := newSaleRecord(order, totals, payment, t.clock.Now())
	t.syncGuard()
	t.log.Info("sale_finalized", map[string]any{
		"sale_id": rec.ID, "table_id": id, "grand_total": totals.GrandTotal.String(), "method": string(payment.Method),
	})
	if t.metrics != nil {
		t.metrics.SalesFinalized.Inc()
		t.metrics.SalesAmount.Add(totals.GrandTotal.InexactFloat64())
	}

	var errs []error
	if err := t.store.Sales.CreateSaleRecord(ctx, rec); err != nil {
		errs = append(errs, t.remoteFailure(ctx, "create", "sale", rec.ID, err))
	} else {
		t.publish(ctx, domain.EventSaleFinalized, saleMessage(rec))
	}
	if id != "" {
		if err := t.persistTable(ctx, tb, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return rec, errors.Join(errs...)
}

// ForceFreeTable discards the order of id and makes it available, whatever
// its status. No sale is recorded.
func (t *Terminal) ForceFreeTable(ctx context.Context, id string) error {
	t.mu.Lock()
	ch, err := t.tables.ForceFree(id)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	if t.selected == id {
		t.cart.Clear()
		t.cart.Bind(id)
	}
	tb, _ := t.tables.Get(id)
	t.mu.Unlock()

	t.syncGuard()
	t.log.Info("table_force_freed", map[string]any{"table_id": id, "from": string(ch.From), "discarded_lines": len(ch.Order.Lines)})
	return t.persistTable(ctx, tb, ch)
}

// DeleteTable removes an available table. Occupied or paying tables are
// refused and must be force-freed first.
func (t *Terminal) DeleteTable(ctx context.Context, id string) error {
	t.mu.Lock()
	if err := t.tables.Delete(id); err != nil {
		t.mu.Unlock()
		return err
	}
	if t.selected == id {
		t.selected = ""
		t.cart.Clear()
	}
	snapshot := t.tables.List()
	t.mu.Unlock()

	t.observeTables(snapshot)
	if err := t.store.Tables.Delete(ctx, id); err != nil {
		return t.remoteFailure(ctx, "delete", "table", id, err)
	}
	return nil
}

// CancelSale discards the in-progress sale: the cart is cleared and a bound
// table released, or nothing changes.
func (t *Terminal) CancelSale(ctx context.Context) error {
	t.mu.Lock()
	id := t.selected
	if id != "" {
		if err := t.tables.CanRelease(id); err != nil {
			t.mu.Unlock()
			return err
		}
	}
	t.cart.Clear()
	t.cart.Bind(id)

	var (
		ch tables.Change
		tb domain.Table
	)
	if id != "" {
		var err error
		if ch, err = t.tables.SyncOrder(id, domain.Order{}); err != nil {
			t.mu.Unlock()
			return err
		}
		tb, _ = t.tables.Get(id)
	}
	t.mu.Unlock()

	t.syncGuard()
	t.log.Info("sale_cancelled", map[string]any{"table_id": id})
	if id == "" {
		return nil
	}
	// The sale is already cancelled locally; a failed table write is surfaced
	// by persistTable and must not abort the caller.
	if err := t.persistTable(ctx, tb, ch); err != nil {
		t.log.Error("sale_cancel_not_persisted", err, map[string]any{"table_id": id})
	}
	return nil
}

func (t *Terminal) Order() domain.Order {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cart.Snapshot()
}

func (t *Terminal) Totals() domain.Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cart.Totals()
}

// IsDirty is the navigation guard's only input.
func (t *Terminal) IsDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cart.IsDirty()
}

// IsForcedMode tells the UI to lock everything but the sale screens.
func (t *Terminal) IsForcedMode() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.forced
}

func (t *Terminal) SetForcedMode(on bool) {
	t.mu.Lock()
	t.forced = on
	t.mu.Unlock()
}

func (t *Terminal) syncGuard() { t.guard.Sync(t.loc.Current()) }

func (t *Terminal) observeTables(list []domain.Table) {
	if t.metrics != nil {
		t.metrics.ObserveTables(list)
	}
}
