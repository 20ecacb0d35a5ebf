package tables

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
)

func order(lines ...string) domain.Order {
	o := domain.Order{ID: "o1"}
	for _, id := range lines {
		o.Lines = append(o.Lines, domain.NewOrderLine(id, id, decimal.NewFromInt(1), 1))
	}
	return o
}

func machineWith(status domain.TableStatus) *Machine {
	m := New()
	t := domain.Table{ID: "t1", Name: "Window", Number: 1, Status: status}
	if status != domain.TableAvailable {
		t.Order = order("a")
	}
	m.Load([]domain.Table{t})
	return m
}

func TestHappyPath(t *testing.T) {
	m := machineWith(domain.TableAvailable)

	ch, err := m.Bind("t1", order("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, domain.TableAvailable, ch.From)
	assert.Equal(t, domain.TableOccupied, ch.To)

	tb, _ := m.Get("t1")
	assert.Len(t, tb.Order.Lines, 2)
	assert.Equal(t, "t1", tb.Order.TableID)

	_, err = m.EnterPayment("t1")
	require.NoError(t, err)
	_, err = m.CancelPayment("t1")
	require.NoError(t, err)
	_, err = m.EnterPayment("t1")
	require.NoError(t, err)

	ch, err = m.Finalize("t1")
	require.NoError(t, err)
	assert.Len(t, ch.Order.Lines, 2)

	tb, _ = m.Get("t1")
	assert.Equal(t, domain.TableAvailable, tb.Status)
	assert.True(t, tb.Order.IsEmpty())
}

func TestTransitionTable(t *testing.T) {
	statuses := []domain.TableStatus{domain.TableAvailable, domain.TableOccupied, domain.TablePaying}
	events := map[Event]func(*Machine) (Change, error){
		EventBind:          func(m *Machine) (Change, error) { return m.Bind("t1", order("x")) },
		EventEnterPayment:  func(m *Machine) (Change, error) { return m.EnterPayment("t1") },
		EventFinalize:      func(m *Machine) (Change, error) { return m.Finalize("t1") },
		EventCancelPayment: func(m *Machine) (Change, error) { return m.CancelPayment("t1") },
		EventRelease:       func(m *Machine) (Change, error) { return m.Release("t1") },
	}

	for _, from := range statuses {
		for ev, fire := range events {
			m := machineWith(from)
			_, err := fire(m)
			tb, _ := m.Get("t1")

			want, defined := Next(from, ev)
			if !defined {
				var te *TransitionError
				require.True(t, errors.As(err, &te), "%s from %s should be rejected", ev, from)
				assert.True(t, errors.Is(err, ErrInvalidTransition))
				assert.True(t, errors.Is(err, domain.ErrValidation))
				assert.Equal(t, from, tb.Status, "rejected transition must not change state")
				continue
			}
			require.NoError(t, err, "%s from %s", ev, from)
			assert.Equal(t, want, tb.Status)
			assert.Equal(t, want == domain.TableAvailable, tb.Order.IsEmpty(), "available iff empty after %s", ev)
		}
	}
}

func TestAvailableToPayingRejected(t *testing.T) {
	m := machineWith(domain.TableAvailable)
	_, err := m.EnterPayment("t1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBindRequiresLines(t *testing.T) {
	m := machineWith(domain.TableAvailable)
	_, err := m.Bind("t1", domain.Order{})
	assert.ErrorIs(t, err, ErrEmptyOrder)
}

func TestForceFreeFromAnyStatus(t *testing.T) {
	for _, from := range []domain.TableStatus{domain.TableAvailable, domain.TableOccupied, domain.TablePaying} {
		m := machineWith(from)
		_, err := m.ForceFree("t1")
		require.NoError(t, err)

		tb, _ := m.Get("t1")
		assert.Equal(t, domain.TableAvailable, tb.Status, "from %s", from)
		assert.True(t, tb.Order.IsEmpty())
	}
}

func TestDeleteOnlyAvailable(t *testing.T) {
	for _, from := range []domain.TableStatus{domain.TableOccupied, domain.TablePaying} {
		m := machineWith(from)
		err := m.Delete("t1")
		assert.ErrorIs(t, err, ErrTableNotAvailable)
		_, err = m.Get("t1")
		assert.NoError(t, err)
	}

	m := machineWith(domain.TableAvailable)
	require.NoError(t, m.Delete("t1"))
	_, err := m.Get("t1")
	assert.ErrorIs(t, err, ErrTableNotFound)
}

func TestSyncOrder(t *testing.T) {
	m := machineWith(domain.TableAvailable)

	ch, err := m.SyncOrder("t1", domain.Order{})
	require.NoError(t, err)
	assert.Empty(t, ch.Event)

	ch, err = m.SyncOrder("t1", order("a"))
	require.NoError(t, err)
	assert.Equal(t, EventBind, ch.Event)

	_, err = m.SyncOrder("t1", order("a", "b"))
	require.NoError(t, err)
	tb, _ := m.Get("t1")
	assert.Len(t, tb.Order.Lines, 2)
	assert.Equal(t, domain.TableOccupied, tb.Status)

	ch, err = m.SyncOrder("t1", domain.Order{})
	require.NoError(t, err)
	assert.Equal(t, EventRelease, ch.Event)
	tb, _ = m.Get("t1")
	assert.Equal(t, domain.TableAvailable, tb.Status)
}

func TestGetReturnsCopy(t *testing.T) {
	m := machineWith(domain.TableOccupied)
	tb, _ := m.Get("t1")
	tb.Order.Lines[0].Quantity = 42
	tb.Status = domain.TablePaying

	again, _ := m.Get("t1")
	assert.Equal(t, 1, again.Order.Lines[0].Quantity)
	assert.Equal(t, domain.TableOccupied, again.Status)
}

func TestLoadNormalizesInconsistentTables(t *testing.T) {
	m := New()
	m.Load([]domain.Table{
		{ID: "a", Number: 2, Status: domain.TableOccupied},
		{ID: "b", Number: 1, Status: domain.TableAvailable, Order: order("x")},
		{ID: "c", Number: 3, Status: "bogus"},
	})

	list := m.List()
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].ID)
	for _, tb := range list {
		assert.Equal(t, domain.TableAvailable, tb.Status)
		assert.True(t, tb.Order.IsEmpty())
	}
}

func TestUpsertKeepsStatus(t *testing.T) {
	m := machineWith(domain.TableOccupied)
	got := m.Upsert(domain.Table{ID: "t1", Name: "Terrace", Number: 7})

	assert.Equal(t, "Terrace", got.Name)
	assert.Equal(t, 7, got.Number)
	assert.Equal(t, domain.TableOccupied, got.Status)
	assert.False(t, got.Order.IsEmpty())
}
