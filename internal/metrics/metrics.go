package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"restaurant-pos/internal/domain"
)

type Metrics struct {
	registry *prometheus.Registry

	NavigationBlocked   *prometheus.CounterVec
	SalesFinalized      prometheus.Counter
	SalesAmount         prometheus.Counter
	TableTransitions    *prometheus.CounterVec
	RemoteWriteFailures *prometheus.CounterVec
	SignOuts            *prometheus.CounterVec
	Tables              *prometheus.GaugeVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NavigationBlocked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_navigation_blocked_total",
			Help: "Navigations paused for confirmation because an order was in progress.",
		}, []string{"trigger"}),
		SalesFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_finalized_total",
			Help: "Finalized sales.",
		}),
		SalesAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pos_sales_amount_total",
			Help: "Sum of grand totals of finalized sales.",
		}),
		TableTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_table_transitions_total",
			Help: "Table status transitions by event.",
		}, []string{"event"}),
		RemoteWriteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_remote_write_failures_total",
			Help: "Remote store writes that were not confirmed.",
		}, []string{"entity"}),
		SignOuts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pos_sign_outs_total",
			Help: "Sign-outs by cause.",
		}, []string{"cause"}),
		Tables: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pos_tables",
			Help: "Tables by status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.NavigationBlocked,
		m.SalesFinalized,
		m.SalesAmount,
		m.TableTransitions,
		m.RemoteWriteFailures,
		m.SignOuts,
		m.Tables,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveTables sets the status gauge from a table listing.
func (m *Metrics) ObserveTables(tables []domain.Table) {
	counts := map[domain.TableStatus]int{
		domain.TableAvailable: 0,
		domain.TableOccupied:  0,
		domain.TablePaying:    0,
	}
	for _, t := range tables {
		counts[t.Status]++
	}
	for st, n := range counts {
		m.Tables.WithLabelValues(string(st)).Set(float64(n))
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
