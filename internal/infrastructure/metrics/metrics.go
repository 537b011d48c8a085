package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for recharge activity.
type Metrics struct {
	recharges     *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	tasksPending  prometheus.Gauge
	ledgerAppends *prometheus.CounterVec
	prints        *prometheus.CounterVec
}

var (
	defaultOnce sync.Once
	shared      *Metrics
)

// Default returns the instance registered with the global registry.
func Default() *Metrics {
	defaultOnce.Do(func() {
		shared = MustNew(prometheus.DefaultRegisterer)
	})
	return shared
}

// MustNew registers the collectors on reg. Tests pass a fresh registry.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		recharges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recarga",
				Name:      "recharges_total",
				Help:      "Recharge attempts by payment method and outcome.",
			},
			[]string{"payment_method", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "recarga",
				Name:      "recharge_duration_seconds",
				Help:      "Time spent driving the portal for one recharge, including the wait for the browser.",
				Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"outcome"},
		),
		tasksPending: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "recarga",
				Name:      "tasks_pending",
				Help:      "Tasks accepted but not yet finished.",
			},
		),
		ledgerAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recarga",
				Name:      "ledger_appends_total",
				Help:      "Ledger writes by sink and outcome.",
			},
			[]string{"sink", "outcome"},
		),
		prints: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "recarga",
				Name:      "receipt_prints_total",
				Help:      "Receipt print attempts by outcome.",
			},
			[]string{"outcome"},
		),
	}

	m.recharges = register(reg, m.recharges)
	m.duration = register(reg, m.duration)
	m.tasksPending = register(reg, m.tasksPending)
	m.ledgerAppends = register(reg, m.ledgerAppends)
	m.prints = register(reg, m.prints)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *Metrics) ObserveRecharge(method string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.recharges.WithLabelValues(method, outcome(err)).Inc()
	m.duration.WithLabelValues(outcome(err)).Observe(time.Since(started).Seconds())
}

func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.tasksPending.Inc()
}

func (m *Metrics) TaskFinished() {
	if m == nil {
		return
	}
	m.tasksPending.Dec()
}

func (m *Metrics) ObserveLedgerAppend(sink string, err error) {
	if m == nil {
		return
	}
	m.ledgerAppends.WithLabelValues(sink, outcome(err)).Inc()
}

func (m *Metrics) ObservePrint(err error) {
	if m == nil {
		return
	}
	m.prints.WithLabelValues(outcome(err)).Inc()
}
