package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRechargeByOutcome(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())

	m.ObserveRecharge("PIX", time.Now(), nil)
	m.ObserveRecharge("PIX", time.Now(), errors.New("boom"))
	m.ObserveRecharge("DINHEIRO", time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recharges.WithLabelValues("PIX", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recharges.WithLabelValues("PIX", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recharges.WithLabelValues("DINHEIRO", "success")))
}

func TestPendingGauge(t *testing.T) {
	m := MustNew(prometheus.NewRegistry())
	m.TaskStarted()
	m.TaskStarted()
	m.TaskFinished()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tasksPending))
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := MustNew(reg)
	second := MustNew(reg)

	first.ObserveLedgerAppend("local_file", nil)
	second.ObserveLedgerAppend("local_file", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(second.ledgerAppends.WithLabelValues("local_file", "success")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePrint(nil)
		m.TaskStarted()
		m.ObserveRecharge("PIX", time.Now(), nil)
	})
}
