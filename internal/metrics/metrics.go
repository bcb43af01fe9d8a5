// Package metrics exposes engine counters to Prometheus.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	operations *prometheus.CounterVec
	swaps      prometheus.Counter
	swapVolume *prometheus.CounterVec
	proposals  *prometheus.CounterVec
	ltwap      *prometheus.GaugeVec
}

// New creates the engine metrics and registers them on r.
func New(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futarchy",
			Name:      "operations_total",
			Help:      "number of ledger operations by outcome",
		}, []string{"operation", "outcome"}),
		swaps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "futarchy",
			Name:      "swaps_total",
			Help:      "number of committed swaps",
		}),
		swapVolume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futarchy",
			Name:      "swap_input_total",
			Help:      "raw input amount swapped per pool",
		}, []string{"pool"}),
		proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "futarchy",
			Name:      "proposals_total",
			Help:      "number of proposals reaching a state",
		}, []string{"state"}),
		ltwap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "futarchy",
			Name:      "ltwap_latest",
			Help:      "latest scaled ltwap per pool",
		}, []string{"pool"}),
	}
	if r == nil {
		return m, nil
	}
	err := errors.Join(
		r.Register(m.operations),
		r.Register(m.swaps),
		r.Register(m.swapVolume),
		r.Register(m.proposals),
		r.Register(m.ltwap),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Operation records one operation outcome. A nil receiver is a no-op.
func (m *Metrics) Operation(name string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}

func (m *Metrics) Swap(pool string, input uint64) {
	if m == nil {
		return
	}
	m.swaps.Inc()
	m.swapVolume.WithLabelValues(pool).Add(float64(input))
}

func (m *Metrics) Proposal(state string) {
	if m == nil {
		return
	}
	m.proposals.WithLabelValues(state).Inc()
}

func (m *Metrics) Ltwap(pool string, latest uint64) {
	if m == nil {
		return
	}
	m.ltwap.WithLabelValues(pool).Set(float64(latest))
}
