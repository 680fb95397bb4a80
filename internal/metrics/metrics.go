// Package metrics exposes Prometheus counters for the financing engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts business events. A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry         *prometheus.Registry
	contractsCreated prometheus.Counter
	paymentsAccepted *prometheus.CounterVec
	paymentsRejected *prometheus.CounterVec
	contractsSettled prometheus.Counter
	contractsOverdue prometheus.Counter
}

// New registers the engine's collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		contractsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "financing",
			Name:      "contracts_created_total",
			Help:      "Financing contracts created.",
		}),
		paymentsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "financing",
			Name:      "payments_accepted_total",
			Help:      "Payments applied to a contract balance.",
		}, []string{"method"}),
		paymentsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "financing",
			Name:      "payments_rejected_total",
			Help:      "Payments refused, by error code.",
		}, []string{"code"}),
		contractsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "financing",
			Name:      "contracts_settled_total",
			Help:      "Contracts whose balance reached zero.",
		}),
		contractsOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "financing",
			Name:      "contracts_marked_overdue_total",
			Help:      "Contracts moved to OVERDUE by the scheduler.",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		r.contractsCreated,
		r.paymentsAccepted,
		r.paymentsRejected,
		r.contractsSettled,
		r.contractsOverdue,
	)

	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ContractCreated() {
	if r == nil {
		return
	}
	r.contractsCreated.Inc()
}

func (r *Recorder) PaymentAccepted(method string, settled bool) {
	if r == nil {
		return
	}
	r.paymentsAccepted.WithLabelValues(method).Inc()
	if settled {
		r.contractsSettled.Inc()
	}
}

func (r *Recorder) PaymentRejected(code string) {
	if r == nil {
		return
	}
	r.paymentsRejected.WithLabelValues(code).Inc()
}

func (r *Recorder) ContractsMarkedOverdue(n int) {
	if r == nil {
		return
	}
	r.contractsOverdue.Add(float64(n))
}
