package health

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the ambient counters exposed on /metrics. Reconciliation
// itself never probes monitored targets (non-goal); these only observe
// the loop's own health.
type Metrics struct {
	Ticks        prometheus.Counter
	TickErrors   prometheus.Counter
	PlanActions  *prometheus.CounterVec
	ActionErrors prometheus.Counter
}

// NewMetrics registers the reconciler's counters against a private
// registry, so multiple instances in tests don't collide on the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Ticks: factory.NewCounter(prometheus.CounterOpts{
			Name: "autokuma_reconcile_ticks_total",
			Help: "Number of reconciliation ticks run.",
		}),
		TickErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "autokuma_reconcile_tick_errors_total",
			Help: "Number of ticks that failed before producing a plan.",
		}),
		PlanActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autokuma_plan_actions_total",
			Help: "Number of plan actions executed, by kind.",
		}, []string{"action"}),
		ActionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "autokuma_plan_action_errors_total",
			Help: "Number of plan actions that failed in isolation.",
		}),
	}
}

// AttachMetricsEndpoint mounts /metrics against reg's gatherer.
func AttachMetricsEndpoint(mux *http.ServeMux, reg *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}
