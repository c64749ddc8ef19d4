// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SalesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockpilot_sales_applied_total",
		Help: "Demand events applied to inventory.",
	})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockpilot_orders_created_total",
		Help: "Purchase orders raised by the reorder evaluator.",
	})

	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockpilot_persistence_failures_total",
		Help: "Gateway writes that failed after the in-memory mutation was applied.",
	})

	SimulatorRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stockpilot_simulator_running",
		Help: "Whether the demand simulator is ticking (1) or stopped (0).",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
