package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the pipeline's prometheus collectors on a private registry
// so only deliberately exposed series show up on the scrape endpoint.
type Registry struct {
	reg            *prometheus.Registry
	RunsTotal      prometheus.Counter
	RunFailures    prometheus.Counter
	RunDurationSec prometheus.Histogram
	TableRows      *prometheus.GaugeVec
	RejectedTotal  *prometheus.CounterVec
	UnzonedOrders  prometheus.Gauge
	SimOrders      prometheus.Counter
	SimReports     prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "woeat_pipeline_runs_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "woeat_pipeline_run_failures_total"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "woeat_pipeline_run_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	rows := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "woeat_pipeline_table_rows"},
		[]string{"table"},
	)
	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "woeat_pipeline_rejected_records_total"},
		[]string{"source"},
	)
	unzoned := prometheus.NewGauge(prometheus.GaugeOpts{Name: "woeat_pipeline_unzoned_orders"})
	simOrders := prometheus.NewCounter(prometheus.CounterOpts{Name: "woeat_sim_orders_total"})
	simReports := prometheus.NewCounter(prometheus.CounterOpts{Name: "woeat_sim_reports_total"})

	r.MustRegister(runs, failures, duration, rows, rejected, unzoned, simOrders, simReports)
	return &Registry{
		reg:            r,
		RunsTotal:      runs,
		RunFailures:    failures,
		RunDurationSec: duration,
		TableRows:      rows,
		RejectedTotal:  rejected,
		UnzonedOrders:  unzoned,
		SimOrders:      simOrders,
		SimReports:     simReports,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
