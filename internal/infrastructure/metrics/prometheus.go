// Package metrics exposes lifecycle counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/orris-inc/billing/internal/application/subscription/usecases"
	"github.com/orris-inc/billing/internal/domain/ledger"
)

const namespace = "billing"

// Recorder implements usecases.MetricsRecorder on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	renewals        *prometheus.CounterVec
	charges         *prometheus.CounterVec
	chargeDuration  *prometheus.HistogramVec
	lifecycle       *prometheus.CounterVec
	planChanges     *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec
	httpRequests    *prometheus.CounterVec
	httpRequestTime *prometheus.HistogramVec
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		renewals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renewals_total",
			Help:      "Renewal attempts by outcome",
		}, []string{"outcome"}),
		charges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_charges_total",
			Help:      "Off-session charges by gateway and result",
		}, []string{"gateway", "result"}),
		chargeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_charge_duration_seconds",
			Help:      "Latency of off-session charges",
			Buckets:   prometheus.DefBuckets,
		}, []string{"gateway"}),
		lifecycle: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Subscription lifecycle events",
		}, []string{"event"}),
		planChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_changes_total",
			Help:      "Plan change operations",
		}, []string{"type", "execution_type", "status"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by result",
		}, []string{"job", "result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs",
			Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		}, []string{"job"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status_code"}),
		httpRequestTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}

	reg.MustRegister(
		r.renewals, r.charges, r.chargeDuration, r.lifecycle, r.planChanges,
		r.jobRuns, r.jobDuration, r.httpRequests, r.httpRequestTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

var _ usecases.MetricsRecorder = (*Recorder)(nil)

func (r *Recorder) RenewalOutcome(outcome string) {
	r.renewals.WithLabelValues(outcome).Inc()
}

func (r *Recorder) ChargeCompleted(gateway ledger.GatewayName, success bool, elapsed time.Duration) {
	result := "declined"
	if success {
		result = "success"
	}
	r.charges.WithLabelValues(gateway.String(), result).Inc()
	r.chargeDuration.WithLabelValues(gateway.String()).Observe(elapsed.Seconds())
}

func (r *Recorder) SuspensionWarningSent() {
	r.lifecycle.WithLabelValues("suspension_warning_sent").Inc()
}

func (r *Recorder) SubscriptionSuspended() {
	r.lifecycle.WithLabelValues("suspended").Inc()
}

func (r *Recorder) SubscriptionExpired() {
	r.lifecycle.WithLabelValues("expired").Inc()
}

func (r *Recorder) PlanChange(changeType, executionType, status string) {
	r.planChanges.WithLabelValues(changeType, executionType, status).Inc()
}

// JobCompleted records one scheduled job run.
func (r *Recorder) JobCompleted(job string, err error, elapsed time.Duration) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.jobRuns.WithLabelValues(job, result).Inc()
	r.jobDuration.WithLabelValues(job).Observe(elapsed.Seconds())
}

// HTTPRequest records one served request. path is the route template.
func (r *Recorder) HTTPRequest(method, path string, status int, elapsed time.Duration) {
	r.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpRequestTime.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
