// Package metrics exposes quiz history as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/verte-zerg/adalan/internal/model"
)

const (
	namespace      = "adalan"
	collectTimeout = 5 * time.Second
)

// Source provides history totals at scrape time.
type Source interface {
	Totals(ctx context.Context) (int, []model.OperatorAggregate, error)
}

// Collector reads aggregates from the store on every scrape.
type Collector struct {
	src    Source
	logger *zap.Logger

	runs     *prometheus.Desc
	answers  *prometheus.Desc
	response *prometheus.Desc
}

// NewCollector constructs a Collector.
func NewCollector(src Source, logger *zap.Logger) *Collector {
	return &Collector{
		src:    src,
		logger: logger,
		runs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "runs_total"),
			"Completed quiz runs.", nil, nil),
		answers: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "answers_total"),
			"Graded answers by operator and result.", []string{"operator", "result"}, nil),
		response: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "response_seconds_sum"),
			"Total response time in seconds by operator.", []string{"operator"}, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.runs
	ch <- c.answers
	ch <- c.response
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	runs, aggs, err := c.src.Totals(ctx)
	if err != nil {
		c.logger.Error("failed to collect totals", zap.Error(err))
		ch <- prometheus.NewInvalidMetric(c.runs, err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.runs, prometheus.CounterValue, float64(runs))
	for _, agg := range aggs {
		op := string(agg.Operator)
		ch <- prometheus.MustNewConstMetric(c.answers, prometheus.CounterValue, float64(agg.Correct), op, "correct")
		ch <- prometheus.MustNewConstMetric(c.answers, prometheus.CounterValue, float64(agg.Incorrect), op, "incorrect")
		ch <- prometheus.MustNewConstMetric(c.response, prometheus.CounterValue, float64(agg.ResponseSumSeconds), op)
	}
}

// HTTP records request metrics for the history server.
type HTTP struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewHTTP registers request metrics on reg.
func NewHTTP(reg prometheus.Registerer) *HTTP {
	h := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests received",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(h.requests, h.latency)
	return h
}

// Observe records one finished request.
func (h *HTTP) Observe(method, route string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	h.requests.WithLabelValues(method, route, code).Inc()
	h.latency.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
}

// NewRegistry returns a registry holding the history collector plus the
// standard process and Go runtime collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
