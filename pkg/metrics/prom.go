package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arnavshah/rotation-scheduler-api/pkg/models"
)

// Recorder records planning runs, cache lookups and HTTP traffic in
// Prometheus metrics. It satisfies scheduler.Recorder.
type Recorder struct {
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	rounds      prometheus.Histogram
	rollbacks   prometheus.Counter
	extensions  prometheus.Counter
	cache       *prometheus.CounterVec
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	gatherer    prometheus.Gatherer
}

// NewRecorder registers the metrics on the default Prometheus registry.
func NewRecorder(namespace string) (*Recorder, error) {
	return NewRecorderWithRegistry(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewRecorderWithRegistry registers the metrics on reg and serves them from
// gatherer. Nil arguments fall back to the global registry.
func NewRecorderWithRegistry(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r := &Recorder{gatherer: gatherer}
	var err error
	if r.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planning_runs_total",
		Help:      "Planning runs by terminal status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if r.runDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "planning_duration_seconds",
		Help:      "Wall time of planning runs",
		Buckets:   prometheus.DefBuckets,
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if r.rounds, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "planning_rounds",
		Help:      "Rounds needed per planning run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})); err != nil {
		return nil, err
	}
	if r.rollbacks, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planning_rolled_back_assignments_total",
		Help:      "Assignments removed by stagnation rollbacks",
	})); err != nil {
		return nil, err
	}
	if r.extensions, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "planning_horizon_extensions_total",
		Help:      "Search horizon extensions after repeated stagnation",
	})); err != nil {
		return nil, err
	}
	if r.cache, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "result_cache_lookups_total",
		Help:      "Result cache lookups by outcome",
	}, []string{"result"})); err != nil {
		return nil, err
	}
	if r.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "code"})); err != nil {
		return nil, err
	}
	if r.latency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})); err != nil {
		return nil, err
	}
	return r, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveRun records one finished planning run.
func (r *Recorder) ObserveRun(status string, stats models.RunStats, elapsed time.Duration) {
	r.runs.WithLabelValues(status).Inc()
	r.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
	r.rounds.Observe(float64(stats.Rounds))
	r.rollbacks.Add(float64(stats.RolledBackAssignments))
	r.extensions.Add(float64(stats.HorizonExtensions))
}

// ObserveCache records a result cache hit or miss.
func (r *Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// Middleware counts and times every request by its route template.
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the gathered metrics.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
