package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeThrottled = "throttled"
	OutcomeFailed    = "failed"
)

// Metrics holds the collectors updated during a crawl.
// All methods are safe for concurrent use.
type Metrics struct {
	requests            *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	consecutiveThrottle prometheus.Gauge
	circuitOpen         prometheus.Gauge
	seedsFinished       *prometheus.CounterVec
	groupsVisited       prometheus.Gauge
	idsCollected        prometheus.Gauge
	checkpointDuration  prometheus.Histogram
}

// New registers the crawl collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guildcrawl_requests_total",
			Help: "Total API requests by endpoint and outcome",
		}, []string{"endpoint", "outcome"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guildcrawl_request_duration_seconds",
			Help:    "Duration of API requests, excluding limiter waits",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),

		consecutiveThrottle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guildcrawl_consecutive_throttles",
			Help: "Current run of consecutive throttled responses",
		}),

		circuitOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guildcrawl_circuit_open",
			Help: "1 when the throttle circuit breaker has tripped",
		}),

		seedsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guildcrawl_seeds_finished_total",
			Help: "Seed entries committed to the crawl state by outcome",
		}, []string{"outcome"}),

		groupsVisited: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guildcrawl_groups_visited",
			Help: "Number of distinct groups expanded",
		}),

		idsCollected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guildcrawl_ids_collected",
			Help: "Number of distinct ids collected",
		}),

		checkpointDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "guildcrawl_checkpoint_duration_seconds",
			Help:    "Time spent persisting a checkpoint",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

// Discard returns Metrics registered on a private registry nobody scrapes.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(endpoint, outcome string, d time.Duration) {
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// SetConsecutiveThrottles records the breaker counter.
func (m *Metrics) SetConsecutiveThrottles(n int) {
	m.consecutiveThrottle.Set(float64(n))
}

// SetCircuitOpen records the breaker state.
func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}

// ObserveCommit records a committed seed entry and the state sizes after it.
func (m *Metrics) ObserveCommit(outcome string, groups, ids int, persist time.Duration) {
	m.seedsFinished.WithLabelValues(outcome).Inc()
	m.groupsVisited.Set(float64(groups))
	m.idsCollected.Set(float64(ids))
	m.checkpointDuration.Observe(persist.Seconds())
}

// Serve exposes gatherer on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx) //nolint:errcheck // Best effort on exit
	}()

	logger.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
