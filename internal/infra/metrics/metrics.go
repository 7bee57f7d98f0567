// Package metrics exposes processing counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"household_schedule_bot/internal/domain/schedule"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const namespace = "household"

// Metrics implements app.Recorder and records job runs.
type Metrics struct {
	registry    *prometheus.Registry
	decisions   *prometheus.CounterVec
	occurrences *prometheus.CounterVec
	failures    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobRuns     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Processing gate decisions by schedule kind and reason.",
		}, []string{"kind", "reason"}),
		occurrences: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "occurrences_created_total",
			Help:      "Occurrences written by schedule kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_failures_total",
			Help:      "Schedules whose processing transaction failed.",
		}, []string{"kind"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled job runs by outcome.",
		}, []string{"job", "outcome"}),
	}
	m.registry.MustRegister(
		m.decisions, m.occurrences, m.failures, m.jobDuration, m.jobRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveDecision(kind schedule.Kind, reason schedule.Reason) {
	m.decisions.WithLabelValues(string(kind), string(reason)).Inc()
}

func (m *Metrics) AddOccurrences(kind schedule.Kind, n int) {
	if n <= 0 {
		return
	}
	m.occurrences.WithLabelValues(string(kind)).Add(float64(n))
}

func (m *Metrics) ProcessingFailed(kind schedule.Kind) {
	m.failures.WithLabelValues(string(kind)).Inc()
}

// ObserveJob records one run of a scheduled job.
func (m *Metrics) ObserveJob(job string, took time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.jobDuration.WithLabelValues(job).Observe(took.Seconds())
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}

// Serve listens on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *logrus.Entry) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", addr).Info("Metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
