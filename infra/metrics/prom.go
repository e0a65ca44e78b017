package metrics

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
)

// PromSink records optimisation events in Prometheus metrics. When a push
// gateway is configured, Flush pushes the gathered metrics to it so that
// one-shot CLI runs are not lost.
type PromSink struct {
	runs        *prometheus.CounterVec
	runDuration prometheus.Histogram
	unbalance   *prometheus.GaugeVec
	changes     prometheus.Gauge
	attempts    *prometheus.CounterVec
	progress    prometheus.Gauge
	publishes   *prometheus.CounterVec
	publishLat  prometheus.Histogram

	pushURL  string
	job      string
	gatherer prometheus.Gatherer
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP exposition is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phasebalance_runs_total",
		Help: "Optimisation runs by outcome",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.runDuration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "phasebalance_run_duration_seconds",
		Help:    "Wall time of optimisation runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})); err != nil {
		return nil, err
	}
	if s.unbalance, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "phasebalance_unbalance_rate_percent",
		Help: "Unbalance rate of the last run before and after optimisation",
	}, []string{"stage"})); err != nil {
		return nil, err
	}
	if s.changes, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "phasebalance_plan_changes",
		Help: "Consumers rewired by the last plan",
	})); err != nil {
		return nil, err
	}
	if s.attempts, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phasebalance_attempts_total",
		Help: "Genetic search attempts by feasibility",
	}, []string{"feasible"})); err != nil {
		return nil, err
	}
	if s.progress, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "phasebalance_best_unbalance_rate_percent",
		Help: "Unbalance rate of the current attempt champion",
	})); err != nil {
		return nil, err
	}
	if s.publishes, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "phasebalance_plan_publish_total",
		Help: "Plan publications by result",
	}, []string{"success"})); err != nil {
		return nil, err
	}
	if s.publishLat, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "phasebalance_plan_publish_latency_seconds",
		Help:    "Time to publish a plan",
		Buckets: prometheus.DefBuckets,
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// WithPush makes Flush push the metrics gathered by g to a push gateway.
func (s *PromSink) WithPush(url, job string, g prometheus.Gatherer) *PromSink {
	s.pushURL, s.job, s.gatherer = url, job, g
	return s
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and the last-run gauges.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	outcome := "none"
	switch {
	case ev.Found:
		outcome = "found"
	case ev.Cancelled:
		outcome = "cancelled"
	}
	s.runs.WithLabelValues(outcome).Inc()
	s.runDuration.Observe(ev.Duration.Seconds())
	s.unbalance.WithLabelValues("before").Set(ev.BaselineUnbalance)
	if ev.Found {
		s.unbalance.WithLabelValues("after").Set(ev.FinalUnbalance)
		s.changes.Set(float64(ev.Changes))
	}
	return nil
}

// RecordAttempt counts attempts by feasibility.
func (s *PromSink) RecordAttempt(ev coremetrics.AttemptEvent) error {
	s.attempts.WithLabelValues(strconv.FormatBool(ev.Feasible)).Inc()
	return nil
}

// RecordProgress tracks the champion of the running attempt.
func (s *PromSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	s.progress.Set(ev.BestUnbalance)
	return nil
}

// RecordPublish counts plan publications and their latency.
func (s *PromSink) RecordPublish(ev coremetrics.PublishEvent) error {
	s.publishes.WithLabelValues(strconv.FormatBool(ev.Success)).Inc()
	s.publishLat.Observe(ev.Latency.Seconds())
	return nil
}

// Flush pushes to the configured gateway; it is a no-op without one.
func (s *PromSink) Flush(ctx context.Context) error {
	if s.pushURL == "" {
		return nil
	}
	g := s.gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return push.New(s.pushURL, s.job).Gatherer(g).PushContext(ctx)
}
