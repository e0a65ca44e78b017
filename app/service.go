package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/phasebalance/config"
	"github.com/kilianp07/phasebalance/core/balance"
	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
	"github.com/kilianp07/phasebalance/core/model"
	coremqtt "github.com/kilianp07/phasebalance/core/mqtt"
	"github.com/kilianp07/phasebalance/core/plan"
	"github.com/kilianp07/phasebalance/infra/logger"
	"github.com/kilianp07/phasebalance/infra/metrics"
	"github.com/kilianp07/phasebalance/infra/mqtt"
	"github.com/kilianp07/phasebalance/internal/eventbus"
)

// Request is one feeder to balance.
type Request struct {
	// Name labels the run in metrics, e.g. the scenario or feeder name.
	Name      string
	Consumers []model.Consumer
	Groups    []model.BranchGroup
}

// Report is the outcome of Service.Optimize.
type Report struct {
	RunID     string         `json:"run_id"`
	Name      string         `json:"name,omitempty"`
	Result    balance.Result `json:"result"`
	Plan      *plan.Plan     `json:"plan,omitempty"`
	Published bool           `json:"published"`
	MessageID string         `json:"message_id,omitempty"`
	Acked     bool           `json:"acked"`
}

// Service wires the optimiser to its metrics sinks and to the plan publisher.
type Service struct {
	cfg       *config.Config
	optimizer *balance.Optimizer
	bus       *eventbus.TypedBus[balance.Event]
	sink      coremetrics.MetricsSink
	publisher coremqtt.PlanPublisher
	log       logger.Logger

	mu      sync.Mutex
	closers []func()
}

// Option customises a Service.
type Option func(*Service)

// WithSink replaces the sinks declared in the configuration.
func WithSink(s coremetrics.MetricsSink) Option {
	return func(svc *Service) { svc.sink = s }
}

// WithPublisher replaces the MQTT publisher declared in the configuration.
func WithPublisher(p coremqtt.PlanPublisher) Option {
	return func(svc *Service) { svc.publisher = p }
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) { svc.log = l }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if err := logger.Configure(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return nil, err
	}
	svc := &Service{cfg: cfg, log: logger.New("service")}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
		svc.closers = append(svc.closers, closeSinks(sink)...)
	}
	if svc.publisher == nil && cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		svc.closers = append(svc.closers, pub.Disconnect)
	}

	svc.bus = eventbus.NewTyped[balance.Event]()
	svc.closers = append(svc.closers, svc.bus.Close)
	svc.optimizer = balance.New(cfg.Balance,
		balance.WithLogger(logger.New("balance")),
		balance.WithEvents(svc.bus),
	)
	return svc, nil
}

func closeSinks(s coremetrics.MetricsSink) []func() {
	type closer interface{ Close() }
	var out []func()
	if m, ok := s.(*coremetrics.MultiSink); ok {
		for _, inner := range m.Sinks {
			out = append(out, closeSinks(inner)...)
		}
		return out
	}
	if c, ok := s.(closer); ok {
		out = append(out, c.Close)
	}
	return out
}

// ServeMetrics exposes /metrics on the configured listen address until ctx
// is done. It returns immediately when no address is configured.
func (s *Service) ServeMetrics(ctx context.Context) error {
	if s.cfg.Metrics.ListenAddr == "" {
		return nil
	}
	return metrics.StartPromServer(ctx, s.cfg.Metrics.ListenAddr)
}

// Cancel stops the running optimisation at its next checkpoint. Issued
// between runs, it stops the next one before its first attempt.
func (s *Service) Cancel() { s.optimizer.RequestCancel() }

// Optimize balances one feeder, records the run and publishes the plan when
// a publisher is configured. Runs are serialised. A publication failure is
// returned together with the report.
func (s *Service) Optimize(ctx context.Context, req Request) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := &Report{RunID: uuid.NewString(), Name: req.Name}
	collectCtx, stopCollect := context.WithCancel(ctx)
	collected := metrics.StartEventCollector(collectCtx, s.bus, s.sink, rep.RunID)
	res, err := s.optimizer.Run(ctx, req.Consumers, req.Groups)
	s.optimizer.ResetCancel()
	stopCollect()
	<-collected
	if err != nil {
		return nil, err
	}
	rep.Result = res

	ev := coremetrics.RunEvent{
		RunID:             rep.RunID,
		Scenario:          req.Name,
		Consumers:         len(req.Consumers),
		Groups:            len(req.Groups),
		Attempts:          len(res.Attempts),
		Feasible:          res.Feasible,
		Found:             res.Solution != nil,
		Cancelled:         res.Cancelled,
		BaselineUnbalance: res.BaselineUnbalance,
		FinalUnbalance:    res.BaselineUnbalance,
		Duration:          res.Duration,
		Time:              time.Now(),
	}
	if res.Solution != nil {
		p, err := plan.Build(req.Consumers, res.Solution)
		if err != nil {
			return nil, err
		}
		rep.Plan = &p
		ev.FinalUnbalance = res.Solution.UnbalanceRate()
		ev.Changes = res.Solution.Metrics.Changed
		ev.Fitness = res.Solution.Fitness
	}
	if err := s.sink.RecordRun(ev); err != nil {
		s.log.Warnf("record run %s: %v", rep.RunID, err)
	}

	var pubErr error
	if rep.Plan != nil && s.publisher != nil {
		pubErr = s.publish(ctx, rep)
	}
	s.flush(ctx)
	return rep, pubErr
}

func (s *Service) publish(ctx context.Context, rep *Report) error {
	start := time.Now()
	id, err := s.publisher.PublishPlan(ctx, rep.RunID, *rep.Plan)
	ev := coremetrics.PublishEvent{
		RunID:   rep.RunID,
		Topic:   s.cfg.MQTT.PlanTopic,
		Changes: len(rep.Plan.Changes),
		Success: err == nil,
		Latency: time.Since(start),
		Time:    time.Now(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	if r, ok := s.sink.(coremetrics.PublishRecorder); ok {
		if rerr := r.RecordPublish(ev); rerr != nil {
			s.log.Warnf("record publish %s: %v", rep.RunID, rerr)
		}
	}
	if err != nil {
		s.log.Errorf("publish plan of run %s: %v", rep.RunID, err)
		return fmt.Errorf("publish plan: %w", err)
	}
	rep.Published = true
	rep.MessageID = id

	timeout := s.cfg.MQTT.AckTimeout()
	if timeout <= 0 {
		return nil
	}
	acked, err := s.publisher.WaitForAck(id, timeout)
	if err != nil {
		if errors.Is(err, coremqtt.ErrAckTimeout) {
			s.log.Warnf("plan %s not acknowledged within %s", id, timeout)
			return nil
		}
		return fmt.Errorf("wait for ack: %w", err)
	}
	rep.Acked = acked
	return nil
}

func (s *Service) flush(ctx context.Context) {
	f, ok := s.sink.(coremetrics.Flusher)
	if !ok {
		return
	}
	fctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.Flush(fctx); err != nil {
		s.log.Warnf("flush metrics: %v", err)
	}
}

// Close releases the publisher connection, the sinks and the event bus.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
	return nil
}
