package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/config"
	"github.com/kilianp07/phasebalance/core/balance"
	"github.com/kilianp07/phasebalance/core/factory"
	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
	"github.com/kilianp07/phasebalance/core/model"
	coremqtt "github.com/kilianp07/phasebalance/core/mqtt"
	"github.com/kilianp07/phasebalance/core/plan"
	"github.com/kilianp07/phasebalance/infra/logger"
	"github.com/kilianp07/phasebalance/infra/mqtt"
)

type recordingSink struct {
	mu       sync.Mutex
	runs     []coremetrics.RunEvent
	attempts []coremetrics.AttemptEvent
	progress []coremetrics.ProgressEvent
	publish  []coremetrics.PublishEvent
}

func (r *recordingSink) RecordRun(ev coremetrics.RunEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, ev)
	return nil
}

func (r *recordingSink) RecordAttempt(ev coremetrics.AttemptEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, ev)
	return nil
}

func (r *recordingSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, ev)
	return nil
}

func (r *recordingSink) RecordPublish(ev coremetrics.PublishEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publish = append(r.publish, ev)
	return nil
}

func testConfig() *config.Config {
	cfg := &config.Config{Balance: balance.Config{
		PopulationSize:    30,
		Generations:       40,
		OptimizationTimes: 1,
		MaxRetryTimes:     5,
		FeasibleTarget:    2,
		LogEvery:          10,
		Seed:              11,
	}}
	cfg.MQTT.AckTimeoutSeconds = 1
	return cfg
}

func skewed() []model.Consumer {
	phases := []model.Phase{
		model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA, model.PhaseA,
		model.PhaseB, model.PhaseB, model.PhaseB, model.PhaseB,
		model.PhaseC, model.PhaseC,
	}
	out := make([]model.Consumer, len(phases))
	for i, ph := range phases {
		id := string(rune('a' + i))
		out[i] = model.NewConsumer(id, id, "R"+id, "B", ph, 100)
	}
	return out
}

func newTestService(t *testing.T, sink coremetrics.MetricsSink, pub coremqtt.PlanPublisher) *Service {
	t.Helper()
	svc, err := New(testConfig(), WithSink(sink), WithPublisher(pub), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestOptimizePublishesPlan(t *testing.T) {
	sink := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	svc := newTestService(t, sink, pub)

	rep, err := svc.Optimize(context.Background(), Request{Name: "skewed", Consumers: skewed()})
	require.NoError(t, err)
	require.NotNil(t, rep.Plan)
	assert.NotEmpty(t, rep.RunID)
	assert.True(t, rep.Published)
	assert.True(t, rep.Acked)
	assert.Equal(t, "msg-"+rep.RunID, rep.MessageID)
	assert.Less(t, rep.Plan.After.UnbalanceRate, balance.MaxAcceptableUnbalance)

	published, ok := pub.Published(rep.RunID)
	require.True(t, ok)
	assert.Equal(t, len(rep.Plan.Changes), len(published.Changes))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.runs, 1)
	run := sink.runs[0]
	assert.Equal(t, rep.RunID, run.RunID)
	assert.Equal(t, "skewed", run.Scenario)
	assert.True(t, run.Found)
	assert.Equal(t, 12, run.Consumers)
	assert.InDelta(t, 66.67, run.BaselineUnbalance, 0.01)
	assert.Len(t, sink.attempts, len(rep.Result.Attempts))
	for _, a := range sink.attempts {
		assert.Equal(t, rep.RunID, a.RunID)
	}
	require.Len(t, sink.publish, 1)
	assert.True(t, sink.publish[0].Success)
}

func TestCancelBetweenRunsStopsNextRun(t *testing.T) {
	pub := mqtt.NewMockPublisher()
	svc := newTestService(t, &recordingSink{}, pub)

	svc.Cancel()
	rep, err := svc.Optimize(context.Background(), Request{Consumers: skewed()})
	require.NoError(t, err)
	assert.True(t, rep.Result.Cancelled)
	assert.Empty(t, rep.Result.Attempts)
	assert.Nil(t, rep.Plan)
	assert.False(t, rep.Published)

	rep, err = svc.Optimize(context.Background(), Request{Consumers: skewed()})
	require.NoError(t, err)
	assert.False(t, rep.Result.Cancelled)
	assert.NotNil(t, rep.Plan)
}

func TestOptimizePublishFailure(t *testing.T) {
	sink := &recordingSink{}
	pub := &failingPublisher{}
	svc := newTestService(t, sink, pub)

	rep, err := svc.Optimize(context.Background(), Request{Consumers: skewed()})
	require.ErrorIs(t, err, coremqtt.ErrPublish)
	require.NotNil(t, rep)
	assert.NotNil(t, rep.Plan)
	assert.False(t, rep.Published)
	require.Len(t, sink.publish, 1)
	assert.False(t, sink.publish[0].Success)
	assert.NotEmpty(t, sink.publish[0].Error)
}

func TestOptimizeEmptyFeeder(t *testing.T) {
	sink := &recordingSink{}
	pub := mqtt.NewMockPublisher()
	svc := newTestService(t, sink, pub)

	rep, err := svc.Optimize(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, rep.Plan)
	assert.False(t, rep.Published)
	assert.Empty(t, pub.Plans)
	require.Len(t, sink.runs, 1)
	assert.False(t, sink.runs[0].Found)
}

func TestOptimizeInvalidInput(t *testing.T) {
	svc := newTestService(t, &recordingSink{}, mqtt.NewMockPublisher())
	bad := []model.Consumer{{ID: "x", Readings: [3]float64{5, 0, 0}}}
	_, err := svc.Optimize(context.Background(), Request{Consumers: bad})
	require.ErrorIs(t, err, balance.ErrInvalidInput)
}

func TestOptimizeWithoutPublisher(t *testing.T) {
	sink := &recordingSink{}
	svc, err := New(testConfig(), WithSink(sink), WithLogger(logger.NopLogger{}))
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()

	rep, err := svc.Optimize(context.Background(), Request{Consumers: skewed()})
	require.NoError(t, err)
	assert.NotNil(t, rep.Plan)
	assert.False(t, rep.Published)
	assert.Empty(t, sink.publish)
}

func TestNewFromConfiguredSinks(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "nop"}}
	svc, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, svc.sink)
	assert.Nil(t, svc.publisher)
	require.NoError(t, svc.Close())

	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "unknown"}}
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestServeMetricsDisabled(t *testing.T) {
	svc := newTestService(t, &recordingSink{}, nil)
	assert.NoError(t, svc.ServeMetrics(context.Background()))
}

type failingPublisher struct{}

func (failingPublisher) PublishPlan(context.Context, string, plan.Plan) (string, error) {
	return "", coremqtt.ErrPublish
}

func (failingPublisher) WaitForAck(string, time.Duration) (bool, error) { return false, nil }
