package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/phasebalance/core/balance"
	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
	"github.com/kilianp07/phasebalance/internal/eventbus"
)

type captureSink struct {
	coremetrics.NopSink
	mu       sync.Mutex
	progress []coremetrics.ProgressEvent
	attempts []coremetrics.AttemptEvent
}

func (c *captureSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	c.mu.Lock()
	c.progress = append(c.progress, ev)
	c.mu.Unlock()
	return nil
}

func (c *captureSink) RecordAttempt(ev coremetrics.AttemptEvent) error {
	c.mu.Lock()
	c.attempts = append(c.attempts, ev)
	c.mu.Unlock()
	return nil
}

func TestEventCollectorRecordsProgressAndAttempts(t *testing.T) {
	bus := eventbus.NewTyped[balance.Event]()
	sink := &captureSink{}
	done := StartEventCollector(context.Background(), bus, sink, "run-7")

	now := time.Now()
	bus.Publish(balance.Event{Kind: balance.EventAttemptStarted, Attempt: 0, Time: now})
	bus.Publish(balance.Event{Kind: balance.EventGeneration, Attempt: 0, Generation: 10, BestUnbalance: 20, Time: now})
	bus.Publish(balance.Event{Kind: balance.EventAttemptFinished, Attempt: 0, Generation: 40, BestUnbalance: 3, Time: now})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
	require.Len(t, sink.progress, 1)
	assert.Equal(t, "run-7", sink.progress[0].RunID)
	assert.Equal(t, 10, sink.progress[0].Generation)
	require.Len(t, sink.attempts, 1)
	assert.True(t, sink.attempts[0].Feasible)
	assert.Equal(t, 40, sink.attempts[0].Generations)
}

func TestEventCollectorStopsOnContext(t *testing.T) {
	bus := eventbus.NewTyped[balance.Event]()
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, &captureSink{}, "r")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, &captureSink{}, "r")
	_, ok := <-done
	assert.False(t, ok)
}

func TestEventCollectorDrainsOnCancel(t *testing.T) {
	bus := eventbus.NewTyped[balance.Event]()
	sink := &captureSink{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, sink, "r")
	for g := 1; g <= 5; g++ {
		bus.Publish(balance.Event{Kind: balance.EventGeneration, Generation: g * 10})
	}
	cancel()
	<-done
	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.Len(t, sink.progress, 5)
}
