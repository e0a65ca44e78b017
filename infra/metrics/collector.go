package metrics

import (
	"context"

	"github.com/kilianp07/phasebalance/core/balance"
	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
	"github.com/kilianp07/phasebalance/infra/logger"
	"github.com/kilianp07/phasebalance/internal/eventbus"
)

// StartEventCollector subscribes to the optimiser event bus and records
// progress and attempt events in sink. It stops when the context is canceled
// or the bus is closed; events already buffered when the context is canceled
// are still recorded. The returned channel is closed on exit.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[balance.Event], sink coremetrics.MetricsSink, runID string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				drain(sub, sink, runID, log)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev, runID); err != nil {
					log.Warnf("record %s event: %v", ev.Kind, err)
				}
			}
		}
	}()
	return done
}

func drain(sub <-chan balance.Event, sink coremetrics.MetricsSink, runID string, log logger.Logger) {
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := record(sink, ev, runID); err != nil {
				log.Warnf("record %s event: %v", ev.Kind, err)
			}
		default:
			return
		}
	}
}

func record(sink coremetrics.MetricsSink, ev balance.Event, runID string) error {
	switch ev.Kind {
	case balance.EventGeneration:
		if r, ok := sink.(coremetrics.ProgressRecorder); ok {
			return r.RecordProgress(coremetrics.ProgressEvent{
				RunID:         runID,
				Attempt:       ev.Attempt,
				Generation:    ev.Generation,
				BestFitness:   ev.BestFitness,
				BestUnbalance: ev.BestUnbalance,
				Time:          ev.Time,
			})
		}
	case balance.EventAttemptFinished:
		if r, ok := sink.(coremetrics.AttemptRecorder); ok {
			return r.RecordAttempt(coremetrics.AttemptEvent{
				RunID:         runID,
				Attempt:       ev.Attempt,
				Generations:   ev.Generation,
				BestFitness:   ev.BestFitness,
				BestUnbalance: ev.BestUnbalance,
				Feasible:      ev.Generation > 0 && ev.BestUnbalance < balance.MaxAcceptableUnbalance,
				Time:          ev.Time,
			})
		}
	}
	return nil
}
