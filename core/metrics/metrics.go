package metrics

import (
	"context"
	"time"
)

// RunEvent summarises one optimisation run.
type RunEvent struct {
	RunID             string
	Scenario          string
	Consumers         int
	Groups            int
	Attempts          int
	Feasible          int
	Found             bool
	Cancelled         bool
	BaselineUnbalance float64
	FinalUnbalance    float64
	Changes           int
	Fitness           float64
	Duration          time.Duration
	Time              time.Time
}

// MetricsSink records optimisation runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// AttemptEvent is the outcome of one restart of the search.
type AttemptEvent struct {
	RunID         string
	Attempt       int
	Generations   int
	BestFitness   float64
	BestUnbalance float64
	Feasible      bool
	Time          time.Time
}

// AttemptRecorder records attempt results.
type AttemptRecorder interface {
	RecordAttempt(ev AttemptEvent) error
}

// ProgressEvent is a periodic snapshot of an attempt's champion.
type ProgressEvent struct {
	RunID         string
	Attempt       int
	Generation    int
	BestFitness   float64
	BestUnbalance float64
	Time          time.Time
}

// ProgressRecorder records generation progress.
type ProgressRecorder interface {
	RecordProgress(ev ProgressEvent) error
}

// PublishEvent describes the delivery of a plan downstream.
type PublishEvent struct {
	RunID   string
	Topic   string
	Changes int
	Success bool
	Latency time.Duration
	Error   string
	Time    time.Time
}

// PublishRecorder records plan publications.
type PublishRecorder interface {
	RecordPublish(ev PublishEvent) error
}

// Flusher is implemented by sinks that buffer and must be flushed before
// the process exits.
type Flusher interface {
	Flush(ctx context.Context) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error           { return nil }
func (NopSink) RecordAttempt(AttemptEvent) error   { return nil }
func (NopSink) RecordProgress(ProgressEvent) error { return nil }
func (NopSink) RecordPublish(PublishEvent) error   { return nil }
