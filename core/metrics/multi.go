package metrics

import (
	"context"
	"errors"
)

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the run to all sinks and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordAttempt forwards attempt results to sinks that record them.
func (m *MultiSink) RecordAttempt(ev AttemptEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AttemptRecorder); ok {
			errs = append(errs, rec.RecordAttempt(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordProgress forwards progress snapshots.
func (m *MultiSink) RecordProgress(ev ProgressEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(ProgressRecorder); ok {
			errs = append(errs, rec.RecordProgress(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordPublish forwards publication events.
func (m *MultiSink) RecordPublish(ev PublishEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PublishRecorder); ok {
			errs = append(errs, rec.RecordPublish(ev))
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every sink that buffers.
func (m *MultiSink) Flush(ctx context.Context) error {
	var errs []error
	for _, s := range m.Sinks {
		if f, ok := s.(Flusher); ok {
			errs = append(errs, f.Flush(ctx))
		}
	}
	return errors.Join(errs...)
}
