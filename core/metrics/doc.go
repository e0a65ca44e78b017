// Package metrics defines the sinks that observe optimisation runs. A sink
// must record run summaries and may record attempt results, generation
// progress and plan publications; NewMultiSink fans events out to several
// sinks and NewMetricsSink builds sinks from configuration through the
// registry filled by infra/metrics.
package metrics
