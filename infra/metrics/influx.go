package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/phasebalance/core/metrics"
	"github.com/kilianp07/phasebalance/infra/logger"
)

const writeTimeout = 5 * time.Second

// InfluxSink writes optimisation events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the run summary.
func (s *InfluxSink) RecordRun(ev coremetrics.RunEvent) error {
	p := write.NewPointWithMeasurement("optimisation_run").
		AddTag("run_id", ev.RunID).
		AddTag("found", strconv.FormatBool(ev.Found)).
		AddTag("cancelled", strconv.FormatBool(ev.Cancelled))
	if ev.Scenario != "" {
		p = p.AddTag("scenario", ev.Scenario)
	}
	p = p.AddField("consumers", ev.Consumers).
		AddField("groups", ev.Groups).
		AddField("attempts", ev.Attempts).
		AddField("feasible", ev.Feasible).
		AddField("baseline_unbalance", round3(ev.BaselineUnbalance)).
		AddField("final_unbalance", round3(ev.FinalUnbalance)).
		AddField("changes", ev.Changes).
		AddField("fitness", round3(ev.Fitness)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordAttempt writes one attempt result.
func (s *InfluxSink) RecordAttempt(ev coremetrics.AttemptEvent) error {
	p := write.NewPointWithMeasurement("optimisation_attempt").
		AddTag("run_id", ev.RunID).
		AddTag("feasible", strconv.FormatBool(ev.Feasible)).
		AddField("attempt", ev.Attempt).
		AddField("generations", ev.Generations).
		AddField("best_fitness", round3(ev.BestFitness)).
		AddField("best_unbalance", round3(ev.BestUnbalance)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordProgress writes a champion snapshot.
func (s *InfluxSink) RecordProgress(ev coremetrics.ProgressEvent) error {
	p := write.NewPointWithMeasurement("optimisation_progress").
		AddTag("run_id", ev.RunID).
		AddField("attempt", ev.Attempt).
		AddField("generation", ev.Generation).
		AddField("best_fitness", round3(ev.BestFitness)).
		AddField("best_unbalance", round3(ev.BestUnbalance)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordPublish writes a plan publication.
func (s *InfluxSink) RecordPublish(ev coremetrics.PublishEvent) error {
	p := write.NewPointWithMeasurement("plan_published").
		AddTag("run_id", ev.RunID).
		AddTag("topic", ev.Topic).
		AddTag("success", strconv.FormatBool(ev.Success)).
		AddField("changes", ev.Changes).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
