package balance

import "time"

// EventKind names a progress event of a run.
type EventKind string

const (
	EventAttemptStarted  EventKind = "attempt_started"
	EventGeneration      EventKind = "generation"
	EventAttemptFinished EventKind = "attempt_finished"
	EventRunFinished     EventKind = "run_finished"
)

// Event reports optimiser progress. Generation events are emitted every
// LogEvery generations.
type Event struct {
	Kind          EventKind `json:"kind"`
	Attempt       int       `json:"attempt"`
	Generation    int       `json:"generation"`
	BestFitness   float64   `json:"best_fitness"`
	BestUnbalance float64   `json:"best_unbalance"`
	// Feasible is the number of feasible champions collected so far.
	Feasible int       `json:"feasible"`
	Time     time.Time `json:"time"`
}

// EventPublisher receives progress events. Publish must not block.
type EventPublisher interface {
	Publish(Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}
