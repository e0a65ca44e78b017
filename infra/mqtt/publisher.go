package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	coremqtt "github.com/kilianp07/phasebalance/core/mqtt"
	"github.com/kilianp07/phasebalance/core/plan"
)

// PlanPublisher mirrors the core mqtt.PlanPublisher interface.
type PlanPublisher = coremqtt.PlanPublisher

// MockPublisher is a simple publisher used in tests and dry runs.
type MockPublisher struct {
	Plans      map[string]plan.Plan
	FailRuns   map[string]bool
	AckResults map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		Plans:      make(map[string]plan.Plan),
		FailRuns:   make(map[string]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishPlan records the plan or returns an error if configured to fail.
func (m *MockPublisher) PublishPlan(_ context.Context, runID string, p plan.Plan) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRuns[runID] {
		return "", fmt.Errorf("%w: run %s", coremqtt.ErrPublish, runID)
	}
	m.Plans[runID] = p
	id := fmt.Sprintf("msg-%s", runID)
	m.AckResults[id] = true
	return id, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockPublisher) WaitForAck(messageID string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[messageID]
	m.mu.Unlock()
	if !exists {
		return false, fmt.Errorf("%w: %s", coremqtt.ErrUnknownMessage, messageID)
	}
	return ok, nil
}

// Published returns the plan recorded for a run.
func (m *MockPublisher) Published(runID string) (plan.Plan, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Plans[runID]
	return p, ok
}
