package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/phasebalance/core/plan"
)

// PlanPublisher delivers rewiring plans to the work-order system and tracks
// their acknowledgment.
type PlanPublisher interface {
	// PublishPlan sends the plan of a run and returns the message identifier
	// used to track the acknowledgment.
	PublishPlan(ctx context.Context, runID string, p plan.Plan) (messageID string, err error)

	// WaitForAck waits for an acknowledgment of the message or until the
	// timeout expires.
	WaitForAck(messageID string, timeout time.Duration) (bool, error)
}

// PlanMessage is the payload published for a plan.
type PlanMessage struct {
	MessageID string    `json:"message_id"`
	RunID     string    `json:"run_id"`
	Timestamp int64     `json:"timestamp"`
	Plan      plan.Plan `json:"plan"`
}

// AckMessage is the payload expected on the acknowledgment topic.
type AckMessage struct {
	MessageID string `json:"message_id"`
}
