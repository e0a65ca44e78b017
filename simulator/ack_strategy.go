package simulator

import (
	"context"
	"math/rand/v2"
	"time"
)

// AckFunc publishes the acknowledgment of a plan message.
type AckFunc func(messageID string)

// AckStrategy defines how the work-order system acknowledges plans.
type AckStrategy interface {
	Ack(ctx context.Context, messageID string, send AckFunc)
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, messageID string, send AckFunc) {
	if !wait(ctx, a.Delay) {
		return
	}
	send(messageID)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
	// Float64 draws the drop decision; it defaults to the global source.
	Float64 func() float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, messageID string, send AckFunc) {
	draw := r.Float64
	if draw == nil {
		draw = rand.Float64
	}
	if r.DropRate > 0 && draw() < r.DropRate {
		return
	}
	if !wait(ctx, r.Delay) {
		return
	}
	send(messageID)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
