package api

import (
	"time"

	"gouq/domain/core"
	"gouq/domain/run"
	"gouq/ports"
)

// SSEEventBroadcaster adapts the SSEHub to the RunEvents port
type SSEEventBroadcaster struct {
	sseHub *SSEHub
}

var _ ports.RunEvents = (*SSEEventBroadcaster)(nil)

// NewSSEEventBroadcaster creates a new SSE event broadcaster
func NewSSEEventBroadcaster(sseHub *SSEHub) *SSEEventBroadcaster {
	return &SSEEventBroadcaster{sseHub: sseHub}
}

// RunProgress broadcasts sampler progress
func (seb *SSEEventBroadcaster) RunProgress(id core.RunID, done, total int) {
	var frac float64
	if total > 0 {
		frac = float64(done) / float64(total)
	}
	seb.sseHub.Broadcast(RunEvent{
		RunID:     id.String(),
		EventType: EventProgress,
		Done:      done,
		Total:     total,
		Progress:  frac,
		Status:    string(run.StatusRunning),
		Timestamp: time.Now(),
	})
}

// RunFinished broadcasts the terminal state of a run
func (seb *SSEEventBroadcaster) RunFinished(r *run.Run) {
	seb.sseHub.Broadcast(terminalEvent(r))
}

func terminalEvent(r *run.Run) RunEvent {
	event := RunEvent{
		RunID:     r.ID.String(),
		EventType: EventCompleted,
		Progress:  1,
		Status:    string(r.Status),
		Timestamp: time.Now(),
	}
	if r.Status == run.StatusFailed {
		event.EventType = EventFailed
		event.Error = r.Error
	}
	return event
}
