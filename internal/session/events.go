// Package session runs ordered batches of scan targets through the job
// supervisor, one job at a time per session, emitting typed progress
// events and persisting session snapshots as the batch advances.
package session

import (
	"fmt"
	"time"

	"github.com/scanwell/scanwell/internal/engine"
)

// EventType names the typed events a session emits.
type EventType string

const (
	EventSessionStarted   EventType = "session-started"
	EventProgress         EventType = "progress"
	EventResult           EventType = "result"
	EventError            EventType = "error"
	EventSessionCompleted EventType = "session-completed"
	EventSessionCancelled EventType = "session-cancelled"
)

// Event is one entry in a session's event stream. Events for a given
// session are emitted in target order; which fields are populated
// depends on the event type.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`

	// session-started, progress, session-completed
	Completed int `json:"completed,omitempty"`
	Total     int `json:"total,omitempty"`

	// progress
	CurrentTarget string  `json:"current_target,omitempty"`
	Percentage    float64 `json:"percentage,omitempty"`
	ETA           string  `json:"eta,omitempty"`
	Elapsed       string  `json:"elapsed,omitempty"`

	// result, error
	TargetAddress string         `json:"target_address,omitempty"`
	Result        *engine.Result `json:"result,omitempty"`
	Message       string         `json:"message,omitempty"`
}

// Sink receives session events. The coordinator calls Emit from the
// session goroutine and from job reader goroutines, so implementations
// must be safe for concurrent use and must not block.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit implements Sink.
func (f SinkFunc) Emit(event Event) { f(event) }

// etaNotReady is reported before any target has completed, when no
// per-target average exists to extrapolate from.
const etaNotReady = "Calculating..."

// estimateETA projects time remaining from the running average of
// elapsed time per completed target, rendered as mm:ss.
func estimateETA(elapsed time.Duration, completed, total int) string {
	if completed == 0 {
		return etaNotReady
	}
	average := elapsed / time.Duration(completed)
	remaining := average * time.Duration(total-completed)
	return formatClock(remaining)
}

// formatClock renders a duration as mm:ss, the shape progress
// observers display verbatim.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
