// Package engine implements the engine's C5 component: the front-end that
// dispatches UpdateEdl/RenderEdlWindow/Subscribe and fans out engine
// events to subscribers.
package engine

// EventType tags the variant carried by an EngineEvent.
type EventType string

const (
	EventBackendStatus EventType = "BACKEND_STATUS"
	EventEdlApplied    EventType = "EDL_APPLIED"
	EventEdlError      EventType = "EDL_ERROR"
	EventProgress      EventType = "PROGRESS"
	EventComplete      EventType = "COMPLETE"
	EventHeartbeat     EventType = "HEARTBEAT"
	EventSlowConsumer  EventType = "SLOW_CONSUMER"
)

// Event is the tagged union streamed to subscribers and render callers.
// Exactly one of the payload fields is populated per Type, except
// SlowConsumer, which carries no payload.
type Event struct {
	Type EventType `json:"type"`

	BackendStatus *BackendStatusPayload `json:"backend_status,omitempty"`
	EdlApplied    *EdlAppliedPayload    `json:"edl_applied,omitempty"`
	EdlError      *EdlErrorPayload      `json:"edl_error,omitempty"`
	Progress      *ProgressPayload      `json:"progress,omitempty"`
	Complete      *CompletePayload      `json:"complete,omitempty"`
	Heartbeat     *HeartbeatPayload     `json:"heartbeat,omitempty"`
}

type BackendStatusPayload struct {
	Status string `json:"status"`
}

type EdlAppliedPayload struct {
	EdlID      string `json:"edl_id"`
	Revision   string `json:"revision"`
	TrackCount int    `json:"track_count"`
	ClipCount  int    `json:"clip_count"`
}

type EdlErrorPayload struct {
	EdlID  string `json:"edl_id,omitempty"`
	Reason string `json:"reason"`
}

type ProgressPayload struct {
	Fraction   float64 `json:"fraction"`
	EtaSeconds float64 `json:"eta_seconds"`
}

type CompletePayload struct {
	OutPath     string  `json:"out_path"`
	DurationSec float64 `json:"duration_sec"`
	Sha256      string  `json:"sha256"`
}

type HeartbeatPayload struct {
	MonotonicMs int64 `json:"monotonic_ms"`
}

func backendStatus(status string) Event {
	return Event{Type: EventBackendStatus, BackendStatus: &BackendStatusPayload{Status: status}}
}

func edlApplied(edlID, revision string, trackCount, clipCount int) Event {
	return Event{Type: EventEdlApplied, EdlApplied: &EdlAppliedPayload{
		EdlID: edlID, Revision: revision, TrackCount: trackCount, ClipCount: clipCount,
	}}
}

func edlError(edlID, reason string) Event {
	return Event{Type: EventEdlError, EdlError: &EdlErrorPayload{EdlID: edlID, Reason: reason}}
}

func progress(fraction, etaSeconds float64) Event {
	return Event{Type: EventProgress, Progress: &ProgressPayload{Fraction: fraction, EtaSeconds: etaSeconds}}
}

func complete(outPath string, durationSec float64, sha256 string) Event {
	return Event{Type: EventComplete, Complete: &CompletePayload{
		OutPath: outPath, DurationSec: durationSec, Sha256: sha256,
	}}
}

func heartbeat(monotonicMs int64) Event {
	return Event{Type: EventHeartbeat, Heartbeat: &HeartbeatPayload{MonotonicMs: monotonicMs}}
}

func slowConsumer() Event {
	return Event{Type: EventSlowConsumer}
}
