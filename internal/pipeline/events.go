package pipeline

import (
	"time"

	"rollcall/internal/vision"
)

// EventType enumerates the immutable events the pipeline publishes to the
// presentation layer.
type EventType string

const (
	// EventRecognitionConfirmed fires once per appearance when an identity
	// is confirmed and the ledger accepted the record.
	EventRecognitionConfirmed EventType = "recognition_confirmed"
	// EventCooldownActive fires when a confirmed identity was rejected by
	// the ledger's cooldown gate.
	EventCooldownActive EventType = "cooldown_active"
	// EventTrackLost fires when a face region ages out.
	EventTrackLost EventType = "track_lost"
	// EventUnknownFace fires when a track settles on no known identity.
	EventUnknownFace EventType = "unknown_face"
)

// Event is one immutable pipeline notification. Consumers receive events on
// the session's channel and must never mutate shared pipeline state.
type Event struct {
	Type      EventType
	At        time.Time
	TrackID   string
	Box       vision.BoundingBox
	PersonID  string
	Name      string
	Distance  float64
	Remaining time.Duration
}
