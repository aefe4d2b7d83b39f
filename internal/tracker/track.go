package tracker

import (
	"time"

	"rollcall/internal/vision"
)

// State is the recognition phase of one tracked face.
type State int

const (
	// StateDetecting means too little evidence has accumulated to judge.
	StateDetecting State = iota
	// StateIdentifying means evidence is accumulating but inconclusive.
	StateIdentifying
	// StateRecognized means an identity was confirmed for this appearance.
	StateRecognized
	// StateUnknown means the window filled without any identity qualifying.
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StateDetecting:
		return "detecting"
	case StateIdentifying:
		return "identifying"
	case StateRecognized:
		return "recognized"
	case StateUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Observation is one recognizer verdict applied to a track.
type Observation struct {
	PersonID string
	Distance float64
}

// observation as stored in the window. An empty personID marks a sighting
// whose distance failed the acceptance threshold.
type windowEntry struct {
	personID string
	distance float64
}

// Track is the accumulated evidence for one spatially continuous face
// region. Tracks are keyed by an opaque id, matched to detections by box
// overlap and removed after going unmatched for too many frames.
type Track struct {
	id        string
	box       vision.BoundingBox
	firstSeen time.Time

	state     State
	window    []windowEntry
	failures  int
	missed    int
	confirmed bool
}

// ID returns the track's opaque identifier.
func (tr *Track) ID() string { return tr.id }

// Box returns the most recently matched bounding box.
func (tr *Track) Box() vision.BoundingBox { return tr.box }

// FirstSeen returns when the track's region first appeared.
func (tr *Track) FirstSeen() time.Time { return tr.firstSeen }

// State returns the current recognition phase.
func (tr *Track) State() State { return tr.state }

// Confirmed reports whether this track already emitted its confirmation.
func (tr *Track) Confirmed() bool { return tr.confirmed }

// observe folds one recognizer verdict into the window and re-evaluates.
//
// A verdict above the distance threshold counts as an anonymous sighting: it
// stays in the window and dilutes agreement but never resets accumulated
// evidence. A verdict naming a different person than the current leader
// resets the window, since two identities cannot share one face region.
func (tr *Track) observe(cfg Config, obs Observation) {
	tr.failures = 0

	candidate := obs.PersonID
	if obs.Distance >= cfg.DistanceThreshold {
		candidate = ""
	}

	if candidate != "" {
		if leader, _ := tr.leader(); leader != "" && leader != candidate {
			tr.window = tr.window[:0]
		}
	}

	tr.window = append(tr.window, windowEntry{personID: candidate, distance: obs.Distance})
	if len(tr.window) > cfg.WindowLength {
		tr.window = tr.window[1:]
	}

	tr.evaluate(cfg)
}

// fail records a recognizer failure. Failures carry no identity evidence and
// are not entered into the window, but a run of them means the accumulated
// evidence is stale, so the track falls back to Detecting.
func (tr *Track) fail(cfg Config) {
	tr.failures++
	if tr.failures >= cfg.MaxFailures {
		tr.reset()
	}
}

func (tr *Track) reset() {
	tr.window = tr.window[:0]
	tr.failures = 0
	tr.state = StateDetecting
}

// leader returns the identity with the most window entries and its count.
// Anonymous sightings never lead.
func (tr *Track) leader() (string, int) {
	counts := make(map[string]int, len(tr.window))
	var leader string
	var best int
	for _, entry := range tr.window {
		if entry.personID == "" {
			continue
		}
		counts[entry.personID]++
		if counts[entry.personID] > best {
			leader = entry.personID
			best = counts[entry.personID]
		}
	}
	return leader, best
}

// latestDistance returns the most recent accepted distance for personID.
func (tr *Track) latestDistance(personID string) float64 {
	for i := len(tr.window) - 1; i >= 0; i-- {
		if tr.window[i].personID == personID {
			return tr.window[i].distance
		}
	}
	return 0
}

func (tr *Track) evaluate(cfg Config) {
	if tr.confirmed {
		tr.state = StateRecognized
		return
	}

	leader, count := tr.leader()
	qualified := leader != "" &&
		count >= cfg.MinStableFrames &&
		float64(count) >= cfg.AgreementFraction*float64(len(tr.window))

	switch {
	case qualified:
		tr.state = StateRecognized
	case len(tr.window) >= cfg.WindowLength:
		tr.state = StateUnknown
	case len(tr.window) < cfg.MinStableFrames:
		tr.state = StateDetecting
	default:
		tr.state = StateIdentifying
	}
}
