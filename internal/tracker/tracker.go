package tracker

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/vision"
)

// Config tunes the debouncing behavior.
type Config struct {
	// WindowLength is the number of recent verdicts kept per track.
	WindowLength int
	// MinStableFrames is the minimum agreeing verdicts before confirmation.
	MinStableFrames int
	// AgreementFraction is the share of the window one identity must hold.
	AgreementFraction float64
	// DistanceThreshold separates accepted matches from anonymous sightings.
	DistanceThreshold float64
	// MaxMissedFrames is how many unmatched frames a track survives.
	MaxMissedFrames int
	// MaxFailures is the consecutive recognizer failures before a reset.
	MaxFailures int
}

// FromConfig derives tracker tuning from the application configuration.
func FromConfig(cfg *config.Config) Config {
	return Config{
		WindowLength:      cfg.Tracker.WindowLength,
		MinStableFrames:   cfg.Tracker.MinStableFrames,
		AgreementFraction: cfg.Tracker.AgreementFraction,
		DistanceThreshold: cfg.Recognition.DistanceThreshold,
		MaxMissedFrames:   cfg.Tracker.MaxMissedFrames,
		MaxFailures:       cfg.Tracker.MaxFailures,
	}
}

// Update describes the outcome of applying one verdict to a track.
type Update struct {
	TrackID  string
	State    State
	PersonID string
	Distance float64
	// Confirmed is true exactly once per track, on first entry into the
	// recognized state. This is the signal that drives a ledger write.
	Confirmed bool
}

// Tracker owns every live track and matches face detections to them across
// frames. It is not safe for concurrent use; the capture pipeline drives it
// from a single goroutine and fans recognition out separately.
type Tracker struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	tracks map[string]*Track
}

// New builds an empty tracker. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger, now func() time.Time) *Tracker {
	if logger == nil {
		logger = logging.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		cfg:    cfg,
		logger: logger,
		now:    now,
		tracks: make(map[string]*Track),
	}
}

// MatchResult reports how one frame's detections mapped onto tracks.
type MatchResult struct {
	// Matched holds every track with a detection this frame, new or old.
	Matched []*Track
	// Lost holds ids of tracks removed for going unmatched too long.
	Lost []string
}

// Match assigns this frame's detections to existing tracks by box overlap,
// creating tracks for unmatched detections and aging out tracks that have
// gone unseen. Matching is purely spatial; identity plays no part in it.
func (t *Tracker) Match(boxes []vision.BoundingBox) MatchResult {
	var result MatchResult
	claimed := make(map[string]bool, len(t.tracks))

	for _, box := range boxes {
		track := t.closestTrack(box, claimed)
		if track == nil {
			track = &Track{
				id:        uuid.NewString(),
				box:       box,
				firstSeen: t.now(),
				state:     StateDetecting,
			}
			t.tracks[track.id] = track
			t.logger.Debug("track created",
				logging.String(logging.FieldTrackID, track.id))
		} else {
			track.box = box
		}
		track.missed = 0
		claimed[track.id] = true
		result.Matched = append(result.Matched, track)
	}

	for id, track := range t.tracks {
		if claimed[id] {
			continue
		}
		track.missed++
		if track.missed > t.cfg.MaxMissedFrames {
			delete(t.tracks, id)
			result.Lost = append(result.Lost, id)
			t.logger.Debug("track lost",
				logging.String(logging.FieldTrackID, id),
				logging.String("state", track.state.String()))
		}
	}
	return result
}

// closestTrack finds the best unclaimed track for a detection: highest box
// overlap first, falling back to center proximity gated by box size for
// fast-moving faces whose boxes no longer intersect.
func (t *Tracker) closestTrack(box vision.BoundingBox, claimed map[string]bool) *Track {
	var best *Track
	bestIoU := 0.0
	for id, track := range t.tracks {
		if claimed[id] {
			continue
		}
		if iou := track.box.IoU(box); iou > bestIoU {
			best = track
			bestIoU = iou
		}
	}
	if best != nil {
		return best
	}

	gate := box.Width * box.Width
	bestDist := gate
	for id, track := range t.tracks {
		if claimed[id] {
			continue
		}
		if d := track.box.CenterDistanceSq(box); d < bestDist {
			best = track
			bestDist = d
		}
	}
	return best
}

// ApplyObservation folds one recognizer verdict into a track. The returned
// update carries Confirmed=true exactly once per track lifetime, on the
// transition into the recognized state.
func (t *Tracker) ApplyObservation(trackID string, obs Observation) Update {
	track, ok := t.tracks[trackID]
	if !ok {
		return Update{TrackID: trackID}
	}

	track.observe(t.cfg, obs)

	update := Update{
		TrackID:  trackID,
		State:    track.state,
		PersonID: obs.PersonID,
		Distance: obs.Distance,
	}
	if track.state == StateRecognized && !track.confirmed {
		track.confirmed = true
		leader, _ := track.leader()
		update.Confirmed = true
		update.PersonID = leader
		update.Distance = track.latestDistance(leader)
		t.logger.Info("recognition confirmed",
			logging.String(logging.FieldTrackID, trackID),
			logging.String(logging.FieldPersonID, leader),
			logging.Float64("distance", update.Distance))
	}
	return update
}

// ApplyFailure records a recognizer failure for a track. Failures carry no
// identity evidence; a run of them resets the track to detecting.
func (t *Tracker) ApplyFailure(trackID string) Update {
	track, ok := t.tracks[trackID]
	if !ok {
		return Update{TrackID: trackID}
	}
	track.fail(t.cfg)
	return Update{TrackID: trackID, State: track.state}
}

// Track returns a live track by id, or nil.
func (t *Tracker) Track(id string) *Track {
	return t.tracks[id]
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int { return len(t.tracks) }

// Reset drops all track state, for session teardown.
func (t *Tracker) Reset() {
	t.tracks = make(map[string]*Track)
}
